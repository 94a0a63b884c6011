package service

import (
	"fmt"
	"testing"

	"mathclash/internal/models"
	"mathclash/internal/period"
)

func TestStreakStatus(t *testing.T) {
	svc := NewStreakService(15)

	tests := []struct {
		name        string
		state       *models.StudentRewardState
		today       period.Day
		wantState   models.StreakState
		wantCurrent int
		wantMissed  period.Day
	}{
		{
			name:      "no state yet",
			state:     nil,
			today:     period.Day("2026-03-10"),
			wantState: models.StreakBroken,
		},
		{
			name:      "state without qualifying days",
			state:     &models.StudentRewardState{StudentID: 1},
			today:     period.Day("2026-03-10"),
			wantState: models.StreakBroken,
		},
		{
			name: "qualified today",
			state: &models.StudentRewardState{
				CurrentStreakDays:  5,
				LastQualifyingDate: period.Day("2026-03-10"),
			},
			today:       period.Day("2026-03-10"),
			wantState:   models.StreakActive,
			wantCurrent: 5,
		},
		{
			name: "qualified yesterday",
			state: &models.StudentRewardState{
				CurrentStreakDays:  5,
				LastQualifyingDate: period.Day("2026-03-09"),
			},
			today:       period.Day("2026-03-10"),
			wantState:   models.StreakActive,
			wantCurrent: 5,
		},
		{
			name: "one missed day shows zero but is rescuable",
			state: &models.StudentRewardState{
				CurrentStreakDays:  5,
				LastQualifyingDate: period.Day("2026-03-08"),
			},
			today:      period.Day("2026-03-10"),
			wantState:  models.StreakBrokenPendingGrace,
			wantMissed: period.Day("2026-03-09"),
		},
		{
			name: "two missed days is gone for good",
			state: &models.StudentRewardState{
				CurrentStreakDays:  5,
				LastQualifyingDate: period.Day("2026-03-07"),
			},
			today:     period.Day("2026-03-10"),
			wantState: models.StreakBroken,
		},
		{
			name: "grace window across a month boundary",
			state: &models.StudentRewardState{
				CurrentStreakDays:  12,
				LastQualifyingDate: period.Day("2026-02-28"),
			},
			today:      period.Day("2026-03-02"),
			wantState:  models.StreakBrokenPendingGrace,
			wantMissed: period.Day("2026-03-01"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := svc.Status(tt.state, tt.today)
			if got.State != tt.wantState {
				t.Errorf("State = %q, want %q", got.State, tt.wantState)
			}
			if got.Current != tt.wantCurrent {
				t.Errorf("Current = %d, want %d", got.Current, tt.wantCurrent)
			}
			if got.MissedDay != tt.wantMissed {
				t.Errorf("MissedDay = %q, want %q", got.MissedDay, tt.wantMissed)
			}
		})
	}
}

func TestRecordQuestions(t *testing.T) {
	svc := NewStreakService(15)
	day := period.Day("2026-03-10")

	t.Run("single batch crosses the threshold", func(t *testing.T) {
		state := &models.StudentRewardState{}
		if !svc.RecordQuestions(state, day, 20) {
			t.Error("RecordQuestions(20) = false, want true")
		}
		if state.QuestionsToday != 20 {
			t.Errorf("QuestionsToday = %d, want 20", state.QuestionsToday)
		}
	})

	t.Run("threshold crossed once across batches", func(t *testing.T) {
		state := &models.StudentRewardState{}
		if svc.RecordQuestions(state, day, 10) {
			t.Error("first batch of 10 should not cross")
		}
		if !svc.RecordQuestions(state, day, 5) {
			t.Error("second batch should cross at 15")
		}
		if svc.RecordQuestions(state, day, 5) {
			t.Error("third batch should not cross again")
		}
	})

	t.Run("counter resets at the day boundary", func(t *testing.T) {
		state := &models.StudentRewardState{
			QuestionsToday:     30,
			QuestionsTodayDate: period.Day("2026-03-09"),
		}
		if svc.RecordQuestions(state, day, 5) {
			t.Error("5 questions on a fresh day should not cross")
		}
		if state.QuestionsToday != 5 {
			t.Errorf("QuestionsToday = %d, want 5", state.QuestionsToday)
		}
		if state.QuestionsTodayDate != day {
			t.Errorf("QuestionsTodayDate = %q, want %q", state.QuestionsTodayDate, day)
		}
	})
}

func TestAdvance(t *testing.T) {
	svc := NewStreakService(15)

	t.Run("first qualifying day starts at one", func(t *testing.T) {
		state := &models.StudentRewardState{}
		if !svc.Advance(state, period.Day("2026-03-10")) {
			t.Fatal("Advance() = false, want true")
		}
		if state.CurrentStreakDays != 1 || state.LongestStreakDays != 1 {
			t.Errorf("streak = %d/%d, want 1/1", state.CurrentStreakDays, state.LongestStreakDays)
		}
	})

	t.Run("consecutive days extend the run", func(t *testing.T) {
		state := &models.StudentRewardState{
			CurrentStreakDays:  3,
			LongestStreakDays:  3,
			LastQualifyingDate: period.Day("2026-03-09"),
		}
		if !svc.Advance(state, period.Day("2026-03-10")) {
			t.Fatal("Advance() = false, want true")
		}
		if state.CurrentStreakDays != 4 {
			t.Errorf("CurrentStreakDays = %d, want 4", state.CurrentStreakDays)
		}
		if state.LongestStreakDays != 4 {
			t.Errorf("LongestStreakDays = %d, want 4", state.LongestStreakDays)
		}
	})

	t.Run("same day counts once", func(t *testing.T) {
		state := &models.StudentRewardState{
			CurrentStreakDays:  4,
			LastQualifyingDate: period.Day("2026-03-10"),
		}
		if svc.Advance(state, period.Day("2026-03-10")) {
			t.Error("Advance() on an already counted day = true, want false")
		}
		if state.CurrentStreakDays != 4 {
			t.Errorf("CurrentStreakDays = %d, want 4", state.CurrentStreakDays)
		}
	})

	t.Run("a gap restarts at one and keeps the longest", func(t *testing.T) {
		state := &models.StudentRewardState{
			CurrentStreakDays:  9,
			LongestStreakDays:  9,
			LastQualifyingDate: period.Day("2026-03-01"),
		}
		if !svc.Advance(state, period.Day("2026-03-10")) {
			t.Fatal("Advance() = false, want true")
		}
		if state.CurrentStreakDays != 1 {
			t.Errorf("CurrentStreakDays = %d, want 1", state.CurrentStreakDays)
		}
		if state.LongestStreakDays != 9 {
			t.Errorf("LongestStreakDays = %d, want 9", state.LongestStreakDays)
		}
	})
}

// A five day run, one missed day, a grace skip, then the next qualifying
// day: the run must come back as five and extend to six, never seven.
func TestGracePreservesRun(t *testing.T) {
	svc := NewStreakService(15)
	state := &models.StudentRewardState{}

	for d := 1; d <= 5; d++ {
		day := period.Day(fmt.Sprintf("2026-03-%02d", d))
		svc.RecordQuestions(state, day, 20)
		svc.Advance(state, day)
	}
	if state.CurrentStreakDays != 5 {
		t.Fatalf("CurrentStreakDays = %d, want 5", state.CurrentStreakDays)
	}

	// March 6 was missed; on March 7 the run shows zero but is rescuable
	today := period.Day("2026-03-07")
	status := svc.Status(state, today)
	if status.State != models.StreakBrokenPendingGrace {
		t.Fatalf("State = %q, want %q", status.State, models.StreakBrokenPendingGrace)
	}
	if status.Current != 0 {
		t.Errorf("Current = %d, want 0 while broken", status.Current)
	}

	missed, ok := svc.GraceEligible(state, today)
	if !ok {
		t.Fatal("GraceEligible() = false, want true")
	}
	if missed != period.Day("2026-03-06") {
		t.Errorf("missed day = %q, want 2026-03-06", missed)
	}

	svc.ApplyGrace(state, missed)
	status = svc.Status(state, today)
	if status.State != models.StreakActive || status.Current != 5 {
		t.Errorf("after grace: state %q current %d, want active 5", status.State, status.Current)
	}

	// The covered day itself never increments; the next qualifying day does
	svc.RecordQuestions(state, today, 20)
	if !svc.Advance(state, today) {
		t.Fatal("Advance() after grace = false, want true")
	}
	if state.CurrentStreakDays != 6 {
		t.Errorf("CurrentStreakDays = %d, want 6", state.CurrentStreakDays)
	}
}

func TestGraceEligibleWindow(t *testing.T) {
	svc := NewStreakService(15)
	state := &models.StudentRewardState{
		CurrentStreakDays:  5,
		LastQualifyingDate: period.Day("2026-03-05"),
	}

	if _, ok := svc.GraceEligible(state, period.Day("2026-03-06")); ok {
		t.Error("eligible while the streak is still active")
	}
	if _, ok := svc.GraceEligible(state, period.Day("2026-03-07")); !ok {
		t.Error("not eligible with exactly one day missed")
	}
	if _, ok := svc.GraceEligible(state, period.Day("2026-03-08")); ok {
		t.Error("eligible after a second missed day")
	}
}
