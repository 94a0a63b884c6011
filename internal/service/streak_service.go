package service

import (
	"mathclash/internal/models"
	"mathclash/internal/period"
)

// StreakService is the day-granularity streak machine. The stored state only
// ever moves forward when a qualifying day is recorded; continuity is derived
// from the gap between today and the last qualifying day at read time, so
// nothing needs to reset rows at midnight.
type StreakService struct {
	minDailyQuestions int
}

// NewStreakService creates a streak service. minDailyQuestions is how many
// attempted questions make a day count toward the streak.
func NewStreakService(minDailyQuestions int) *StreakService {
	return &StreakService{minDailyQuestions: minDailyQuestions}
}

// Status derives the streak state for a student as of today in the
// student's own time zone. Current is the number shown to the student:
// zero as soon as a day has been missed, even while the stored run is
// still rescuable by a grace skip.
func (s *StreakService) Status(state *models.StudentRewardState, today period.Day) models.StreakStatus {
	if state == nil || state.LastQualifyingDate.IsZero() || state.CurrentStreakDays == 0 {
		return models.StreakStatus{State: models.StreakBroken}
	}

	gap := today.Sub(state.LastQualifyingDate)
	switch {
	case gap <= 1:
		return models.StreakStatus{State: models.StreakActive, Current: state.CurrentStreakDays}
	case gap == 2:
		// Exactly one missed day. The stored run is kept so a grace skip
		// can restore it, but the student sees zero until then.
		return models.StreakStatus{
			State:     models.StreakBrokenPendingGrace,
			MissedDay: state.LastQualifyingDate.Next(),
		}
	default:
		return models.StreakStatus{State: models.StreakBroken}
	}
}

// RecordQuestions folds a batch of attempted questions into the daily
// counter, resetting it at the local day boundary, and reports whether this
// batch carried the student across the qualifying threshold for the day.
// The threshold is crossed at most once per day.
func (s *StreakService) RecordQuestions(state *models.StudentRewardState, day period.Day, attempted int) bool {
	if state.QuestionsTodayDate != day {
		state.QuestionsToday = 0
		state.QuestionsTodayDate = day
	}

	before := state.QuestionsToday
	state.QuestionsToday += attempted
	return before < s.minDailyQuestions && state.QuestionsToday >= s.minDailyQuestions
}

// Advance applies a qualifying day to the stored streak: consecutive days
// extend the run, anything else starts a fresh run of one. Reports false
// when the day was already counted.
func (s *StreakService) Advance(state *models.StudentRewardState, day period.Day) bool {
	if state.LastQualifyingDate == day {
		return false
	}

	if !state.LastQualifyingDate.IsZero() && day.Sub(state.LastQualifyingDate) == 1 {
		state.CurrentStreakDays++
	} else {
		state.CurrentStreakDays = 1
	}
	state.LastQualifyingDate = day

	if state.CurrentStreakDays > state.LongestStreakDays {
		state.LongestStreakDays = state.CurrentStreakDays
	}
	return true
}

// GraceEligible reports whether a grace skip applies right now and which
// missed day it would cover. Eligibility is exactly the single-missed-day
// window; once a second day is missed the streak is gone for good.
func (s *StreakService) GraceEligible(state *models.StudentRewardState, today period.Day) (period.Day, bool) {
	status := s.Status(state, today)
	if status.State != models.StreakBrokenPendingGrace {
		return "", false
	}
	return status.MissedDay, true
}

// ApplyGrace marks the missed day as covered without extending the run. The
// streak shows its preserved length again immediately, and the next
// qualifying day continues it as if nothing was missed.
func (s *StreakService) ApplyGrace(state *models.StudentRewardState, missedDay period.Day) {
	state.LastQualifyingDate = missedDay
}
