package service

import (
	"testing"

	"mathclash/internal/config"
	"mathclash/internal/models"
	"mathclash/internal/period"
)

func badgeTestConfig() *config.Config {
	return &config.Config{
		AccuracyAceMinPct:            90,
		AccuracyAceMinQuestions:      10,
		PerfectPrecisionMinQuestions: 5,
		ComebackMinGain:              20,
		ComebackMinQuestions:         10,
		BronzeMindQuestions:          500,
		SilverMindQuestions:          2000,
		GoldMindQuestions:            5000,
	}
}

func badgeTypes(awards []models.BadgeAward) []models.BadgeType {
	types := make([]models.BadgeType, 0, len(awards))
	for _, a := range awards {
		types = append(types, a.BadgeType)
	}
	return types
}

func TestEvaluateMonthly(t *testing.T) {
	svc := NewBadgeService(badgeTestConfig())
	month := period.Month("2026-03")

	tests := []struct {
		name     string
		snapshot models.MonthSnapshot
		want     []models.BadgeType
	}{
		{
			name:     "quiet month earns nothing",
			snapshot: models.MonthSnapshot{Month: month, DaysInMonth: 31},
			want:     nil,
		},
		{
			name: "accuracy ace at the minimum volume",
			snapshot: models.MonthSnapshot{
				Month:       month,
				Stats:       models.MonthStats{QuestionsAttempted: 10, QuestionsCorrect: 9},
				DaysInMonth: 31,
			},
			want: []models.BadgeType{models.BadgeAccuracyAce},
		},
		{
			name: "below the volume floor only precision can fire",
			snapshot: models.MonthSnapshot{
				Month:       month,
				Stats:       models.MonthStats{QuestionsAttempted: 9, QuestionsCorrect: 9},
				DaysInMonth: 31,
			},
			want: []models.BadgeType{models.BadgePerfectPrecision},
		},
		{
			name: "perfect month with volume earns both",
			snapshot: models.MonthSnapshot{
				Month:       month,
				Stats:       models.MonthStats{QuestionsAttempted: 12, QuestionsCorrect: 12},
				DaysInMonth: 31,
			},
			want: []models.BadgeType{models.BadgeAccuracyAce, models.BadgePerfectPrecision},
		},
		{
			name: "comeback kid on a twenty point gain",
			snapshot: models.MonthSnapshot{
				Month:       month,
				Stats:       models.MonthStats{QuestionsAttempted: 15, QuestionsCorrect: 11},
				PrevStats:   &models.MonthStats{QuestionsAttempted: 20, QuestionsCorrect: 10},
				DaysInMonth: 31,
			},
			want: []models.BadgeType{models.BadgeComebackKid},
		},
		{
			name: "comeback needs a previous month",
			snapshot: models.MonthSnapshot{
				Month:       month,
				Stats:       models.MonthStats{QuestionsAttempted: 15, QuestionsCorrect: 11},
				DaysInMonth: 31,
			},
			want: nil,
		},
		{
			name: "comeback needs volume in both months",
			snapshot: models.MonthSnapshot{
				Month:       month,
				Stats:       models.MonthStats{QuestionsAttempted: 15, QuestionsCorrect: 11},
				PrevStats:   &models.MonthStats{QuestionsAttempted: 8, QuestionsCorrect: 2},
				DaysInMonth: 31,
			},
			want: nil,
		},
		{
			name: "qualifying every day earns the monthly streak",
			snapshot: models.MonthSnapshot{
				Month:       month,
				Stats:       models.MonthStats{QualifyingDays: 31},
				DaysInMonth: 31,
			},
			want: []models.BadgeType{models.BadgeMonthlyStreak},
		},
		{
			name: "one missed day is no monthly streak",
			snapshot: models.MonthSnapshot{
				Month:       month,
				Stats:       models.MonthStats{QualifyingDays: 30},
				DaysInMonth: 31,
			},
			want: nil,
		},
		{
			name: "full attendance with t-shirt earns both",
			snapshot: models.MonthSnapshot{
				Month:       month,
				Attendance:  models.AttendanceSummary{ClassesHeld: 8, ClassesAttended: 8, TShirtDays: 8},
				DaysInMonth: 31,
			},
			want: []models.BadgeType{models.BadgeAttendanceChampion, models.BadgeGoldTShirtStar},
		},
		{
			name: "t-shirt star without full attendance",
			snapshot: models.MonthSnapshot{
				Month:       month,
				Attendance:  models.AttendanceSummary{ClassesHeld: 8, ClassesAttended: 6, TShirtDays: 6},
				DaysInMonth: 31,
			},
			want: []models.BadgeType{models.BadgeGoldTShirtStar},
		},
		{
			name: "no attendance badges when no class was held",
			snapshot: models.MonthSnapshot{
				Month:       month,
				Attendance:  models.AttendanceSummary{},
				DaysInMonth: 31,
			},
			want: nil,
		},
		{
			name: "leaderboard gold",
			snapshot: models.MonthSnapshot{
				Month:           month,
				LeaderboardRank: 1,
				DaysInMonth:     31,
			},
			want: []models.BadgeType{models.BadgeLeaderboardGold},
		},
		{
			name: "leaderboard silver",
			snapshot: models.MonthSnapshot{
				Month:           month,
				LeaderboardRank: 2,
				DaysInMonth:     31,
			},
			want: []models.BadgeType{models.BadgeLeaderboardSilver},
		},
		{
			name: "leaderboard bronze",
			snapshot: models.MonthSnapshot{
				Month:           month,
				LeaderboardRank: 3,
				DaysInMonth:     31,
			},
			want: []models.BadgeType{models.BadgeLeaderboardBronze},
		},
		{
			name: "fourth place earns nothing",
			snapshot: models.MonthSnapshot{
				Month:           month,
				LeaderboardRank: 4,
				DaysInMonth:     31,
			},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := badgeTypes(svc.EvaluateMonthly(1, &tt.snapshot))
			if len(got) != len(tt.want) {
				t.Fatalf("EvaluateMonthly() awarded %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("award %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestMonthlyAwardShape(t *testing.T) {
	svc := NewBadgeService(badgeTestConfig())
	snapshot := &models.MonthSnapshot{
		Month:       period.Month("2026-03"),
		Stats:       models.MonthStats{QuestionsAttempted: 10, QuestionsCorrect: 9},
		DaysInMonth: 31,
	}

	awards := svc.EvaluateMonthly(7, snapshot)
	if len(awards) != 1 {
		t.Fatalf("EvaluateMonthly() returned %d awards, want 1", len(awards))
	}

	award := awards[0]
	if award.StudentID != 7 {
		t.Errorf("StudentID = %d, want 7", award.StudentID)
	}
	if award.PeriodKey != "2026-03" {
		t.Errorf("PeriodKey = %q, want 2026-03", award.PeriodKey)
	}
	if award.Lifetime {
		t.Error("monthly award marked lifetime")
	}
	if award.BadgeName != "Accuracy Ace" {
		t.Errorf("BadgeName = %q, want Accuracy Ace", award.BadgeName)
	}
	if award.Points != 100 {
		t.Errorf("Points = %d, want the default 100", award.Points)
	}
}

func TestBadgePointsOverride(t *testing.T) {
	cfg := badgeTestConfig()
	cfg.BadgePoints = map[models.BadgeType]int{models.BadgeAccuracyAce: 250}
	svc := NewBadgeService(cfg)

	awards := svc.EvaluateMonthly(1, &models.MonthSnapshot{
		Month:       period.Month("2026-03"),
		Stats:       models.MonthStats{QuestionsAttempted: 10, QuestionsCorrect: 9},
		DaysInMonth: 31,
	})
	if len(awards) != 1 {
		t.Fatalf("EvaluateMonthly() returned %d awards, want 1", len(awards))
	}
	if awards[0].Points != 250 {
		t.Errorf("Points = %d, want the configured 250", awards[0].Points)
	}
}

func TestEvaluateLifetime(t *testing.T) {
	svc := NewBadgeService(badgeTestConfig())

	tests := []struct {
		name      string
		attempted int
		want      []models.BadgeType
	}{
		{name: "below the first threshold", attempted: 499, want: nil},
		{name: "bronze exactly at the line", attempted: 500,
			want: []models.BadgeType{models.BadgeBronzeMind}},
		{name: "silver includes bronze", attempted: 2000,
			want: []models.BadgeType{models.BadgeBronzeMind, models.BadgeSilverMind}},
		{name: "gold includes everything", attempted: 6000,
			want: []models.BadgeType{models.BadgeBronzeMind, models.BadgeSilverMind, models.BadgeGoldMind}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			awards := svc.EvaluateLifetime(1, tt.attempted)
			got := badgeTypes(awards)
			if len(got) != len(tt.want) {
				t.Fatalf("EvaluateLifetime(%d) awarded %v, want %v", tt.attempted, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("award %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
			for _, a := range awards {
				if !a.Lifetime {
					t.Errorf("award %q not marked lifetime", a.BadgeType)
				}
				if a.PeriodKey != "" {
					t.Errorf("award %q carries period key %q, want none", a.BadgeType, a.PeriodKey)
				}
			}
		})
	}
}
