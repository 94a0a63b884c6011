package models

import (
	"time"

	"mathclash/internal/period"
)

// MonthStats is the per-student, per-month activity rollup maintained
// additively alongside each event. PointsEarned is the month's net ledger
// delta, which also drives the month leaderboard.
type MonthStats struct {
	StudentID          int64
	MonthKey           period.Month
	QuestionsAttempted int
	QuestionsCorrect   int
	PointsEarned       int
	QualifyingDays     int
}

// Accuracy returns the month's accuracy percentage, zero when nothing was
// attempted.
func (m *MonthStats) Accuracy() float64 {
	if m == nil || m.QuestionsAttempted == 0 {
		return 0
	}
	return float64(m.QuestionsCorrect) / float64(m.QuestionsAttempted) * 100
}

// AttendanceStatus is the recorded outcome for one class day.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
)

// Valid reports whether the status is a known value.
func (s AttendanceStatus) Valid() bool {
	return s == AttendancePresent || s == AttendanceAbsent
}

// AttendanceMark records one class day for a student. At most one mark per
// (student, day); replays are ignored.
type AttendanceMark struct {
	ID         int64
	StudentID  int64
	Day        period.Day
	Status     AttendanceStatus
	TShirtWorn bool
	CreatedAt  time.Time
}

// AttendanceSummary aggregates a student's marks for one month.
type AttendanceSummary struct {
	ClassesHeld     int
	ClassesAttended int
	TShirtDays      int
}

// Percentage returns attendance as a percentage, zero when no class was held.
func (a AttendanceSummary) Percentage() float64 {
	if a.ClassesHeld == 0 {
		return 0
	}
	return float64(a.ClassesAttended) / float64(a.ClassesHeld) * 100
}

// FullTShirt reports whether the student wore the t-shirt to every class
// they attended, having attended at least one.
func (a AttendanceSummary) FullTShirt() bool {
	return a.ClassesAttended > 0 && a.TShirtDays == a.ClassesAttended
}

// MonthSnapshot is the aggregate bundle a monthly badge evaluation runs
// against. The evaluator never recomputes these; the orchestrator assembles
// them from the rollup tables.
type MonthSnapshot struct {
	Month           period.Month
	Stats           MonthStats
	PrevStats       *MonthStats
	Attendance      AttendanceSummary
	LeaderboardRank int
	DaysInMonth     int
}

// LeaderboardRow is one entry of the month leaderboard.
type LeaderboardRow struct {
	StudentID int64
	Points    int
}

// EvaluationRun is the audit record of one monthly badge evaluation.
type EvaluationRun struct {
	ID                int64
	RunID             string
	MonthKey          period.Month
	StudentsEvaluated int
	BadgesAwarded     int
	CreatedAt         time.Time
}
