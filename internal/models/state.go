package models

import (
	"time"

	"mathclash/internal/period"
)

// StudentRewardState is the per-student materialized view over the ledger:
// the running total plus streak bookkeeping. One row per student, created on
// first activity. total_points is only ever moved by the aggregator's atomic
// increment, never written wholesale except by an explicit rebuild.
type StudentRewardState struct {
	StudentID               int64
	TotalPoints             int
	CurrentStreakDays       int
	LongestStreakDays       int
	LastQualifyingDate      period.Day
	QuestionsToday          int
	QuestionsTodayDate      period.Day
	TotalQuestionsAttempted int
	TotalQuestionsCorrect   int
	Timezone                string
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// Location resolves the student's configured time zone, falling back to UTC
// if the name does not resolve on this host.
func (s *StudentRewardState) Location() *time.Location {
	if s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// StreakState is the derived continuity state of a streak as of a given day.
type StreakState string

const (
	// StreakActive means the streak is unbroken: the last qualifying day is
	// today or yesterday.
	StreakActive StreakState = "active"

	// StreakBrokenPendingGrace means exactly one day was missed and a grace
	// skip can still rescue the streak.
	StreakBrokenPendingGrace StreakState = "broken_pending_grace"

	// StreakBroken means more than one day was missed; the streak can only
	// restart from scratch.
	StreakBroken StreakState = "broken"
)

// StreakStatus is what the streak machine reports for a student on a given
// day. Current is the number shown to the student: the stored run while
// active, zero once the streak is broken (even if a grace skip could still
// restore the stored run).
type StreakStatus struct {
	State     StreakState
	Current   int
	MissedDay period.Day
}
