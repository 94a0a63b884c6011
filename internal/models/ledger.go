package models

import (
	"fmt"
	"time"
)

// SourceType identifies where a ledger entry came from. The set is closed;
// unknown values are rejected at the ledger boundary.
type SourceType string

const (
	SourceDailyLogin        SourceType = "daily_login"
	SourceQuestionAttempted SourceType = "question_attempted"
	SourceQuestionCorrect   SourceType = "question_correct"
	SourceStreakBonus       SourceType = "streak_bonus"
	SourceBadgeAward        SourceType = "badge_award"
	SourceGraceSkip         SourceType = "grace_skip_redemption"
	SourceManualAdjustment  SourceType = "manual_adjustment"
)

// Valid reports whether the source type is one of the known values.
func (s SourceType) Valid() bool {
	switch s {
	case SourceDailyLogin, SourceQuestionAttempted, SourceQuestionCorrect,
		SourceStreakBonus, SourceBadgeAward, SourceGraceSkip, SourceManualAdjustment:
		return true
	}
	return false
}

// LedgerEntry is a single append-only row in the points ledger. Points are
// signed: awards are positive, redemptions and downward adjustments negative.
type LedgerEntry struct {
	ID             int64
	StudentID      int64
	Points         int
	SourceType     SourceType
	Description    string
	IdempotencyKey string
	Metadata       map[string]interface{}
	CreatedAt      time.Time
}

// Validate checks the fields required before an entry may be appended.
func (e *LedgerEntry) Validate() error {
	if e.StudentID <= 0 {
		return fmt.Errorf("ledger entry requires a student id")
	}
	if !e.SourceType.Valid() {
		return fmt.Errorf("unknown source type %q", e.SourceType)
	}
	if e.IdempotencyKey == "" {
		return fmt.Errorf("ledger entry requires an idempotency key")
	}
	return nil
}
