package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"mathclash/internal/config"
	"mathclash/internal/database"
	"mathclash/internal/models"
	"mathclash/internal/period"
	"mathclash/internal/repository"
)

var (
	ErrInvalidEvent       = errors.New("invalid event")
	ErrNotEligible        = errors.New("grace skip window is closed")
	ErrInsufficientPoints = errors.New("not enough points to cover the deduction")
)

const (
	defaultLogLimit = 100
	maxLogLimit     = 1000
)

// RewardService ingests reward events and serves reward views. Every event
// runs inside one transaction under the student's lock: the ledger append,
// the total increment, the streak update and the month rollup land together
// or not at all.
type RewardService struct {
	cfg        *config.Config
	db         *database.DB
	ledger     *repository.LedgerRepository
	states     *repository.StateRepository
	badges     *repository.BadgeRepository
	stats      *repository.StatsRepository
	streaks    *StreakService
	milestones *MilestoneService
	badgeEval  *BadgeService
	email      *EmailService
	locks      *StudentLocks
}

// NewRewardService creates a new reward service
func NewRewardService(
	cfg *config.Config,
	db *database.DB,
	ledger *repository.LedgerRepository,
	states *repository.StateRepository,
	badges *repository.BadgeRepository,
	stats *repository.StatsRepository,
	streaks *StreakService,
	milestones *MilestoneService,
	badgeEval *BadgeService,
	email *EmailService,
	locks *StudentLocks,
) *RewardService {
	return &RewardService{
		cfg:        cfg,
		db:         db,
		ledger:     ledger,
		states:     states,
		badges:     badges,
		stats:      stats,
		streaks:    streaks,
		milestones: milestones,
		badgeEval:  badgeEval,
		email:      email,
		locks:      locks,
	}
}

// SessionEvent is one completed practice session reported by the app
type SessionEvent struct {
	EventID         string
	OperationType   string
	Attempted       int
	Correct         int
	DurationSeconds int
	At              time.Time
}

// EventResult reports what one ingested event changed
type EventResult struct {
	Duplicate     bool
	PointsAwarded int
	NewTotal      int
	Streak        models.StreakStatus
	BadgesAwarded []models.BadgeAward
	Unlocked      []models.Milestone
}

// GraceResult reports the outcome of a grace skip redemption
type GraceResult struct {
	AlreadyUsed     bool
	PointsSpent     int
	NewTotal        int
	StreakPreserved int
	MissedDay       period.Day
}

// RewardSummary is the student-facing rewards overview
type RewardSummary struct {
	StudentID       int64
	TotalPoints     int
	Streak          models.StreakStatus
	LongestStreak   int
	TotalAttempted  int
	TotalCorrect    int
	Attendance      models.AttendanceSummary
	CanUseGraceSkip bool
	GraceSkipReason string
	GraceSkipCost   int
	Super           models.SuperProgress
	Badges          []models.BadgeAward
	MonthBadges     []models.BadgeAward
	LifetimeBadges  []models.BadgeAward
}

// PointsLog is a page of the ledger plus the running totals check
type PointsLog struct {
	Entries      []models.LedgerEntry
	TotalEntries int
	LedgerSum    int64
	StoredTotal  int64
	Match        bool
}

// RebuildResult reports an explicit total rebuild
type RebuildResult struct {
	StudentID     int64
	PreviousTotal int64
	LedgerSum     int64
	Corrected     bool
}

// RecordDailyLogin awards the daily login bonus. The first login of a local
// day counts; replays on the same day are no-ops.
func (s *RewardService) RecordDailyLogin(studentID int64, when time.Time) (*EventResult, error) {
	if studentID <= 0 {
		return nil, ErrInvalidEvent
	}
	if when.IsZero() {
		when = time.Now()
	}

	unlock := s.locks.Lock(studentID)
	defer unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	state, err := s.ensureState(tx, studentID)
	if err != nil {
		return nil, err
	}

	day := period.DayOf(when, state.Location())
	entry := &models.LedgerEntry{
		StudentID:      studentID,
		Points:         s.cfg.DailyLoginBonus,
		SourceType:     models.SourceDailyLogin,
		Description:    "Daily login bonus",
		IdempotencyKey: "daily_login:" + string(day),
	}

	applied, err := s.ledger.Insert(tx, entry)
	if err != nil {
		return nil, err
	}
	if !applied {
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return &EventResult{
			Duplicate: true,
			NewTotal:  state.TotalPoints,
			Streak:    s.streaks.Status(state, day),
		}, nil
	}

	prevTotal := state.TotalPoints
	newTotal, err := s.states.AddPoints(tx, studentID, entry.Points)
	if err != nil {
		return nil, err
	}

	if err := s.stats.BumpMonth(tx, studentID, day.Month(), 0, 0, entry.Points, 0); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	unlocked := s.milestones.UnlockedBetween(prevTotal, newTotal)
	s.notifyUnlocks(studentID, unlocked, newTotal)

	return &EventResult{
		PointsAwarded: entry.Points,
		NewTotal:      newTotal,
		Streak:        s.streaks.Status(state, day),
		Unlocked:      unlocked,
	}, nil
}

// RecordSession ingests one completed practice session: per-question points,
// the daily streak counter, any streak bonuses that fall due, and lifetime
// badges. Replaying the same event id changes nothing.
func (s *RewardService) RecordSession(studentID int64, ev SessionEvent) (*EventResult, error) {
	if studentID <= 0 || ev.EventID == "" || ev.Attempted <= 0 ||
		ev.Correct < 0 || ev.Correct > ev.Attempted {
		return nil, ErrInvalidEvent
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	unlock := s.locks.Lock(studentID)
	defer unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	state, err := s.ensureState(tx, studentID)
	if err != nil {
		return nil, err
	}

	day := period.DayOf(ev.At, state.Location())
	month := day.Month()

	attemptMeta := map[string]interface{}{"event_id": ev.EventID, "questions": ev.Attempted}
	if ev.OperationType != "" {
		attemptMeta["operation_type"] = ev.OperationType
	}
	if ev.DurationSeconds > 0 {
		attemptMeta["duration_seconds"] = ev.DurationSeconds
	}

	attemptEntry := &models.LedgerEntry{
		StudentID:      studentID,
		Points:         ev.Attempted * s.cfg.PointsPerAttempt,
		SourceType:     models.SourceQuestionAttempted,
		Description:    fmt.Sprintf("Attempted %d questions", ev.Attempted),
		IdempotencyKey: "session:" + ev.EventID + ":attempted",
		Metadata:       attemptMeta,
	}

	applied, err := s.ledger.Insert(tx, attemptEntry)
	if err != nil {
		return nil, err
	}
	if !applied {
		// Replayed session: nothing from this event made it past the
		// ledger's unique key the first time around either, because the
		// whole event commits in one transaction.
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return &EventResult{
			Duplicate: true,
			NewTotal:  state.TotalPoints,
			Streak:    s.streaks.Status(state, day),
		}, nil
	}

	delta := attemptEntry.Points

	if ev.Correct > 0 {
		correctEntry := &models.LedgerEntry{
			StudentID:      studentID,
			Points:         ev.Correct * s.cfg.PointsPerCorrect,
			SourceType:     models.SourceQuestionCorrect,
			Description:    fmt.Sprintf("%d correct answers", ev.Correct),
			IdempotencyKey: "session:" + ev.EventID + ":correct",
			Metadata:       map[string]interface{}{"event_id": ev.EventID, "questions": ev.Correct},
		}
		if _, err := s.ledger.Insert(tx, correctEntry); err != nil {
			return nil, err
		}
		delta += correctEntry.Points
	}

	state.TotalQuestionsAttempted += ev.Attempted
	state.TotalQuestionsCorrect += ev.Correct

	qualifyingBump := 0
	crossed := s.streaks.RecordQuestions(state, day, ev.Attempted)
	if crossed && s.streaks.Advance(state, day) {
		qualifyingBump = 1
		bonus, err := s.awardStreakBonuses(tx, studentID, state, day)
		if err != nil {
			return nil, err
		}
		delta += bonus
	}

	var badgesAwarded []models.BadgeAward
	for _, award := range s.badgeEval.EvaluateLifetime(studentID, state.TotalQuestionsAttempted) {
		inserted, err := s.badges.Insert(tx, &award)
		if err != nil {
			return nil, err
		}
		if !inserted {
			continue
		}
		badgesAwarded = append(badgesAwarded, award)
		points, err := appendBadgePoints(tx, s.ledger, studentID, award)
		if err != nil {
			return nil, err
		}
		delta += points
	}

	prevTotal := state.TotalPoints
	newTotal, err := s.states.AddPoints(tx, studentID, delta)
	if err != nil {
		return nil, err
	}

	if err := s.states.UpdateProgress(tx, state); err != nil {
		return nil, err
	}

	if err := s.stats.BumpMonth(tx, studentID, month, ev.Attempted, ev.Correct, delta, qualifyingBump); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	unlocked := s.milestones.UnlockedBetween(prevTotal, newTotal)
	s.notifyUnlocks(studentID, unlocked, newTotal)

	return &EventResult{
		PointsAwarded: delta,
		NewTotal:      newTotal,
		Streak:        s.streaks.Status(state, day),
		BadgesAwarded: badgesAwarded,
		Unlocked:      unlocked,
	}, nil
}

// RecordAttendance marks a class day. The first mark for a day wins; the
// returned flag reports whether this call recorded anything. Attendance
// carries no points, it only feeds the monthly attendance badges.
func (s *RewardService) RecordAttendance(studentID int64, day period.Day, status models.AttendanceStatus, tshirtWorn bool) (bool, error) {
	if studentID <= 0 || !status.Valid() {
		return false, ErrInvalidEvent
	}

	unlock := s.locks.Lock(studentID)
	defer unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	state, err := s.ensureState(tx, studentID)
	if err != nil {
		return false, err
	}

	if day.IsZero() {
		day = period.DayOf(time.Now(), state.Location())
	}

	applied, err := s.stats.MarkAttendance(tx, studentID, day, status, tshirtWorn)
	if err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return applied, nil
}

// ManualAdjustment appends a signed correction to the ledger. The ledger is
// append-only, so mistakes are corrected by compensating entries rather than
// edits. An empty key gets a generated one; passing the same key twice makes
// the adjustment idempotent.
func (s *RewardService) ManualAdjustment(studentID int64, points int, reason, key string) (*EventResult, error) {
	if studentID <= 0 || points == 0 || reason == "" {
		return nil, ErrInvalidEvent
	}
	if key == "" {
		key = "adjust:" + uuid.NewString()
	}

	unlock := s.locks.Lock(studentID)
	defer unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	state, err := s.ensureState(tx, studentID)
	if err != nil {
		return nil, err
	}

	entry := &models.LedgerEntry{
		StudentID:      studentID,
		Points:         points,
		SourceType:     models.SourceManualAdjustment,
		Description:    reason,
		IdempotencyKey: key,
	}

	applied, err := s.ledger.Insert(tx, entry)
	if err != nil {
		return nil, err
	}
	if !applied {
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return &EventResult{Duplicate: true, NewTotal: state.TotalPoints}, nil
	}

	// A deduction may not push the total below zero. Rolling back here
	// also discards the entry inserted above.
	if points < 0 && state.TotalPoints+points < 0 {
		return nil, ErrInsufficientPoints
	}

	prevTotal := state.TotalPoints
	newTotal, err := s.states.AddPoints(tx, studentID, points)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.stats.BumpMonth(tx, studentID, period.MonthOf(now, state.Location()), 0, 0, points, 0); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"student_id": studentID,
		"points":     points,
		"reason":     reason,
	}).Info("Manual adjustment applied")

	unlocked := s.milestones.UnlockedBetween(prevTotal, newTotal)
	s.notifyUnlocks(studentID, unlocked, newTotal)

	return &EventResult{
		PointsAwarded: points,
		NewTotal:      newTotal,
		Unlocked:      unlocked,
	}, nil
}

// RedeemGraceSkip spends points to cover a single missed day so the stored
// streak survives. Only valid while exactly one day has been missed; the
// deduction and the rescue commit together. Replays after success return
// the original outcome without deducting again.
func (s *RewardService) RedeemGraceSkip(studentID int64) (*GraceResult, error) {
	if studentID <= 0 {
		return nil, ErrInvalidEvent
	}

	unlock := s.locks.Lock(studentID)
	defer unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	state, err := s.states.Get(tx, studentID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, ErrNotEligible
	}

	today := period.DayOf(time.Now(), state.Location())
	missedDay, eligible := s.streaks.GraceEligible(state, today)
	if !eligible {
		if result, err := s.priorGraceResult(tx, state, today); result != nil || err != nil {
			return result, err
		}
		return nil, ErrNotEligible
	}

	if state.TotalPoints < s.cfg.GraceSkipCost {
		return nil, ErrInsufficientPoints
	}

	entry := &models.LedgerEntry{
		StudentID:      studentID,
		Points:         -s.cfg.GraceSkipCost,
		SourceType:     models.SourceGraceSkip,
		Description:    "Grace skip to preserve streak",
		IdempotencyKey: "grace:" + string(missedDay),
		Metadata:       map[string]interface{}{"missed_day": string(missedDay)},
	}

	applied, err := s.ledger.Insert(tx, entry)
	if err != nil {
		return nil, err
	}
	if !applied {
		// The key can only exist if a previous redemption covered this
		// day, which would have moved the state out of eligibility.
		return nil, ErrNotEligible
	}

	newTotal, err := s.states.AddPoints(tx, studentID, entry.Points)
	if err != nil {
		return nil, err
	}

	s.streaks.ApplyGrace(state, missedDay)
	if err := s.states.UpdateProgress(tx, state); err != nil {
		return nil, err
	}

	if err := s.stats.BumpMonth(tx, studentID, today.Month(), 0, 0, entry.Points, 0); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"student_id": studentID,
		"missed_day": missedDay,
		"preserved":  state.CurrentStreakDays,
	}).Info("Grace skip redeemed")

	return &GraceResult{
		PointsSpent:     s.cfg.GraceSkipCost,
		NewTotal:        newTotal,
		StreakPreserved: state.CurrentStreakDays,
		MissedDay:       missedDay,
	}, nil
}

// priorGraceResult detects a replayed redemption: if the streak is active
// again because a grace entry already covered the missed day, the original
// outcome is returned instead of an eligibility error.
func (s *RewardService) priorGraceResult(q database.DBTX, state *models.StudentRewardState, today period.Day) (*GraceResult, error) {
	status := s.streaks.Status(state, today)
	if status.State != models.StreakActive {
		return nil, nil
	}

	for _, day := range []period.Day{state.LastQualifyingDate, state.LastQualifyingDate.Prev()} {
		entry, err := s.ledger.GetByKey(q, state.StudentID, "grace:"+string(day))
		if err != nil {
			return nil, err
		}
		if entry == nil {
			continue
		}
		return &GraceResult{
			AlreadyUsed:     true,
			PointsSpent:     -entry.Points,
			NewTotal:        state.TotalPoints,
			StreakPreserved: state.CurrentStreakDays,
			MissedDay:       day,
		}, nil
	}
	return nil, nil
}

// GetSummary assembles the student's rewards overview
func (s *RewardService) GetSummary(studentID int64) (*RewardSummary, error) {
	state, err := s.states.Get(s.db, studentID)
	if err != nil {
		return nil, err
	}

	summary := &RewardSummary{
		StudentID:      studentID,
		GraceSkipCost:  s.cfg.GraceSkipCost,
		Badges:         []models.BadgeAward{},
		MonthBadges:    []models.BadgeAward{},
		LifetimeBadges: []models.BadgeAward{},
	}

	if state == nil {
		summary.Streak = models.StreakStatus{State: models.StreakBroken}
		summary.Super = s.milestones.Progress(0)
		summary.GraceSkipReason = "No streak to preserve yet"
		return summary, nil
	}

	today := period.DayOf(time.Now(), state.Location())
	month := today.Month()

	summary.TotalPoints = state.TotalPoints
	summary.Streak = s.streaks.Status(state, today)
	summary.LongestStreak = state.LongestStreakDays
	summary.TotalAttempted = state.TotalQuestionsAttempted
	summary.TotalCorrect = state.TotalQuestionsCorrect
	summary.Super = s.milestones.Progress(state.TotalPoints)

	attendance, err := s.stats.AttendanceSummary(s.db, studentID, month)
	if err != nil {
		return nil, err
	}
	summary.Attendance = *attendance

	awards, err := s.badges.ListByStudent(studentID)
	if err != nil {
		return nil, err
	}
	summary.Badges = awards
	for _, award := range awards {
		switch {
		case award.Lifetime:
			summary.LifetimeBadges = append(summary.LifetimeBadges, award)
		case award.PeriodKey == string(month):
			summary.MonthBadges = append(summary.MonthBadges, award)
		}
	}

	if _, eligible := s.streaks.GraceEligible(state, today); !eligible {
		switch {
		case summary.Streak.State == models.StreakActive:
			summary.GraceSkipReason = "Streak is active, nothing to skip"
		case state.CurrentStreakDays == 0:
			summary.GraceSkipReason = "No streak to preserve yet"
		default:
			summary.GraceSkipReason = "More than one day missed, streak cannot be rescued"
		}
	} else if state.TotalPoints < s.cfg.GraceSkipCost {
		summary.GraceSkipReason = fmt.Sprintf("Needs %d points", s.cfg.GraceSkipCost)
	} else {
		summary.CanUseGraceSkip = true
	}

	return summary, nil
}

// ListBadges returns every badge award the student holds.
func (s *RewardService) ListBadges(studentID int64) ([]models.BadgeAward, error) {
	if studentID <= 0 {
		return nil, ErrInvalidEvent
	}
	return s.badges.ListByStudent(studentID)
}

// GetPointsLog returns a page of the student's ledger together with the
// sum-versus-stored check, so every page carries its own consistency proof.
func (s *RewardService) GetPointsLog(studentID int64, limit, offset int) (*PointsLog, error) {
	if limit <= 0 {
		limit = defaultLogLimit
	}
	if limit > maxLogLimit {
		limit = maxLogLimit
	}
	if offset < 0 {
		offset = 0
	}

	entries, err := s.ledger.ListByStudent(studentID, limit, offset)
	if err != nil {
		return nil, err
	}

	count, err := s.ledger.CountByStudent(studentID)
	if err != nil {
		return nil, err
	}

	sum, err := s.ledger.SumPoints(s.db, studentID)
	if err != nil {
		return nil, err
	}

	var stored int64
	state, err := s.states.Get(s.db, studentID)
	if err != nil {
		return nil, err
	}
	if state != nil {
		stored = int64(state.TotalPoints)
	}

	return &PointsLog{
		Entries:      entries,
		TotalEntries: count,
		LedgerSum:    sum,
		StoredTotal:  stored,
		Match:        sum == stored,
	}, nil
}

// RebuildTotal replays the ledger sum into the stored total. This is the
// recovery path for a drifted total and the only operation allowed to write
// the total wholesale.
func (s *RewardService) RebuildTotal(studentID int64) (*RebuildResult, error) {
	if studentID <= 0 {
		return nil, ErrInvalidEvent
	}

	unlock := s.locks.Lock(studentID)
	defer unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	state, err := s.ensureState(tx, studentID)
	if err != nil {
		return nil, err
	}

	sum, err := s.ledger.SumPoints(tx, studentID)
	if err != nil {
		return nil, err
	}

	if err := s.states.SetTotal(tx, studentID, sum); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	previous := int64(state.TotalPoints)
	corrected := previous != sum
	if corrected {
		logrus.WithFields(logrus.Fields{
			"student_id": studentID,
			"stored":     previous,
			"ledger_sum": sum,
		}).Warn("Stored total rebuilt from ledger")
	}

	return &RebuildResult{
		StudentID:     studentID,
		PreviousTotal: previous,
		LedgerSum:     sum,
		Corrected:     corrected,
	}, nil
}

// ensureState creates the state row on first activity and loads it
func (s *RewardService) ensureState(tx *database.Tx, studentID int64) (*models.StudentRewardState, error) {
	if err := s.states.Ensure(tx, studentID, s.cfg.DefaultTimezone); err != nil {
		return nil, err
	}
	state, err := s.states.Get(tx, studentID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, fmt.Errorf("reward state missing for student %d", studentID)
	}
	return state, nil
}

// awardStreakBonuses appends whatever bonuses the new run length has earned
// and returns the points added. The full-month bonus lands live when the
// closing day of the month qualifies and every day of it was covered.
func (s *RewardService) awardStreakBonuses(tx *database.Tx, studentID int64, state *models.StudentRewardState, day period.Day) (int, error) {
	type bonus struct {
		points      int
		description string
		key         string
	}

	var due []bonus
	switch state.CurrentStreakDays {
	case 7:
		due = append(due, bonus{s.cfg.StreakBonus7, "7-day streak bonus", fmt.Sprintf("streak:7:%s", day)})
	case 14:
		due = append(due, bonus{s.cfg.StreakBonus14, "14-day streak bonus", fmt.Sprintf("streak:14:%s", day)})
	case 21:
		due = append(due, bonus{s.cfg.StreakBonus21, "21-day streak bonus", fmt.Sprintf("streak:21:%s", day)})
	}

	month := day.Month()
	if day.DayOfMonth() == month.Days() && state.CurrentStreakDays >= month.Days() {
		due = append(due, bonus{s.cfg.StreakBonusMonth, "Full month streak bonus", fmt.Sprintf("streak:month:%s", month)})
	}

	total := 0
	for _, b := range due {
		if b.points == 0 {
			continue
		}
		entry := &models.LedgerEntry{
			StudentID:      studentID,
			Points:         b.points,
			SourceType:     models.SourceStreakBonus,
			Description:    b.description,
			IdempotencyKey: b.key,
			Metadata:       map[string]interface{}{"streak_days": state.CurrentStreakDays},
		}
		applied, err := s.ledger.Insert(tx, entry)
		if err != nil {
			return 0, err
		}
		if applied {
			total += b.points
		}
	}
	return total, nil
}

// appendBadgePoints records the ledger entry for a badge's point value.
// Lifetime badges use "lifetime" as the period part of the key so the key
// stays unique forever.
func appendBadgePoints(q database.DBTX, ledger *repository.LedgerRepository, studentID int64, award models.BadgeAward) (int, error) {
	if award.Points == 0 {
		return 0, nil
	}

	periodPart := award.PeriodKey
	if periodPart == "" {
		periodPart = "lifetime"
	}

	entry := &models.LedgerEntry{
		StudentID:      studentID,
		Points:         award.Points,
		SourceType:     models.SourceBadgeAward,
		Description:    "Badge: " + award.BadgeName,
		IdempotencyKey: fmt.Sprintf("badge:%s:%s", award.BadgeType, periodPart),
		Metadata:       map[string]interface{}{"badge_type": string(award.BadgeType)},
	}

	applied, err := ledger.Insert(q, entry)
	if err != nil {
		return 0, err
	}
	if !applied {
		return 0, nil
	}
	return award.Points, nil
}

// notifyUnlocks sends milestone emails after a successful commit
func (s *RewardService) notifyUnlocks(studentID int64, unlocked []models.Milestone, newTotal int) {
	if s.email == nil {
		return
	}
	for _, m := range unlocked {
		if err := s.email.SendMilestoneUnlocked(studentID, m, newTotal); err != nil {
			logrus.WithError(err).WithField("student_id", studentID).Warn("Failed to send milestone email")
		}
	}
}
