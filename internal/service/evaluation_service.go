package service

import (
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

// EvaluationService runs the monthly badge pass over a closed month. It
// assembles one MonthSnapshot per active student from the rollup tables and
// hands it to the badge evaluator; each student's awards commit in their own
// transaction, so a re-run picks up exactly where a failed run stopped.
type EvaluationService struct {
	cfg        *config.Config
	db         *database.DB
	ledger     *repository.LedgerRepository
	states     *repository.StateRepository
	badges     *repository.BadgeRepository
	stats      *repository.StatsRepository
	badgeEval  *BadgeService
	milestones *MilestoneService
	email      *EmailService
	locks      *StudentLocks
}

// NewEvaluationService creates a new evaluation service
func NewEvaluationService(
	cfg *config.Config,
	db *database.DB,
	ledger *repository.LedgerRepository,
	states *repository.StateRepository,
	badges *repository.BadgeRepository,
	stats *repository.StatsRepository,
	badgeEval *BadgeService,
	milestones *MilestoneService,
	email *EmailService,
	locks *StudentLocks,
) *EvaluationService {
	return &EvaluationService{
		cfg:        cfg,
		db:         db,
		ledger:     ledger,
		states:     states,
		badges:     badges,
		stats:      stats,
		badgeEval:  badgeEval,
		milestones: milestones,
		email:      email,
		locks:      locks,
	}
}

// EvaluationSummary reports one monthly evaluation pass
type EvaluationSummary struct {
	RunID             string
	Month             period.Month
	StudentsEvaluated int
	BadgesAwarded     int
	Awards            []models.BadgeAward
}

// RunMonthly evaluates monthly badges for every student active in the month.
// Safe to run repeatedly: badges already held are skipped by the store's
// uniqueness, so a second pass awards nothing new.
func (s *EvaluationService) RunMonthly(month period.Month) (*EvaluationSummary, error) {
	students, err := s.stats.ActiveStudents(month)
	if err != nil {
		return nil, err
	}

	board, err := s.stats.TopByMonthPoints(month, 3)
	if err != nil {
		return nil, err
	}
	ranks := make(map[int64]int, len(board))
	for i, row := range board {
		ranks[row.StudentID] = i + 1
	}

	summary := &EvaluationSummary{
		RunID: uuid.NewString(),
		Month: month,
	}

	for _, studentID := range students {
		awards, err := s.evaluateStudent(studentID, month, ranks[studentID])
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate student %d: %w", studentID, err)
		}
		summary.StudentsEvaluated++
		summary.BadgesAwarded += len(awards)
		summary.Awards = append(summary.Awards, awards...)
	}

	run := &models.EvaluationRun{
		RunID:             summary.RunID,
		MonthKey:          month,
		StudentsEvaluated: summary.StudentsEvaluated,
		BadgesAwarded:     summary.BadgesAwarded,
	}
	if err := s.badges.InsertEvaluationRun(s.db, run); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"run_id":   summary.RunID,
		"month":    month,
		"students": summary.StudentsEvaluated,
		"badges":   summary.BadgesAwarded,
	}).Info("Monthly badge evaluation finished")

	if s.email != nil {
		if err := s.email.SendEvaluationSummary(summary.Month, summary.StudentsEvaluated, summary.BadgesAwarded); err != nil {
			logrus.WithError(err).Warn("Failed to send evaluation summary email")
		}
	}

	return summary, nil
}

// evaluateStudent assembles the student's snapshot and commits any earned
// badges plus their point entries in one transaction.
func (s *EvaluationService) evaluateStudent(studentID int64, month period.Month, rank int) ([]models.BadgeAward, error) {
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
		return nil, fmt.Errorf("reward state missing for student %d", studentID)
	}

	monthStats, err := s.stats.GetMonth(tx, studentID, month)
	if err != nil {
		return nil, err
	}
	if monthStats == nil {
		return nil, nil
	}

	prevStats, err := s.stats.GetMonth(tx, studentID, month.Prev())
	if err != nil {
		return nil, err
	}

	attendance, err := s.stats.AttendanceSummary(tx, studentID, month)
	if err != nil {
		return nil, err
	}

	snapshot := &models.MonthSnapshot{
		Month:           month,
		Stats:           *monthStats,
		PrevStats:       prevStats,
		Attendance:      *attendance,
		LeaderboardRank: rank,
		DaysInMonth:     month.Days(),
	}

	var awarded []models.BadgeAward
	delta := 0
	for _, award := range s.badgeEval.EvaluateMonthly(studentID, snapshot) {
		inserted, err := s.badges.Insert(tx, &award)
		if err != nil {
			return nil, err
		}
		if !inserted {
			continue
		}
		awarded = append(awarded, award)

		points, err := appendBadgePoints(tx, s.ledger, studentID, award)
		if err != nil {
			return nil, err
		}
		delta += points
	}

	prevTotal := state.TotalPoints
	newTotal := prevTotal
	if delta != 0 {
		newTotal, err = s.states.AddPoints(tx, studentID, delta)
		if err != nil {
			return nil, err
		}
		// Badge points land in the month they are credited, which for a
		// closed month's evaluation is usually the following one.
		creditMonth := period.MonthOf(time.Now(), state.Location())
		if err := s.stats.BumpMonth(tx, studentID, creditMonth, 0, 0, delta, 0); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if s.email != nil {
		for _, m := range s.milestones.UnlockedBetween(prevTotal, newTotal) {
			if err := s.email.SendMilestoneUnlocked(studentID, m, newTotal); err != nil {
				logrus.WithError(err).WithField("student_id", studentID).Warn("Failed to send milestone email")
			}
		}
	}

	return awarded, nil
}
