package service

import (
	"time"

	"github.com/sirupsen/logrus"

	"mathclash/internal/database"
	"mathclash/internal/models"
	"mathclash/internal/repository"
)

// ReconcileService compares ledger sums against stored totals. It only ever
// reports; repairing drift is the explicit rebuild operation's job.
type ReconcileService struct {
	db     *database.DB
	ledger *repository.LedgerRepository
	states *repository.StateRepository
}

// NewReconcileService creates a new reconciliation service
func NewReconcileService(db *database.DB, ledger *repository.LedgerRepository, states *repository.StateRepository) *ReconcileService {
	return &ReconcileService{db: db, ledger: ledger, states: states}
}

// Check reconciles one student's stored total against the ledger
func (s *ReconcileService) Check(studentID int64) (*models.ReconciliationReport, error) {
	sum, err := s.ledger.SumPoints(s.db, studentID)
	if err != nil {
		return nil, err
	}

	var stored int
	state, err := s.states.Get(s.db, studentID)
	if err != nil {
		return nil, err
	}
	if state != nil {
		stored = state.TotalPoints
	}

	report := &models.ReconciliationReport{
		StudentID:   studentID,
		LedgerSum:   int(sum),
		StoredTotal: stored,
		Match:       int(sum) == stored,
		CheckedAt:   time.Now(),
	}

	if !report.Match {
		logrus.WithFields(logrus.Fields{
			"student_id": studentID,
			"ledger_sum": report.LedgerSum,
			"stored":     report.StoredTotal,
		}).Warn("Stored total does not match ledger")
	}

	return report, nil
}

// CheckAll reconciles every student that has a reward state row
func (s *ReconcileService) CheckAll() ([]models.ReconciliationReport, error) {
	ids, err := s.states.StudentIDs()
	if err != nil {
		return nil, err
	}

	reports := make([]models.ReconciliationReport, 0, len(ids))
	for _, id := range ids {
		report, err := s.Check(id)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *report)
	}

	return reports, nil
}
