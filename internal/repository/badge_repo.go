package repository

import (
	"fmt"

	"mathclash/internal/database"
	"mathclash/internal/models"
)

// BadgeRepository handles database operations for badge awards
type BadgeRepository struct {
	db *database.DB
}

// NewBadgeRepository creates a new badge repository
func NewBadgeRepository(db *database.DB) *BadgeRepository {
	return &BadgeRepository{db: db}
}

// Insert records a badge award. Returns false when the student already holds
// the badge for that period (or ever, for lifetime badges with an empty
// period key); awards are never duplicated.
func (r *BadgeRepository) Insert(q database.DBTX, award *models.BadgeAward) (bool, error) {
	query := q.GetDialect().InsertIgnore("badge_awards",
		[]string{"student_id", "badge_type", "badge_name", "category", "lifetime", "period_key", "points"},
		[]string{"student_id", "badge_type", "period_key"})

	result, err := q.Exec(query,
		award.StudentID, string(award.BadgeType), award.BadgeName,
		string(award.Category), award.Lifetime, award.PeriodKey, award.Points)
	if err != nil {
		return false, fmt.Errorf("failed to insert badge award: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected > 0, nil
}

// ListByStudent retrieves every badge a student has earned, newest first
func (r *BadgeRepository) ListByStudent(studentID int64) ([]models.BadgeAward, error) {
	query := `
		SELECT id, student_id, badge_type, badge_name, category, lifetime, period_key, points, earned_at
		FROM badge_awards
		WHERE student_id = ?
		ORDER BY earned_at DESC, id DESC
	`

	rows, err := r.db.Query(query, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query badge awards: %w", err)
	}
	defer rows.Close()

	var awards []models.BadgeAward
	for rows.Next() {
		var award models.BadgeAward
		err := rows.Scan(
			&award.ID,
			&award.StudentID,
			&award.BadgeType,
			&award.BadgeName,
			&award.Category,
			&award.Lifetime,
			&award.PeriodKey,
			&award.Points,
			&award.EarnedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan badge award: %w", err)
		}
		awards = append(awards, award)
	}

	return awards, rows.Err()
}

// InsertEvaluationRun records an audit row for a monthly evaluation pass
func (r *BadgeRepository) InsertEvaluationRun(q database.DBTX, run *models.EvaluationRun) error {
	query := `
		INSERT INTO evaluation_runs (run_id, month_key, students_evaluated, badges_awarded)
		VALUES (?, ?, ?, ?)
	`

	id, err := q.ExecReturningID(query, run.RunID, string(run.MonthKey), run.StudentsEvaluated, run.BadgesAwarded)
	if err != nil {
		return fmt.Errorf("failed to insert evaluation run: %w", err)
	}
	run.ID = id
	return nil
}
