package repository

import (
	"database/sql"
	"fmt"

	"mathclash/internal/database"
	"mathclash/internal/models"
)

// StateRepository handles database operations for materialized student reward state
type StateRepository struct {
	db *database.DB
}

// NewStateRepository creates a new state repository
func NewStateRepository(db *database.DB) *StateRepository {
	return &StateRepository{db: db}
}

// Ensure creates the state row for a student if it does not exist yet
func (r *StateRepository) Ensure(q database.DBTX, studentID int64, timezone string) error {
	query := q.GetDialect().InsertIgnore("student_reward_states",
		[]string{"student_id", "timezone"},
		[]string{"student_id"})

	if _, err := q.Exec(query, studentID, timezone); err != nil {
		return fmt.Errorf("failed to ensure reward state: %w", err)
	}
	return nil
}

// Get retrieves a student's reward state
func (r *StateRepository) Get(q database.DBTX, studentID int64) (*models.StudentRewardState, error) {
	query := `
		SELECT student_id, total_points, current_streak_days, longest_streak_days,
		       last_qualifying_date, questions_today, questions_today_date,
		       total_questions_attempted, total_questions_correct, timezone,
		       created_at, updated_at
		FROM student_reward_states
		WHERE student_id = ?
	`

	state := &models.StudentRewardState{}
	err := q.QueryRow(query, studentID).Scan(
		&state.StudentID,
		&state.TotalPoints,
		&state.CurrentStreakDays,
		&state.LongestStreakDays,
		&state.LastQualifyingDate,
		&state.QuestionsToday,
		&state.QuestionsTodayDate,
		&state.TotalQuestionsAttempted,
		&state.TotalQuestionsCorrect,
		&state.Timezone,
		&state.CreatedAt,
		&state.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reward state: %w", err)
	}

	return state, nil
}

// AddPoints moves the stored total by delta as a single atomic increment and
// returns the new total. The total is never read, modified and written back.
func (r *StateRepository) AddPoints(q database.DBTX, studentID int64, delta int) (int, error) {
	query := `
		UPDATE student_reward_states
		SET total_points = total_points + ?, updated_at = CURRENT_TIMESTAMP
		WHERE student_id = ?
	`

	result, err := q.Exec(query, delta, studentID)
	if err != nil {
		return 0, fmt.Errorf("failed to add points: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return 0, fmt.Errorf("no reward state for student %d", studentID)
	}

	var total int
	err = q.QueryRow("SELECT total_points FROM student_reward_states WHERE student_id = ?", studentID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to read new total: %w", err)
	}
	return total, nil
}

// UpdateProgress writes the streak and question-counter fields. The stored
// total is deliberately not part of this statement.
func (r *StateRepository) UpdateProgress(q database.DBTX, state *models.StudentRewardState) error {
	query := `
		UPDATE student_reward_states
		SET current_streak_days = ?, longest_streak_days = ?, last_qualifying_date = ?,
		    questions_today = ?, questions_today_date = ?,
		    total_questions_attempted = ?, total_questions_correct = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE student_id = ?
	`

	_, err := q.Exec(query,
		state.CurrentStreakDays, state.LongestStreakDays, string(state.LastQualifyingDate),
		state.QuestionsToday, string(state.QuestionsTodayDate),
		state.TotalQuestionsAttempted, state.TotalQuestionsCorrect,
		state.StudentID)
	if err != nil {
		return fmt.Errorf("failed to update reward state: %w", err)
	}
	return nil
}

// SetTotal overwrites the stored total. Only the explicit rebuild operation
// may do this; everything else goes through AddPoints.
func (r *StateRepository) SetTotal(q database.DBTX, studentID int64, total int64) error {
	query := `
		UPDATE student_reward_states
		SET total_points = ?, updated_at = CURRENT_TIMESTAMP
		WHERE student_id = ?
	`

	_, err := q.Exec(query, total, studentID)
	if err != nil {
		return fmt.Errorf("failed to set total: %w", err)
	}
	return nil
}

// StudentIDs returns every student with a reward state row
func (r *StateRepository) StudentIDs() ([]int64, error) {
	query := "SELECT student_id FROM student_reward_states ORDER BY student_id"

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query reward states: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan student id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
