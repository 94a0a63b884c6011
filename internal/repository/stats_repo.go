package repository

import (
	"database/sql"
	"fmt"

	"mathclash/internal/database"
	"mathclash/internal/models"
	"mathclash/internal/period"
)

// StatsRepository handles database operations for monthly rollups and attendance
type StatsRepository struct {
	db *database.DB
}

// NewStatsRepository creates a new stats repository
func NewStatsRepository(db *database.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// BumpMonth folds event deltas into the student's rollup row for the month,
// creating the row on first touch. Deltas may be negative (redemptions,
// downward adjustments) so points_earned tracks the net month movement.
func (r *StatsRepository) BumpMonth(q database.DBTX, studentID int64, month period.Month, attempted, correct, points, qualifyingDays int) error {
	query := q.GetDialect().UpsertAdd("student_month_stats",
		[]string{"student_id", "month_key"},
		[]string{"questions_attempted", "questions_correct", "points_earned", "qualifying_days"})

	_, err := q.Exec(query, studentID, string(month), attempted, correct, points, qualifyingDays)
	if err != nil {
		return fmt.Errorf("failed to bump month stats: %w", err)
	}
	return nil
}

// GetMonth retrieves a student's rollup for one month
func (r *StatsRepository) GetMonth(q database.DBTX, studentID int64, month period.Month) (*models.MonthStats, error) {
	query := `
		SELECT student_id, month_key, questions_attempted, questions_correct, points_earned, qualifying_days
		FROM student_month_stats
		WHERE student_id = ? AND month_key = ?
	`

	stats := &models.MonthStats{}
	err := q.QueryRow(query, studentID, string(month)).Scan(
		&stats.StudentID,
		&stats.MonthKey,
		&stats.QuestionsAttempted,
		&stats.QuestionsCorrect,
		&stats.PointsEarned,
		&stats.QualifyingDays,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get month stats: %w", err)
	}

	return stats, nil
}

// MarkAttendance records a student's attendance for a class day. The first
// mark for a (student, day) wins; later marks are ignored and reported back
// through the false return.
func (r *StatsRepository) MarkAttendance(q database.DBTX, studentID int64, day period.Day, status models.AttendanceStatus, tshirtWorn bool) (bool, error) {
	query := q.GetDialect().InsertIgnore("attendance_marks",
		[]string{"student_id", "day", "status", "tshirt_worn"},
		[]string{"student_id", "day"})

	result, err := q.Exec(query, studentID, string(day), string(status), tshirtWorn)
	if err != nil {
		return false, fmt.Errorf("failed to mark attendance: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected > 0, nil
}

// AttendanceSummary builds a student's attendance picture for one month.
// Classes held counts the distinct days any student was marked, so students
// who joined mid-month are measured against the real class calendar.
func (r *StatsRepository) AttendanceSummary(q database.DBTX, studentID int64, month period.Month) (*models.AttendanceSummary, error) {
	from := string(month.First())
	to := string(month.NextFirst())

	summary := &models.AttendanceSummary{}

	query := "SELECT COUNT(DISTINCT day) FROM attendance_marks WHERE day >= ? AND day < ?"
	if err := q.QueryRow(query, from, to).Scan(&summary.ClassesHeld); err != nil {
		return nil, fmt.Errorf("failed to count classes held: %w", err)
	}

	query = "SELECT COUNT(*) FROM attendance_marks WHERE student_id = ? AND status = ? AND day >= ? AND day < ?"
	if err := q.QueryRow(query, studentID, string(models.AttendancePresent), from, to).Scan(&summary.ClassesAttended); err != nil {
		return nil, fmt.Errorf("failed to count classes attended: %w", err)
	}

	query = "SELECT COUNT(*) FROM attendance_marks WHERE student_id = ? AND status = ? AND tshirt_worn = ? AND day >= ? AND day < ?"
	if err := q.QueryRow(query, studentID, string(models.AttendancePresent), true, from, to).Scan(&summary.TShirtDays); err != nil {
		return nil, fmt.Errorf("failed to count t-shirt days: %w", err)
	}

	return summary, nil
}

// TopByMonthPoints returns the month's leaderboard, highest net points first.
// Ties break toward the lower student id so rankings are stable.
func (r *StatsRepository) TopByMonthPoints(month period.Month, limit int) ([]models.LeaderboardRow, error) {
	query := `
		SELECT student_id, points_earned
		FROM student_month_stats
		WHERE month_key = ?
		ORDER BY points_earned DESC, student_id ASC
		LIMIT ?
	`

	rows, err := r.db.Query(query, string(month), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var board []models.LeaderboardRow
	for rows.Next() {
		var row models.LeaderboardRow
		if err := rows.Scan(&row.StudentID, &row.Points); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		board = append(board, row)
	}

	return board, rows.Err()
}

// ActiveStudents returns every student with activity recorded in the month
func (r *StatsRepository) ActiveStudents(month period.Month) ([]int64, error) {
	query := "SELECT student_id FROM student_month_stats WHERE month_key = ? ORDER BY student_id"

	rows, err := r.db.Query(query, string(month))
	if err != nil {
		return nil, fmt.Errorf("failed to query active students: %w", err)
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
