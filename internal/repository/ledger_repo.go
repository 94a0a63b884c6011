package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"mathclash/internal/database"
	"mathclash/internal/models"
)

// LedgerRepository handles database operations for the append-only reward ledger
type LedgerRepository struct {
	db *database.DB
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *database.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Insert appends a ledger entry. Returns false when an entry with the same
// (student_id, idempotency_key) already exists; existing rows are never
// touched. Runs against q so it can join a caller-managed transaction.
func (r *LedgerRepository) Insert(q database.DBTX, entry *models.LedgerEntry) (bool, error) {
	metadata := "{}"
	if len(entry.Metadata) > 0 {
		raw, err := json.Marshal(entry.Metadata)
		if err != nil {
			return false, fmt.Errorf("failed to encode metadata: %w", err)
		}
		metadata = string(raw)
	}

	query := q.GetDialect().InsertIgnore("reward_ledger",
		[]string{"student_id", "points", "source_type", "description", "idempotency_key", "metadata"},
		[]string{"student_id", "idempotency_key"})

	result, err := q.Exec(query,
		entry.StudentID, entry.Points, string(entry.SourceType),
		entry.Description, entry.IdempotencyKey, metadata)
	if err != nil {
		return false, fmt.Errorf("failed to insert ledger entry: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected > 0, nil
}

// GetByKey retrieves the entry recorded under an idempotency key
func (r *LedgerRepository) GetByKey(q database.DBTX, studentID int64, key string) (*models.LedgerEntry, error) {
	query := `
		SELECT id, student_id, points, source_type, description, idempotency_key, metadata, created_at
		FROM reward_ledger
		WHERE student_id = ? AND idempotency_key = ?
	`

	entry := &models.LedgerEntry{}
	var metadata string
	err := q.QueryRow(query, studentID, key).Scan(
		&entry.ID,
		&entry.StudentID,
		&entry.Points,
		&entry.SourceType,
		&entry.Description,
		&entry.IdempotencyKey,
		&metadata,
		&entry.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}

	if metadata != "" && metadata != "{}" {
		if err := json.Unmarshal([]byte(metadata), &entry.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata: %w", err)
		}
	}

	return entry, nil
}

// ListByStudent retrieves a page of entries for a student, newest first
func (r *LedgerRepository) ListByStudent(studentID int64, limit, offset int) ([]models.LedgerEntry, error) {
	query := `
		SELECT id, student_id, points, source_type, description, idempotency_key, metadata, created_at
		FROM reward_ledger
		WHERE student_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.Query(query, studentID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		var entry models.LedgerEntry
		var metadata string
		err := rows.Scan(
			&entry.ID,
			&entry.StudentID,
			&entry.Points,
			&entry.SourceType,
			&entry.Description,
			&entry.IdempotencyKey,
			&metadata,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}

		if metadata != "" && metadata != "{}" {
			if err := json.Unmarshal([]byte(metadata), &entry.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode metadata: %w", err)
			}
		}

		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// CountByStudent returns the number of ledger entries for a student
func (r *LedgerRepository) CountByStudent(studentID int64) (int, error) {
	query := "SELECT COUNT(*) FROM reward_ledger WHERE student_id = ?"
	var count int
	err := r.db.QueryRow(query, studentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}
	return count, nil
}

// SumPoints sums every entry for a student straight off the ledger. This is
// the ground truth the stored total is checked against.
func (r *LedgerRepository) SumPoints(q database.DBTX, studentID int64) (int64, error) {
	query := "SELECT COALESCE(SUM(points), 0) FROM reward_ledger WHERE student_id = ?"
	var sum int64
	err := q.QueryRow(query, studentID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to sum ledger points: %w", err)
	}
	return sum, nil
}

