package models

import "time"

// ReconciliationReport compares the ledger sum against the materialized
// total for one student. A mismatch is a signal for operators; nothing in
// the system corrects totals automatically.
type ReconciliationReport struct {
	StudentID   int64
	LedgerSum   int
	StoredTotal int
	Match       bool
	CheckedAt   time.Time
}
