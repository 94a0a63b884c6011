package service

import (
	"sync"
	"time"
)

// StudentLocks hands out one mutex per student so that event writes for the
// same student run strictly one at a time while different students proceed
// in parallel. Reads never take these locks.
type StudentLocks struct {
	entries map[int64]*studentLock
	mu      sync.Mutex
}

type studentLock struct {
	mu       sync.Mutex
	lastUsed time.Time
}

// NewStudentLocks creates the lock table and starts its cleanup goroutine
func NewStudentLocks() *StudentLocks {
	l := &StudentLocks{
		entries: make(map[int64]*studentLock),
	}
	go l.cleanupEntries()
	return l
}

// Lock acquires the mutex for a student and returns the matching unlock
func (l *StudentLocks) Lock(studentID int64) func() {
	l.mu.Lock()
	e, exists := l.entries[studentID]
	if !exists {
		e = &studentLock{}
		l.entries[studentID] = e
	}
	e.lastUsed = time.Now()
	l.mu.Unlock()

	e.mu.Lock()
	return e.mu.Unlock
}

// cleanupEntries removes idle entries to prevent the table growing forever.
// An entry a waiter is blocked on always has a fresh lastUsed stamp, so only
// genuinely idle entries are dropped.
func (l *StudentLocks) cleanupEntries() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		l.mu.Lock()
		now := time.Now()
		for id, e := range l.entries {
			if now.Sub(e.lastUsed) > 1*time.Hour && e.mu.TryLock() {
				delete(l.entries, id)
				e.mu.Unlock()
			}
		}
		l.mu.Unlock()
	}
}
