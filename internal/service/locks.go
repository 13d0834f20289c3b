package service

import (
	"fmt"
	"sync"
	"time"

	"stolik/internal/models"
)

// slotLocks hands out one mutex per (resource, date) partition so admission
// decisions for the same slot serialize while unrelated bookings proceed in
// parallel. Entries are reference counted and dropped when idle, so the map
// does not grow with the booking history.
type slotLocks struct {
	mu    sync.Mutex
	locks map[string]*slotLock
}

type slotLock struct {
	mu   sync.Mutex
	refs int
}

func newSlotLocks() *slotLocks {
	return &slotLocks{locks: make(map[string]*slotLock)}
}

func slotKey(resourceID int64, date time.Time) string {
	return fmt.Sprintf("%d:%s", resourceID, date.Format(models.DateLayout))
}

// acquire blocks until the partition lock is held and returns the release
// function. The release must be called exactly once.
func (l *slotLocks) acquire(key string) func() {
	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &slotLock{}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}
