package sqlite

import (
	"context"
	"sync"
)

// ResourceLockManager serializes detect-then-insert sequences per resource
// with in-process mutexes. The contract holds for a single-writer deployment:
// one process owns the database file, so holding the mutex across conflict
// detection and insertion is sufficient to prevent double-booking.
type ResourceLockManager struct {
	locks sync.Map // resourceID -> *sync.Mutex
}

// NewResourceLockManager creates a lock manager.
func NewResourceLockManager() *ResourceLockManager {
	return &ResourceLockManager{}
}

// WithResourceLock runs fn while holding the mutex for resourceID. The lock
// is acquired before fn starts; a context already cancelled is honoured
// without running fn.
func (m *ResourceLockManager) WithResourceLock(ctx context.Context, resourceID string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	value, _ := m.locks.LoadOrStore(resourceID, &sync.Mutex{})
	mu := value.(*sync.Mutex)

	mu.Lock()
	defer mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}
