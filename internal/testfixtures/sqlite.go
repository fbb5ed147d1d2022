package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/booking-platform/internal/persistence"
	"github.com/example/booking-platform/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite
// database for integration-style persistence tests.
type SQLiteHarness struct {
	Resources  persistence.ResourceRepository
	Bookings   persistence.BookingRepository
	Exceptions persistence.ExceptionRepository
	Locks      *sqlite.ResourceLockManager

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness using a temporary file that is
// migrated automatically. Callers may optionally invoke Close, but the helper
// also registers a cleanup callback with the provided testing.TB.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	dir := tb.TempDir()
	path := filepath.Join(dir, "booking.db")

	pool, err := sqlite.NewConnectionPool(path)
	if err != nil {
		tb.Fatalf("failed to open database: %v", err)
	}

	if err := sqlite.Migrate(context.Background(), pool); err != nil {
		_ = pool.Close()
		tb.Fatalf("failed to migrate database: %v", err)
	}

	harness := &SQLiteHarness{
		Resources:  sqlite.NewResourceRepository(pool),
		Bookings:   sqlite.NewBookingRepository(pool),
		Exceptions: sqlite.NewExceptionRepository(pool),
		Locks:      sqlite.NewResourceLockManager(),
		cleanup: func() {
			_ = pool.Close()
		},
	}
	tb.Cleanup(harness.Close)
	return harness
}
