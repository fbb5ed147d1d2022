package booking

import (
	"context"
	"time"
)

// BookingRepository captures the persistence interactions needed by the engine.
type BookingRepository interface {
	CreateBooking(ctx context.Context, b Booking) (Booking, error)
	GetBooking(ctx context.Context, id string) (Booking, error)
	DeleteBooking(ctx context.Context, id string) error
	// ListOverlapping returns the bookings for a resource whose stored
	// interval overlaps [start, end) under the half-open rule.
	ListOverlapping(ctx context.Context, resourceID string, start, end time.Time) ([]Booking, error)
	// ListRecurringTemplates returns every recurring template row for a
	// resource regardless of its anchor interval.
	ListRecurringTemplates(ctx context.Context, resourceID string) ([]Booking, error)
	// DeleteSeries removes, in one transaction, every row whose id matches
	// bookingID or whose series id matches seriesID, and reports how many
	// rows were removed.
	DeleteSeries(ctx context.Context, bookingID, seriesID string) (int, error)
}

// ExceptionRepository captures persistence for per-occurrence overrides.
type ExceptionRepository interface {
	// UpsertException inserts the exception or replaces the existing row
	// sharing its (booking id, exception date) key.
	UpsertException(ctx context.Context, exc BookingException) (BookingException, error)
	ListExceptions(ctx context.Context, bookingID string) ([]BookingException, error)
	DeleteException(ctx context.Context, id string) error
}

// ResourceCatalog exposes resource lookup operations.
type ResourceCatalog interface {
	GetResource(ctx context.Context, id string) (Resource, error)
}

// ResourceLocker serializes the detect-then-insert sequence per resource.
// Conflict detection is check-then-act: without a lock held across both
// steps, two concurrent requests for the same interval can each observe an
// empty conflict set and both be persisted.
type ResourceLocker interface {
	WithResourceLock(ctx context.Context, resourceID string, fn func(ctx context.Context) error) error
}
