package persistence

import (
	"context"
	"time"
)

// ResourceRepository exposes CRUD operations for resources.
type ResourceRepository interface {
	CreateResource(ctx context.Context, resource Resource) error
	UpdateResource(ctx context.Context, resource Resource) error
	GetResource(ctx context.Context, id string) (Resource, error)
	ListResources(ctx context.Context) ([]Resource, error)
	// DeleteResource soft-deletes the resource, preserving the row for
	// bookings that still reference it.
	DeleteResource(ctx context.Context, id string, deletedAt time.Time) error
}

// BookingRepository stores bookings, including recurring templates and their
// materialized instances.
type BookingRepository interface {
	CreateBooking(ctx context.Context, booking Booking) error
	GetBooking(ctx context.Context, id string) (Booking, error)
	// ListOverlapping returns the bookings for a resource whose stored
	// interval overlaps [start, end) half-open.
	ListOverlapping(ctx context.Context, resourceID string, start, end time.Time) ([]Booking, error)
	// ListRecurringTemplates returns every template row for a resource.
	ListRecurringTemplates(ctx context.Context, resourceID string) ([]Booking, error)
	DeleteBooking(ctx context.Context, id string) error
	// DeleteSeries removes, in one transaction, every booking whose id is
	// bookingID or whose series_id is seriesID, returning the row count.
	DeleteSeries(ctx context.Context, bookingID, seriesID string) (int, error)
}

// ExceptionRepository stores per-date overrides keyed uniquely by
// (booking_id, exception_date).
type ExceptionRepository interface {
	// UpsertException inserts the exception or replaces the row sharing
	// its (booking_id, exception_date) key.
	UpsertException(ctx context.Context, exc BookingException) (BookingException, error)
	ListExceptionsForBooking(ctx context.Context, bookingID string) ([]BookingException, error)
	DeleteException(ctx context.Context, id string) error
}
