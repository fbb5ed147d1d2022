package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/booking-platform/internal/persistence"
)

// CancellationCoordinator implements the three cancellation modes. Each mode
// is terminal on success: single and series delete rows, instance records an
// idempotent cancelled exception against the template.
type CancellationCoordinator struct {
	bookings    BookingRepository
	exceptions  ExceptionRepository
	idGenerator func() string
	now         func() time.Time
}

// NewCancellationCoordinator wires dependencies for cancellation.
func NewCancellationCoordinator(bookings BookingRepository, exceptions ExceptionRepository, idGenerator func() string, now func() time.Time) *CancellationCoordinator {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &CancellationCoordinator{
		bookings:    bookings,
		exceptions:  exceptions,
		idGenerator: idGenerator,
		now:         now,
	}
}

// Cancel dispatches on the requested mode.
func (c *CancellationCoordinator) Cancel(ctx context.Context, params CancelBookingParams) (CancellationResult, error) {
	if c == nil || c.bookings == nil {
		return CancellationResult{}, fmt.Errorf("cancellation coordinator not configured")
	}

	switch params.Mode {
	case CancelSingle:
		return c.cancelSingle(ctx, params.BookingID)
	case CancelSeries:
		return c.cancelSeries(ctx, params.BookingID)
	case CancelInstance:
		return c.cancelInstance(ctx, params.BookingID, params.InstanceDate)
	default:
		vErr := &ValidationError{}
		vErr.add("mode", "mode must be one of single, series, instance")
		return CancellationResult{}, vErr
	}
}

// cancelSingle deletes one non-recurring booking row. Templates and rows
// that do not exist both fail with not-found so the caller cannot silently
// orphan a series.
func (c *CancellationCoordinator) cancelSingle(ctx context.Context, bookingID string) (CancellationResult, error) {
	existing, err := c.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return CancellationResult{}, mapBookingRepoError(err)
	}
	if existing.IsRecurring {
		return CancellationResult{}, fmt.Errorf("%w: booking not found or is part of a series", ErrNotFound)
	}

	if err := c.bookings.DeleteBooking(ctx, bookingID); err != nil {
		return CancellationResult{}, mapBookingRepoError(err)
	}

	return CancellationResult{Mode: CancelSingle, BookingID: bookingID, DeletedCount: 1}, nil
}

// cancelSeries deletes the template and every materialized instance in one
// transaction. When the requested row is already gone, the requested id is
// still tried as a series id so stale references clean up their instances.
func (c *CancellationCoordinator) cancelSeries(ctx context.Context, bookingID string) (CancellationResult, error) {
	seriesID := bookingID
	existing, err := c.bookings.GetBooking(ctx, bookingID)
	if err == nil && existing.SeriesID != nil {
		seriesID = *existing.SeriesID
	} else if err != nil && !isRepoNotFound(err) {
		return CancellationResult{}, mapBookingRepoError(err)
	}

	deleted, err := c.bookings.DeleteSeries(ctx, bookingID, seriesID)
	if err != nil {
		return CancellationResult{}, mapBookingRepoError(err)
	}
	if deleted == 0 {
		return CancellationResult{}, fmt.Errorf("%w: series not found", ErrNotFound)
	}

	return CancellationResult{Mode: CancelSeries, BookingID: bookingID, DeletedCount: deleted}, nil
}

// cancelInstance upserts a cancelled exception for one occurrence date.
// Re-cancelling the same date succeeds without effect.
func (c *CancellationCoordinator) cancelInstance(ctx context.Context, bookingID string, instanceDate *time.Time) (CancellationResult, error) {
	if instanceDate == nil {
		vErr := &ValidationError{}
		vErr.add("instance_date", "instance_date is required for instance cancellation")
		return CancellationResult{}, vErr
	}

	template, err := c.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return CancellationResult{}, mapBookingRepoError(err)
	}
	if !template.IsRecurring {
		return CancellationResult{}, fmt.Errorf("%w: booking is not a recurring template", ErrNotFound)
	}

	createdAt := c.now()
	exc := BookingException{
		ID:            c.idGenerator(),
		BookingID:     template.ID,
		ExceptionDate: dateOf(*instanceDate),
		ExceptionType: ExceptionCancelled,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}

	persisted, err := c.exceptions.UpsertException(ctx, exc)
	if err != nil {
		return CancellationResult{}, mapBookingRepoError(err)
	}

	return CancellationResult{Mode: CancelInstance, BookingID: bookingID, Exception: &persisted}, nil
}

func mapBookingRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return err
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, err)
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		vErr := &ValidationError{}
		vErr.add("resource_id", "referenced records are missing")
		return vErr
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("time", "start must be before end")
		return vErr
	}
	return err
}

func isRepoNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound)
}
