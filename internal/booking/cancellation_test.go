package booking

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestCoordinator(bookings *stubBookingRepo, exceptions *stubExceptionRepo) *CancellationCoordinator {
	now := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	return NewCancellationCoordinator(bookings, exceptions, sequentialIDs("exc"), fixedNow(now))
}

func TestCancelSingleDeletesPlainBooking(t *testing.T) {
	bookings := newStubBookingRepo()
	coordinator := newTestCoordinator(bookings, newStubExceptionRepo())
	ctx := context.Background()

	start := time.Date(2025, time.January, 20, 14, 0, 0, 0, time.UTC)
	mustCreate(t, bookings, singleBooking("bk-1", start, start.Add(time.Hour)))

	result, err := coordinator.Cancel(ctx, CancelBookingParams{BookingID: "bk-1", Mode: CancelSingle})
	if err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}
	if result.DeletedCount != 1 || result.Mode != CancelSingle {
		t.Fatalf("result = %+v", result)
	}

	if _, err := bookings.GetBooking(ctx, "bk-1"); err == nil {
		t.Fatal("booking still present after single cancellation")
	}
}

func TestCancelSingleRejectsTemplate(t *testing.T) {
	bookings := newStubBookingRepo()
	coordinator := newTestCoordinator(bookings, newStubExceptionRepo())
	ctx := context.Background()

	anchor := time.Date(2025, time.January, 20, 9, 0, 0, 0, time.UTC)
	mustCreate(t, bookings, templateBooking("tmpl-1", "FREQ=DAILY", anchor, anchor.Add(time.Hour)))

	_, err := coordinator.Cancel(ctx, CancelBookingParams{BookingID: "tmpl-1", Mode: CancelSingle})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound for a template", err)
	}

	// The template row must survive the failed attempt.
	if _, err := bookings.GetBooking(ctx, "tmpl-1"); err != nil {
		t.Fatalf("template disappeared: %v", err)
	}
}

func TestCancelSingleMissingBooking(t *testing.T) {
	coordinator := newTestCoordinator(newStubBookingRepo(), newStubExceptionRepo())

	_, err := coordinator.Cancel(context.Background(), CancelBookingParams{BookingID: "ghost", Mode: CancelSingle})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestCancelSeriesDeletesTemplateAndInstances(t *testing.T) {
	bookings := newStubBookingRepo()
	coordinator := newTestCoordinator(bookings, newStubExceptionRepo())
	ctx := context.Background()

	anchor := time.Date(2025, time.January, 20, 9, 0, 0, 0, time.UTC)
	mustCreate(t, bookings, templateBooking("tmpl-1", "FREQ=DAILY", anchor, anchor.Add(time.Hour)))

	seriesID := "tmpl-1"
	parentID := "tmpl-1"
	for i, id := range []string{"inst-1", "inst-2", "inst-3"} {
		day := anchor.AddDate(0, 0, i+1)
		instance := singleBooking(id, day, day.Add(time.Hour))
		instance.SeriesID = &seriesID
		instance.RecurrenceParentID = &parentID
		mustCreate(t, bookings, instance)
	}

	result, err := coordinator.Cancel(ctx, CancelBookingParams{BookingID: "tmpl-1", Mode: CancelSeries})
	if err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}
	if result.DeletedCount != 4 {
		t.Fatalf("deleted %d rows, want 4", result.DeletedCount)
	}

	// Repeating the cancellation reports not found.
	_, err = coordinator.Cancel(ctx, CancelBookingParams{BookingID: "tmpl-1", Mode: CancelSeries})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("repeat cancel error = %v, want ErrNotFound", err)
	}
}

func TestCancelSeriesFromInstanceID(t *testing.T) {
	bookings := newStubBookingRepo()
	coordinator := newTestCoordinator(bookings, newStubExceptionRepo())
	ctx := context.Background()

	anchor := time.Date(2025, time.January, 20, 9, 0, 0, 0, time.UTC)
	mustCreate(t, bookings, templateBooking("tmpl-1", "FREQ=DAILY", anchor, anchor.Add(time.Hour)))

	seriesID := "tmpl-1"
	parentID := "tmpl-1"
	instance := singleBooking("inst-1", anchor.AddDate(0, 0, 1), anchor.AddDate(0, 0, 1).Add(time.Hour))
	instance.SeriesID = &seriesID
	instance.RecurrenceParentID = &parentID
	mustCreate(t, bookings, instance)

	// Cancelling via the instance id resolves the shared series id and
	// removes the template too.
	result, err := coordinator.Cancel(ctx, CancelBookingParams{BookingID: "inst-1", Mode: CancelSeries})
	if err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}
	if result.DeletedCount != 2 {
		t.Fatalf("deleted %d rows, want 2", result.DeletedCount)
	}
}

func TestCancelInstanceRequiresDate(t *testing.T) {
	coordinator := newTestCoordinator(newStubBookingRepo(), newStubExceptionRepo())

	_, err := coordinator.Cancel(context.Background(), CancelBookingParams{BookingID: "tmpl-1", Mode: CancelInstance})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	if _, ok := vErr.FieldErrors["instance_date"]; !ok {
		t.Fatalf("field errors = %v, want instance_date entry", vErr.FieldErrors)
	}
}

func TestCancelInstanceUpsertsCancelledException(t *testing.T) {
	bookings := newStubBookingRepo()
	exceptions := newStubExceptionRepo()
	coordinator := newTestCoordinator(bookings, exceptions)
	ctx := context.Background()

	anchor := time.Date(2025, time.January, 20, 9, 0, 0, 0, time.UTC)
	mustCreate(t, bookings, templateBooking("tmpl-1", "FREQ=DAILY", anchor, anchor.Add(time.Hour)))

	date := time.Date(2025, time.January, 22, 9, 0, 0, 0, time.UTC)
	result, err := coordinator.Cancel(ctx, CancelBookingParams{
		BookingID:    "tmpl-1",
		Mode:         CancelInstance,
		InstanceDate: timePtr(date),
	})
	if err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}
	if result.Exception == nil || result.Exception.ExceptionType != ExceptionCancelled {
		t.Fatalf("result exception = %+v", result.Exception)
	}
	if !result.Exception.ExceptionDate.Equal(dateOf(date)) {
		t.Fatalf("exception date = %v, want %v", result.Exception.ExceptionDate, dateOf(date))
	}

	// Template row is untouched.
	if _, err := bookings.GetBooking(ctx, "tmpl-1"); err != nil {
		t.Fatalf("template disappeared after instance cancel: %v", err)
	}

	// Re-cancelling the same date is an idempotent success.
	if _, err := coordinator.Cancel(ctx, CancelBookingParams{
		BookingID:    "tmpl-1",
		Mode:         CancelInstance,
		InstanceDate: timePtr(date),
	}); err != nil {
		t.Fatalf("repeat instance cancel returned error: %v", err)
	}

	all, err := exceptions.ListExceptions(ctx, "tmpl-1")
	if err != nil {
		t.Fatalf("ListExceptions returned error: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("exception count = %d, want 1", len(all))
	}
}

func TestCancelInstanceRejectsPlainBooking(t *testing.T) {
	bookings := newStubBookingRepo()
	coordinator := newTestCoordinator(bookings, newStubExceptionRepo())
	ctx := context.Background()

	start := time.Date(2025, time.January, 20, 14, 0, 0, 0, time.UTC)
	mustCreate(t, bookings, singleBooking("bk-1", start, start.Add(time.Hour)))

	_, err := coordinator.Cancel(ctx, CancelBookingParams{
		BookingID:    "bk-1",
		Mode:         CancelInstance,
		InstanceDate: timePtr(start),
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound for non-recurring target", err)
	}
}

func TestCancelUnknownMode(t *testing.T) {
	coordinator := newTestCoordinator(newStubBookingRepo(), newStubExceptionRepo())

	_, err := coordinator.Cancel(context.Background(), CancelBookingParams{BookingID: "bk-1", Mode: "bulk"})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
}
