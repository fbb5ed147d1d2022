package booking

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/example/booking-platform/internal/persistence"
	"github.com/example/booking-platform/internal/recurrence"
)

// stubBookingRepo is an in-memory BookingRepository for engine tests.
type stubBookingRepo struct {
	mu       sync.Mutex
	bookings map[string]Booking
}

func newStubBookingRepo() *stubBookingRepo {
	return &stubBookingRepo{bookings: make(map[string]Booking)}
}

func (r *stubBookingRepo) CreateBooking(ctx context.Context, b Booking) (Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[b.ID]; ok {
		return Booking{}, persistence.ErrDuplicate
	}
	r.bookings[b.ID] = b
	return b, nil
}

func (r *stubBookingRepo) GetBooking(ctx context.Context, id string) (Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return Booking{}, persistence.ErrNotFound
	}
	return b, nil
}

func (r *stubBookingRepo) DeleteBooking(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(r.bookings, id)
	return nil
}

func (r *stubBookingRepo) ListOverlapping(ctx context.Context, resourceID string, start, end time.Time) ([]Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Booking
	for _, b := range r.bookings {
		if b.ResourceID != resourceID {
			continue
		}
		if b.Start.Before(end) && b.End.After(start) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (r *stubBookingRepo) ListRecurringTemplates(ctx context.Context, resourceID string) ([]Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Booking
	for _, b := range r.bookings {
		if b.ResourceID == resourceID && b.IsRecurring && b.RecurrenceParentID == nil {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubBookingRepo) DeleteSeries(ctx context.Context, bookingID, seriesID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	deleted := 0
	for id, b := range r.bookings {
		if id == bookingID || (b.SeriesID != nil && *b.SeriesID == seriesID) {
			delete(r.bookings, id)
			deleted++
		}
	}
	return deleted, nil
}

// stubExceptionRepo is an in-memory ExceptionRepository keyed by
// (booking id, exception date).
type stubExceptionRepo struct {
	mu         sync.Mutex
	exceptions map[string]BookingException
}

func newStubExceptionRepo() *stubExceptionRepo {
	return &stubExceptionRepo{exceptions: make(map[string]BookingException)}
}

func exceptionKey(bookingID string, date time.Time) string {
	return fmt.Sprintf("%s|%s", bookingID, date.UTC().Format(time.DateOnly))
}

func (r *stubExceptionRepo) UpsertException(ctx context.Context, exc BookingException) (BookingException, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := exceptionKey(exc.BookingID, exc.ExceptionDate)
	if existing, ok := r.exceptions[key]; ok {
		exc.ID = existing.ID
		exc.CreatedAt = existing.CreatedAt
	}
	r.exceptions[key] = exc
	return exc, nil
}

func (r *stubExceptionRepo) ListExceptions(ctx context.Context, bookingID string) ([]BookingException, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []BookingException
	for _, exc := range r.exceptions {
		if exc.BookingID == bookingID {
			out = append(out, exc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExceptionDate.Before(out[j].ExceptionDate) })
	return out, nil
}

func (r *stubExceptionRepo) DeleteException(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, exc := range r.exceptions {
		if exc.ID == id {
			delete(r.exceptions, key)
			return nil
		}
	}
	return persistence.ErrNotFound
}

// stubResourceCatalog returns a fixed set of resources.
type stubResourceCatalog struct {
	resources map[string]Resource
}

func newStubResourceCatalog(ids ...string) *stubResourceCatalog {
	catalog := &stubResourceCatalog{resources: make(map[string]Resource)}
	for _, id := range ids {
		catalog.resources[id] = Resource{ID: id, Name: "Resource " + id, Active: true}
	}
	return catalog
}

func (c *stubResourceCatalog) GetResource(ctx context.Context, id string) (Resource, error) {
	res, ok := c.resources[id]
	if !ok {
		return Resource{}, persistence.ErrNotFound
	}
	return res, nil
}

// stubLocker records lock usage while running fn inline.
type stubLocker struct {
	mu    sync.Mutex
	calls []string
}

func (l *stubLocker) WithResourceLock(ctx context.Context, resourceID string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	l.calls = append(l.calls, resourceID)
	l.mu.Unlock()
	return fn(ctx)
}

func sequentialIDs(prefix string) func() string {
	var n int
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

var testExpander recurrence.Expander = recurrence.NewEngine()
