package booking

import (
	"context"
	"fmt"
	"time"
)

// ResolvedOccurrence is the outcome of applying a booking's exceptions to one
// concrete occurrence.
type ResolvedOccurrence struct {
	Cancelled   bool
	Start       time.Time
	End         time.Time
	Title       string
	Description string
}

// ExceptionResolver applies per-date overrides to occurrences of a recurring
// booking. Date matching uses the UTC calendar date of the occurrence start.
type ExceptionResolver struct {
	exceptions ExceptionRepository
}

// NewExceptionResolver wires the exception store.
func NewExceptionResolver(exceptions ExceptionRepository) *ExceptionResolver {
	return &ExceptionResolver{exceptions: exceptions}
}

// IsCancelled reports whether a cancelled exception exists for the occurrence
// starting at occurrenceStart.
func (r *ExceptionResolver) IsCancelled(ctx context.Context, bookingID string, occurrenceStart time.Time) (bool, error) {
	exc, err := r.findForDate(ctx, bookingID, occurrenceStart)
	if err != nil {
		return false, err
	}
	return exc != nil && exc.ExceptionType == ExceptionCancelled, nil
}

// EffectiveInterval returns the occurrence interval after applying a modified
// exception, or the unmodified interval when none exists for that date.
func (r *ExceptionResolver) EffectiveInterval(ctx context.Context, bookingID string, occurrenceStart, occurrenceEnd time.Time) (time.Time, time.Time, error) {
	exc, err := r.findForDate(ctx, bookingID, occurrenceStart)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if exc == nil || exc.ExceptionType != ExceptionModified {
		return occurrenceStart, occurrenceEnd, nil
	}
	return *exc.NewStartTime, *exc.NewEndTime, nil
}

// Resolve applies the exception, if any, for the occurrence's date and
// returns the fully resolved occurrence.
func (r *ExceptionResolver) Resolve(ctx context.Context, b Booking, occurrenceStart, occurrenceEnd time.Time) (ResolvedOccurrence, error) {
	resolved := ResolvedOccurrence{
		Start:       occurrenceStart,
		End:         occurrenceEnd,
		Title:       b.Title,
		Description: b.Description,
	}

	exc, err := r.findForDate(ctx, b.ID, occurrenceStart)
	if err != nil {
		return ResolvedOccurrence{}, err
	}
	if exc == nil {
		return resolved, nil
	}

	switch exc.ExceptionType {
	case ExceptionCancelled:
		resolved.Cancelled = true
	case ExceptionModified:
		resolved.Start = *exc.NewStartTime
		resolved.End = *exc.NewEndTime
		if exc.NewTitle != nil {
			resolved.Title = *exc.NewTitle
		}
		if exc.NewDescription != nil {
			resolved.Description = *exc.NewDescription
		}
	}

	return resolved, nil
}

func (r *ExceptionResolver) findForDate(ctx context.Context, bookingID string, occurrenceStart time.Time) (*BookingException, error) {
	if r == nil || r.exceptions == nil {
		return nil, nil
	}

	exceptions, err := r.exceptions.ListExceptions(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("list exceptions for booking %s: %w", bookingID, err)
	}

	for i := range exceptions {
		if sameDate(exceptions[i].ExceptionDate, occurrenceStart) {
			return &exceptions[i], nil
		}
	}
	return nil, nil
}
