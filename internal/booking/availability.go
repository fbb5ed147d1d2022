package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/booking-platform/internal/persistence"
	"github.com/example/booking-platform/internal/recurrence"
)

const (
	businessOpenHour  = 9
	businessCloseHour = 17
	slotStep          = 30 * time.Minute

	// suggestHorizonDays bounds how far SuggestNext searches forward.
	suggestHorizonDays = 14

	businessDayHours = businessCloseHour - businessOpenHour
)

// AvailabilityPlanner derives free slots and utilization figures from the
// conflict detector. Business hours are fixed at 09:00 to 17:00 UTC on
// weekdays.
type AvailabilityPlanner struct {
	bookings BookingRepository
	detector *ConflictDetector
	resolver *ExceptionResolver
	expander recurrence.Expander
}

// NewAvailabilityPlanner wires dependencies for availability queries.
func NewAvailabilityPlanner(bookings BookingRepository, detector *ConflictDetector, resolver *ExceptionResolver, expander recurrence.Expander) *AvailabilityPlanner {
	return &AvailabilityPlanner{
		bookings: bookings,
		detector: detector,
		resolver: resolver,
		expander: expander,
	}
}

// ListAvailable returns every free slot of the given duration within the
// range, generated on 30-minute boundaries inside business hours, in
// chronological order.
func (p *AvailabilityPlanner) ListAvailable(ctx context.Context, resourceID string, rangeStart, rangeEnd time.Time, duration time.Duration) ([]Slot, error) {
	if p == nil || p.detector == nil {
		return nil, fmt.Errorf("availability planner not configured")
	}

	slots := make([]Slot, 0)
	for day := dateOf(rangeStart); !day.After(dateOf(rangeEnd)); day = day.AddDate(0, 0, 1) {
		if !isBusinessDay(day) {
			continue
		}

		open := day.Add(businessOpenHour * time.Hour)
		close := day.Add(businessCloseHour * time.Hour)

		for start := open; !start.Add(duration).After(close); start = start.Add(slotStep) {
			end := start.Add(duration)
			free, err := p.detector.IsSlotAvailable(ctx, resourceID, start, end)
			if err != nil {
				return nil, err
			}
			if free {
				slots = append(slots, Slot{Start: start, End: end})
			}
		}
	}

	return slots, nil
}

// SuggestNext searches forward from the preferred interval in 30-minute
// steps, skipping weekends, and returns up to count free slots of the same
// duration within the next 14 days.
func (p *AvailabilityPlanner) SuggestNext(ctx context.Context, resourceID string, preferredStart, preferredEnd time.Time, count int) ([]Slot, error) {
	if p == nil || p.detector == nil {
		return nil, fmt.Errorf("availability planner not configured")
	}
	if count <= 0 {
		return nil, nil
	}

	duration := preferredEnd.Sub(preferredStart)
	horizon := preferredStart.AddDate(0, 0, suggestHorizonDays)

	slots := make([]Slot, 0, count)
	for start := alignToBusinessHours(preferredStart); start.Before(horizon); start = alignToBusinessHours(start.Add(slotStep)) {
		end := start.Add(duration)
		if end.After(dateOf(start).Add(businessCloseHour * time.Hour)) {
			// The slot would run past close; alignment moves the cursor to
			// the next business morning on the following iteration.
			continue
		}

		free, err := p.detector.IsSlotAvailable(ctx, resourceID, start, end)
		if err != nil {
			return nil, err
		}
		if free {
			slots = append(slots, Slot{Start: start, End: end})
			if len(slots) == count {
				break
			}
		}
	}

	return slots, nil
}

// Summarize computes business-hour capacity, booked hours, and the busy and
// available day lists for the range. Rates are clamped to [0, 100] and
// available hours never go negative.
func (p *AvailabilityPlanner) Summarize(ctx context.Context, resourceID string, rangeStart, rangeEnd time.Time) (UtilizationSummary, error) {
	if p == nil || p.bookings == nil {
		return UtilizationSummary{}, fmt.Errorf("availability planner not configured")
	}

	bookedByDay, err := p.bookedMinutesByDay(ctx, resourceID, rangeStart, rangeEnd)
	if err != nil {
		return UtilizationSummary{}, err
	}

	summary := UtilizationSummary{
		ResourceID:    resourceID,
		RangeStart:    rangeStart,
		RangeEnd:      rangeEnd,
		BusyDays:      make([]string, 0),
		AvailableDays: make([]string, 0),
	}

	var bookedMinutes float64
	for day := dateOf(rangeStart); !day.After(dateOf(rangeEnd)); day = day.AddDate(0, 0, 1) {
		if !isBusinessDay(day) {
			continue
		}
		summary.TotalBusinessHours += businessDayHours

		key := day.Format(time.DateOnly)
		if minutes := bookedByDay[key]; minutes > 0 {
			bookedMinutes += minutes
			summary.BusyDays = append(summary.BusyDays, key)
		} else {
			summary.AvailableDays = append(summary.AvailableDays, key)
		}
	}

	summary.BookedHours = bookedMinutes / 60
	summary.AvailableHours = summary.TotalBusinessHours - summary.BookedHours
	if summary.AvailableHours < 0 {
		summary.AvailableHours = 0
	}
	if summary.TotalBusinessHours > 0 {
		summary.UtilizationRate = summary.BookedHours / summary.TotalBusinessHours * 100
	}
	if summary.UtilizationRate > 100 {
		summary.UtilizationRate = 100
	}
	if summary.UtilizationRate < 0 {
		summary.UtilizationRate = 0
	}

	return summary, nil
}

// bookedMinutesByDay sums the minutes each booking occupies within the
// range, keyed by UTC date. Recurring templates are expanded and their
// exceptions applied; occurrences are clamped to the range.
func (p *AvailabilityPlanner) bookedMinutesByDay(ctx context.Context, resourceID string, rangeStart, rangeEnd time.Time) (map[string]float64, error) {
	byDay := make(map[string]float64)

	stored, err := p.bookings.ListOverlapping(ctx, resourceID, rangeStart, rangeEnd)
	if err != nil && !errors.Is(err, persistence.ErrNotFound) {
		return nil, fmt.Errorf("list overlapping bookings: %w", err)
	}
	for _, b := range stored {
		if b.IsRecurring {
			continue
		}
		resolved, err := p.resolver.Resolve(ctx, resolveTarget(b), b.Start, b.End)
		if err != nil {
			return nil, err
		}
		if resolved.Cancelled {
			continue
		}
		addClampedMinutes(byDay, resolved.Start, resolved.End, rangeStart, rangeEnd)
	}

	templates, err := p.bookings.ListRecurringTemplates(ctx, resourceID)
	if err != nil && !errors.Is(err, persistence.ErrNotFound) {
		return nil, fmt.Errorf("list recurring templates: %w", err)
	}
	for _, tmpl := range templates {
		occurrences, err := p.expander.Expand(tmpl.RecurrenceRule, tmpl.Start, tmpl.End, rangeStart, rangeEnd)
		if err != nil {
			return nil, fmt.Errorf("expand template %s: %w", tmpl.ID, err)
		}
		for _, occ := range occurrences {
			resolved, err := p.resolver.Resolve(ctx, tmpl, occ.Start, occ.End)
			if err != nil {
				return nil, err
			}
			if resolved.Cancelled {
				continue
			}
			addClampedMinutes(byDay, resolved.Start, resolved.End, rangeStart, rangeEnd)
		}
	}

	return byDay, nil
}

// resolveTarget redirects a materialized instance to its template so that
// series exceptions apply to it.
func resolveTarget(b Booking) Booking {
	if b.RecurrenceParentID != nil {
		return Booking{ID: *b.RecurrenceParentID, Title: b.Title, Description: b.Description}
	}
	return b
}

func addClampedMinutes(byDay map[string]float64, start, end, rangeStart, rangeEnd time.Time) {
	if start.Before(rangeStart) {
		start = rangeStart
	}
	if end.After(rangeEnd) {
		end = rangeEnd
	}
	if !end.After(start) {
		return
	}
	byDay[dateOf(start).Format(time.DateOnly)] += end.Sub(start).Minutes()
}

func isBusinessDay(day time.Time) bool {
	switch day.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	default:
		return true
	}
}

// alignToBusinessHours snaps an instant forward to the nearest point inside
// business hours: before open moves to 09:00, after close or on a weekend
// moves to 09:00 of the next business day.
func alignToBusinessHours(t time.Time) time.Time {
	t = t.UTC()
	day := dateOf(t)

	for !isBusinessDay(day) {
		day = day.AddDate(0, 0, 1)
		t = day.Add(businessOpenHour * time.Hour)
	}

	open := day.Add(businessOpenHour * time.Hour)
	close := day.Add(businessCloseHour * time.Hour)

	if t.Before(open) {
		return open
	}
	if !t.Before(close) {
		next := day.AddDate(0, 0, 1)
		for !isBusinessDay(next) {
			next = next.AddDate(0, 0, 1)
		}
		return next.Add(businessOpenHour * time.Hour)
	}
	return t
}
