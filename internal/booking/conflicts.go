package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/booking-platform/internal/persistence"
	"github.com/example/booking-platform/internal/recurrence"
)

const (
	// templateNeighborWindow widens a point-in-time request so that
	// occurrences of nearby templates are expanded and checked.
	templateNeighborWindow = 7 * 24 * time.Hour

	// patternHorizonMonths bounds how far two recurring patterns are
	// projected when checked against each other.
	patternHorizonMonths = 6
	// patternOccurrenceCap bounds each side of the cross-pattern comparison.
	patternOccurrenceCap = 50

	// requestHorizonMonths bounds the expansion of a recurring request
	// before its occurrences are checked individually.
	requestHorizonMonths = 3
	// requestOccurrenceCap bounds that expansion.
	requestOccurrenceCap = 50

	// duplicateAnchorTolerance is how close two anchors must be for two
	// identical rules to count as the same pattern.
	duplicateAnchorTolerance = time.Minute
)

// ConflictDetector finds existing bookings and occurrences that collide with
// a candidate interval, applying exception overrides along the way.
type ConflictDetector struct {
	bookings BookingRepository
	resolver *ExceptionResolver
	expander recurrence.Expander
}

// NewConflictDetector wires dependencies for conflict detection.
func NewConflictDetector(bookings BookingRepository, resolver *ExceptionResolver, expander recurrence.Expander) *ConflictDetector {
	return &ConflictDetector{
		bookings: bookings,
		resolver: resolver,
		expander: expander,
	}
}

// Detect returns every conflict between the candidate request and the
// resource's existing bookings. rule may be empty for a one-off request.
// Results are deduplicated by (booking id, occurrence start).
func (d *ConflictDetector) Detect(ctx context.Context, resourceID string, start, end time.Time, rule string) ([]Conflict, error) {
	if d == nil || d.bookings == nil {
		return nil, fmt.Errorf("conflict detector not configured")
	}

	if rule == "" {
		conflicts, err := d.detectSingle(ctx, resourceID, start, end)
		if err != nil {
			return nil, err
		}
		return dedupeConflicts(conflicts), nil
	}

	conflicts, err := d.detectRecurring(ctx, resourceID, start, end, rule)
	if err != nil {
		return nil, err
	}
	return dedupeConflicts(conflicts), nil
}

// IsSlotAvailable reports whether a one-off interval is free of conflicts.
func (d *ConflictDetector) IsSlotAvailable(ctx context.Context, resourceID string, start, end time.Time) (bool, error) {
	conflicts, err := d.Detect(ctx, resourceID, start, end, "")
	if err != nil {
		return false, err
	}
	return len(conflicts) == 0, nil
}

// detectSingle checks a concrete interval against stored rows and against
// expanded occurrences of every recurring template on the resource.
func (d *ConflictDetector) detectSingle(ctx context.Context, resourceID string, start, end time.Time) ([]Conflict, error) {
	stored, err := d.bookings.ListOverlapping(ctx, resourceID, start, end)
	if err != nil && !errors.Is(err, persistence.ErrNotFound) {
		return nil, fmt.Errorf("list overlapping bookings: %w", err)
	}

	conflicts := make([]Conflict, 0)
	for _, existing := range stored {
		if existing.IsRecurring {
			// Templates are handled by expansion below so that exception
			// overrides and occurrences beyond the anchor are honoured.
			continue
		}

		resolved, err := d.resolveStored(ctx, existing)
		if err != nil {
			return nil, err
		}
		if resolved.Cancelled {
			continue
		}
		if overlaps(resolved.Start, resolved.End, start, end) {
			conflicts = append(conflicts, Conflict{
				BookingID: existing.ID,
				Title:     resolved.Title,
				Start:     resolved.Start,
				End:       resolved.End,
				Kind:      ConflictSingle,
				Message:   fmt.Sprintf("overlaps booking %q", resolved.Title),
			})
		}
	}

	templateConflicts, err := d.detectAgainstTemplates(ctx, resourceID, start, end)
	if err != nil {
		return nil, err
	}

	return append(conflicts, templateConflicts...), nil
}

// detectAgainstTemplates expands every recurring template over a widened
// window around the request and reports occurrences that survive their
// exceptions and overlap the request.
func (d *ConflictDetector) detectAgainstTemplates(ctx context.Context, resourceID string, start, end time.Time) ([]Conflict, error) {
	templates, err := d.bookings.ListRecurringTemplates(ctx, resourceID)
	if err != nil && !errors.Is(err, persistence.ErrNotFound) {
		return nil, fmt.Errorf("list recurring templates: %w", err)
	}

	windowStart := start.Add(-templateNeighborWindow)
	windowEnd := end.Add(templateNeighborWindow)

	conflicts := make([]Conflict, 0)
	for _, tmpl := range templates {
		occurrences, err := d.expander.Expand(tmpl.RecurrenceRule, tmpl.Start, tmpl.End, windowStart, windowEnd)
		if err != nil {
			return nil, fmt.Errorf("expand template %s: %w", tmpl.ID, err)
		}

		for _, occ := range occurrences {
			resolved, err := d.resolver.Resolve(ctx, tmpl, occ.Start, occ.End)
			if err != nil {
				return nil, err
			}
			if resolved.Cancelled {
				continue
			}
			if overlaps(resolved.Start, resolved.End, start, end) {
				conflicts = append(conflicts, Conflict{
					BookingID: tmpl.ID,
					Title:     resolved.Title,
					Start:     resolved.Start,
					End:       resolved.End,
					Kind:      ConflictRecurring,
					Message:   fmt.Sprintf("overlaps occurrence of recurring booking %q", resolved.Title),
				})
			}
		}
	}

	return conflicts, nil
}

// detectRecurring pre-checks a recurring request at the pattern level and,
// when the patterns are distinct, falls back to checking each projected
// occurrence individually.
func (d *ConflictDetector) detectRecurring(ctx context.Context, resourceID string, start, end time.Time, rule string) ([]Conflict, error) {
	templates, err := d.bookings.ListRecurringTemplates(ctx, resourceID)
	if err != nil && !errors.Is(err, persistence.ErrNotFound) {
		return nil, fmt.Errorf("list recurring templates: %w", err)
	}

	patternConflicts, err := d.detectPatternConflicts(templates, start, end, rule)
	if err != nil {
		return nil, err
	}
	if len(patternConflicts) > 0 {
		return patternConflicts, nil
	}

	horizon := start.AddDate(0, requestHorizonMonths, 0)
	requested, err := d.expander.Expand(rule, start, end, start, horizon)
	if err != nil {
		return nil, err
	}
	if len(requested) > requestOccurrenceCap {
		requested = requested[:requestOccurrenceCap]
	}

	conflicts := make([]Conflict, 0)
	for _, occ := range requested {
		occConflicts, err := d.detectSingle(ctx, resourceID, occ.Start, occ.End)
		if err != nil {
			return nil, err
		}
		conflicts = append(conflicts, occConflicts...)
	}

	if self := selfOverlap(requested); self != nil {
		conflicts = append(conflicts, *self)
	}

	return conflicts, nil
}

// detectPatternConflicts runs the duplicate and cross-pattern checks against
// every existing template.
func (d *ConflictDetector) detectPatternConflicts(templates []Booking, start, end time.Time, rule string) ([]Conflict, error) {
	horizon := start.AddDate(0, patternHorizonMonths, 0)

	requested, err := d.expander.Expand(rule, start, end, start, horizon)
	if err != nil {
		return nil, err
	}
	if len(requested) > patternOccurrenceCap {
		requested = requested[:patternOccurrenceCap]
	}

	for _, tmpl := range templates {
		if isDuplicatePattern(tmpl, start, end, rule) {
			return []Conflict{{
				BookingID: tmpl.ID,
				Title:     tmpl.Title,
				Start:     tmpl.Start,
				End:       tmpl.End,
				Kind:      ConflictDuplicatePattern,
				Message:   fmt.Sprintf("identical recurring pattern already exists as %q", tmpl.Title),
			}}, nil
		}

		existing, err := d.expander.Expand(tmpl.RecurrenceRule, tmpl.Start, tmpl.End, start, horizon)
		if err != nil {
			// A stored rule that no longer parses must not mask the
			// request; surface it so the operator can repair the row.
			return nil, fmt.Errorf("expand template %s: %w", tmpl.ID, err)
		}
		if len(existing) > patternOccurrenceCap {
			existing = existing[:patternOccurrenceCap]
		}

		if hit, ok := firstCrossOverlap(requested, existing); ok {
			return []Conflict{{
				BookingID: tmpl.ID,
				Title:     tmpl.Title,
				Start:     hit.Start,
				End:       hit.End,
				Kind:      ConflictPatternOverlap,
				Message:   fmt.Sprintf("recurring pattern collides with %q", tmpl.Title),
			}}, nil
		}
	}

	return nil, nil
}

func (d *ConflictDetector) resolveStored(ctx context.Context, b Booking) (ResolvedOccurrence, error) {
	// Materialized instances inherit their series' exceptions through the
	// parent template row.
	targetID := b.ID
	if b.RecurrenceParentID != nil {
		targetID = *b.RecurrenceParentID
	}
	resolved, err := d.resolver.Resolve(ctx, Booking{ID: targetID, Title: b.Title, Description: b.Description}, b.Start, b.End)
	if err != nil {
		return ResolvedOccurrence{}, err
	}
	return resolved, nil
}

// overlaps applies the half-open overlap rule a.start < b.end && a.end > b.start.
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

func isDuplicatePattern(tmpl Booking, start, end time.Time, rule string) bool {
	if normalizeRule(tmpl.RecurrenceRule) != normalizeRule(rule) {
		return false
	}
	return absDuration(tmpl.Start.Sub(start)) <= duplicateAnchorTolerance &&
		absDuration(tmpl.End.Sub(end)) <= duplicateAnchorTolerance
}

func normalizeRule(rule string) string {
	rule = strings.TrimSpace(rule)
	rule = strings.TrimPrefix(rule, "RRULE:")
	return strings.ToUpper(rule)
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// firstCrossOverlap returns the first existing occurrence that overlaps any
// requested occurrence.
func firstCrossOverlap(requested, existing []recurrence.Interval) (recurrence.Interval, bool) {
	for _, req := range requested {
		for _, ex := range existing {
			if req.Overlaps(ex) {
				return ex, true
			}
		}
	}
	return recurrence.Interval{}, false
}

// selfOverlap reports at most one conflict when a request's own occurrences
// overlap, which sub-daily rules can produce.
func selfOverlap(occurrences []recurrence.Interval) *Conflict {
	for i := 0; i < len(occurrences); i++ {
		for j := i + 1; j < len(occurrences); j++ {
			if occurrences[i].Overlaps(occurrences[j]) {
				return &Conflict{
					Start:   occurrences[j].Start,
					End:     occurrences[j].End,
					Kind:    ConflictSelfOverlap,
					Message: "recurrence rule produces overlapping occurrences",
				}
			}
		}
	}
	return nil
}

func dedupeConflicts(conflicts []Conflict) []Conflict {
	if len(conflicts) == 0 {
		return nil
	}

	type key struct {
		bookingID string
		start     time.Time
	}
	seen := make(map[key]struct{}, len(conflicts))
	out := make([]Conflict, 0, len(conflicts))
	for _, c := range conflicts {
		k := key{bookingID: c.BookingID, start: c.Start}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, c)
	}
	return out
}
