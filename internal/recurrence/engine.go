package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// Interval is one concrete occurrence produced by expanding a recurrence rule.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Duration returns the length of the interval.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Overlaps reports whether the interval overlaps other under the half-open
// rule: a.Start < b.End && a.End > b.Start.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && i.End.After(other.Start)
}

// ErrInvalidRule indicates the recurrence rule string could not be parsed or
// uses unsupported tokens.
var ErrInvalidRule = errors.New("recurrence: invalid recurrence rule")

// ErrInvalidAnchor indicates the anchor interval has a non-positive duration.
var ErrInvalidAnchor = errors.New("recurrence: anchor end must be after anchor start")

// Expander abstracts recurrence-rule parsing and expansion so consumers are
// not coupled to a specific RRULE library.
type Expander interface {
	// Expand computes the occurrences of rule within [windowStart, windowEnd]
	// inclusive. anchorStart is the pattern's first occurrence; every
	// occurrence preserves the anchor duration.
	Expand(rule string, anchorStart, anchorEnd, windowStart, windowEnd time.Time) ([]Interval, error)

	// Validate reports whether rule is syntactically valid. It never fails.
	Validate(rule string) bool

	// NextAfter returns up to count occurrences strictly after from, compared
	// by UTC calendar date rather than instant.
	NextAfter(rule string, anchorStart, anchorEnd, from time.Time, count int) ([]Interval, error)

	// SeriesEnd returns the instant the series ends: the UNTIL bound, the
	// computed final COUNT-th occurrence, or nil when the series is unbounded.
	SeriesEnd(rule string, anchorStart time.Time) (*time.Time, error)
}

// Engine expands RFC-5545-style RRULE strings into concrete occurrences.
//
// All computation happens in UTC. The engine widens query windows to full
// calendar days before expansion and re-filters to the caller's exact window,
// so occurrences on window boundaries are never missed to sub-day precision.
type Engine struct{}

// NewEngine returns a stateless Engine. It is safe for concurrent use.
func NewEngine() *Engine {
	return &Engine{}
}

var _ Expander = (*Engine)(nil)

// Expand implements Expander.
func (e *Engine) Expand(rule string, anchorStart, anchorEnd, windowStart, windowEnd time.Time) ([]Interval, error) {
	if !anchorEnd.After(anchorStart) {
		return nil, ErrInvalidAnchor
	}

	r, err := e.parse(rule, anchorStart)
	if err != nil {
		return nil, err
	}

	duration := anchorEnd.Sub(anchorStart)

	// Widen to full calendar days so boundary occurrences survive the
	// library's inclusive-range arithmetic, then re-filter exactly.
	widenedStart := startOfDayUTC(windowStart)
	widenedEnd := endOfDayUTC(windowEnd)

	starts := r.Between(widenedStart, widenedEnd, true)

	intervals := make([]Interval, 0, len(starts))
	for _, start := range starts {
		if start.Before(windowStart) || start.After(windowEnd) {
			continue
		}
		intervals = append(intervals, Interval{Start: start, End: start.Add(duration)})
	}

	return intervals, nil
}

// Validate implements Expander.
func (e *Engine) Validate(rule string) bool {
	_, err := rrule.StrToRRule(normalizeRule(rule))
	return err == nil
}

// NextAfter implements Expander.
func (e *Engine) NextAfter(rule string, anchorStart, anchorEnd, from time.Time, count int) ([]Interval, error) {
	if !anchorEnd.After(anchorStart) {
		return nil, ErrInvalidAnchor
	}
	if count <= 0 {
		return nil, nil
	}

	r, err := e.parse(rule, anchorStart)
	if err != nil {
		return nil, err
	}

	duration := anchorEnd.Sub(anchorStart)
	fromDate := startOfDayUTC(from)

	// One year is enough horizon for suggestion use; rules sparser than that
	// simply yield fewer results.
	starts := r.Between(from, from.AddDate(1, 0, 0), true)

	intervals := make([]Interval, 0, count)
	for _, start := range starts {
		// Compare by calendar date so a same-day occurrence after a DST edge
		// is not reported as "next".
		if !startOfDayUTC(start).After(fromDate) {
			continue
		}
		intervals = append(intervals, Interval{Start: start, End: start.Add(duration)})
		if len(intervals) == count {
			break
		}
	}

	return intervals, nil
}

// SeriesEnd implements Expander.
func (e *Engine) SeriesEnd(rule string, anchorStart time.Time) (*time.Time, error) {
	r, err := e.parse(rule, anchorStart)
	if err != nil {
		return nil, err
	}

	if until := r.OrigOptions.Until; !until.IsZero() {
		u := until
		return &u, nil
	}

	if r.OrigOptions.Count > 0 {
		all := r.All()
		if len(all) == 0 {
			return nil, nil
		}
		last := all[len(all)-1]
		return &last, nil
	}

	// Neither COUNT nor UNTIL: unbounded series.
	return nil, nil
}

func (e *Engine) parse(rule string, anchorStart time.Time) (*rrule.RRule, error) {
	r, err := rrule.StrToRRule(normalizeRule(rule))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidRule, rule, err)
	}
	r.DTStart(anchorStart.UTC())
	return r, nil
}

func normalizeRule(rule string) string {
	rule = strings.TrimSpace(rule)
	rule = strings.TrimPrefix(rule, "RRULE:")
	return rule
}

func startOfDayUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func endOfDayUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, time.UTC)
}
