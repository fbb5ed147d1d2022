package booking

import "time"

// Resource is a bookable entity such as a room, a person, or a piece of
// equipment. The scheduling engine references resources but never mutates
// them; lifecycle management belongs to the administrative surface.
type Resource struct {
	ID        string
	Name      string
	Capacity  *int
	Active    bool
	Deleted   bool
	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Booking is a reserved time interval against a resource. A recurring series
// exists as exactly one template row (IsRecurring true, RecurrenceRule set,
// RecurrenceParentID nil) plus zero or more materialized instance rows
// (IsRecurring false, RecurrenceParentID pointing at the template, sharing
// SeriesID).
type Booking struct {
	ID                 string
	ResourceID         string
	Title              string
	Description        string
	Start              time.Time
	End                time.Time
	IsRecurring        bool
	RecurrenceRule     string
	RecurrenceParentID *string
	SeriesID           *string
	OriginalStartTime  *time.Time
	CreatedBy          string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ExceptionType distinguishes the two per-occurrence override kinds.
type ExceptionType string

const (
	// ExceptionCancelled removes a single occurrence of a series.
	ExceptionCancelled ExceptionType = "cancelled"
	// ExceptionModified overrides a single occurrence's interval and,
	// optionally, its title and description.
	ExceptionModified ExceptionType = "modified"
)

// BookingException is a per-date override applied to one occurrence of a
// recurring booking. ExceptionDate carries no time component; it is the UTC
// calendar date of the occurrence start. One exception per booking per date.
type BookingException struct {
	ID             string
	BookingID      string
	ExceptionDate  time.Time
	ExceptionType  ExceptionType
	NewStartTime   *time.Time
	NewEndTime     *time.Time
	NewTitle       *string
	NewDescription *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ConflictKind classifies how a conflict was found.
type ConflictKind string

const (
	// ConflictSingle is a direct overlap with a plain booking or a
	// materialized instance.
	ConflictSingle ConflictKind = "single"
	// ConflictRecurring is an overlap with an expanded occurrence of a
	// recurring template.
	ConflictRecurring ConflictKind = "recurring"
	// ConflictDuplicatePattern is a recurring request matching an existing
	// template's rule and anchor.
	ConflictDuplicatePattern ConflictKind = "duplicate_pattern"
	// ConflictPatternOverlap is a recurring request whose projected
	// occurrences collide with another template's occurrences.
	ConflictPatternOverlap ConflictKind = "pattern_overlap"
	// ConflictSelfOverlap is a recurring request whose own occurrences
	// overlap each other.
	ConflictSelfOverlap ConflictKind = "self_overlap"
)

// Conflict describes one existing booking or occurrence that collides with a
// candidate request. Start and End are the resolved interval after any
// modified exception was applied.
type Conflict struct {
	BookingID string
	Title     string
	Start     time.Time
	End       time.Time
	Kind      ConflictKind
	Message   string
}

// Slot is a free interval offered by the availability planner.
type Slot struct {
	Start time.Time
	End   time.Time
}

// UtilizationSummary reports how much of a resource's business-hour capacity
// within a range is consumed by bookings.
type UtilizationSummary struct {
	ResourceID         string
	RangeStart         time.Time
	RangeEnd           time.Time
	TotalBusinessHours float64
	BookedHours        float64
	AvailableHours     float64
	UtilizationRate    float64
	BusyDays           []string
	AvailableDays      []string
}

// CancelMode selects one of the three cancellation behaviours.
type CancelMode string

const (
	// CancelSingle deletes one non-recurring booking row.
	CancelSingle CancelMode = "single"
	// CancelSeries deletes a template and all of its materialized instances.
	CancelSeries CancelMode = "series"
	// CancelInstance cancels one occurrence of a series via an exception.
	CancelInstance CancelMode = "instance"
)

// CreateBookingParams carries the inputs for CreateBooking.
type CreateBookingParams struct {
	ResourceID     string
	Title          string
	Description    string
	Start          time.Time
	End            time.Time
	RecurrenceRule string
	CreatedBy      string
}

// CancelBookingParams carries the inputs for CancelBooking. InstanceDate is
// required when Mode is CancelInstance and ignored otherwise.
type CancelBookingParams struct {
	BookingID    string
	Mode         CancelMode
	InstanceDate *time.Time
}

// CancellationResult reports what a cancellation actually did.
type CancellationResult struct {
	Mode         CancelMode
	BookingID    string
	DeletedCount int
	Exception    *BookingException
}

// AddExceptionParams carries the inputs for AddException.
type AddExceptionParams struct {
	BookingID      string
	ExceptionDate  time.Time
	ExceptionType  ExceptionType
	NewStartTime   *time.Time
	NewEndTime     *time.Time
	NewTitle       *string
	NewDescription *string
}

// ListBookingsParams narrows ListBookings to a resource and time range.
type ListBookingsParams struct {
	ResourceID string
	Start      time.Time
	End        time.Time
}

// dateOf truncates an instant to its UTC calendar date. Exception dates are
// always compared on this normalized form.
func dateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// sameDate reports whether two instants fall on the same UTC calendar date.
func sameDate(a, b time.Time) bool {
	return dateOf(a).Equal(dateOf(b))
}
