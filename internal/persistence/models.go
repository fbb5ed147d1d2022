package persistence

import "time"

// Resource represents a bookable entity catalog entry.
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

// Booking represents a reserved interval stored in persistence. Recurring
// templates carry RecurrenceRule; materialized instances carry
// RecurrenceParentID and share SeriesID with their template.
type Booking struct {
	ID                 string
	ResourceID         string
	Title              string
	Description        *string
	StartTime          time.Time
	EndTime            time.Time
	IsRecurring        bool
	RecurrenceRule     *string
	RecurrenceParentID *string
	SeriesID           *string
	OriginalStartTime  *time.Time
	CreatedBy          *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// BookingException represents a per-date override on a recurring booking.
// ExceptionDate is a bare calendar date; storage keeps it as YYYY-MM-DD text
// with a unique key on (booking_id, exception_date).
type BookingException struct {
	ID             string
	BookingID      string
	ExceptionDate  time.Time
	ExceptionType  string
	NewStartTime   *time.Time
	NewEndTime     *time.Time
	NewTitle       *string
	NewDescription *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
