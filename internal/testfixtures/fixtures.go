package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/booking-platform/internal/booking"
	"github.com/example/booking-platform/internal/persistence"
)

var (
	resourceCounter  uint64
	bookingCounter   uint64
	exceptionCounter uint64
)

var referenceTime = time.Date(2025, time.January, 6, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
// It is a Monday morning so business-hour assertions line up naturally.
func ReferenceTime() time.Time {
	return referenceTime
}

// ---------------------------- Resource fixtures ---------------------------

// ResourceFixture represents a deterministic resource catalog entry.
type ResourceFixture struct {
	ID        string
	Name      string
	Capacity  *int
	Active    bool
	Deleted   bool
	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ResourceOption configures the generated resource fixture.
type ResourceOption func(*ResourceFixture)

// NewResourceFixture returns a deterministic resource fixture with optional overrides.
func NewResourceFixture(opts ...ResourceOption) ResourceFixture {
	idx := atomic.AddUint64(&resourceCounter, 1)
	id := fmt.Sprintf("resource-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := ResourceFixture{
		ID:        id,
		Name:      fmt.Sprintf("Resource %03d", idx),
		Active:    true,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithResourceID overrides the generated resource ID.
func WithResourceID(id string) ResourceOption {
	return func(f *ResourceFixture) {
		f.ID = id
	}
}

// WithResourceName overrides the generated resource name.
func WithResourceName(name string) ResourceOption {
	return func(f *ResourceFixture) {
		f.Name = name
	}
}

// WithResourceCapacity sets the capacity on the fixture.
func WithResourceCapacity(capacity int) ResourceOption {
	return func(f *ResourceFixture) {
		value := capacity
		f.Capacity = &value
	}
}

// WithResourceActive sets the active flag.
func WithResourceActive(active bool) ResourceOption {
	return func(f *ResourceFixture) {
		f.Active = active
	}
}

// WithResourceDeleted marks the fixture as soft deleted at the given time.
func WithResourceDeleted(at time.Time) ResourceOption {
	return func(f *ResourceFixture) {
		deleted := at
		f.Deleted = true
		f.DeletedAt = &deleted
		f.Active = false
	}
}

// WithResourceTimestamps sets both created and updated timestamps.
func WithResourceTimestamps(created, updated time.Time) ResourceOption {
	return func(f *ResourceFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Domain returns the fixture as a booking.Resource value.
func (f ResourceFixture) Domain() booking.Resource {
	return booking.Resource{
		ID:        f.ID,
		Name:      f.Name,
		Capacity:  copyIntPtr(f.Capacity),
		Active:    f.Active,
		Deleted:   f.Deleted,
		DeletedAt: copyTimePtr(f.DeletedAt),
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Resource value.
func (f ResourceFixture) Persistence() persistence.Resource {
	return persistence.Resource{
		ID:        f.ID,
		Name:      f.Name,
		Capacity:  copyIntPtr(f.Capacity),
		Active:    f.Active,
		Deleted:   f.Deleted,
		DeletedAt: copyTimePtr(f.DeletedAt),
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// ---------------------------- Booking fixtures ----------------------------

// BookingFixture represents a deterministic booking record. The default is a
// one hour non-recurring booking anchored at ReferenceTime plus an offset.
type BookingFixture struct {
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

// BookingOption configures the generated booking fixture.
type BookingOption func(*BookingFixture)

// NewBookingFixture returns a deterministic booking fixture with optional overrides.
func NewBookingFixture(opts ...BookingOption) BookingFixture {
	idx := atomic.AddUint64(&bookingCounter, 1)
	id := fmt.Sprintf("booking-%03d", idx)
	start := referenceTime.Add(time.Duration(idx) * time.Hour)
	fixture := BookingFixture{
		ID:         id,
		ResourceID: "resource-001",
		Title:      fmt.Sprintf("Booking %03d", idx),
		Start:      start,
		End:        start.Add(time.Hour),
		CreatedAt:  referenceTime,
		UpdatedAt:  referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithBookingID overrides the booking ID.
func WithBookingID(id string) BookingOption {
	return func(f *BookingFixture) {
		f.ID = id
	}
}

// WithBookingResource sets the resource the booking reserves.
func WithBookingResource(resourceID string) BookingOption {
	return func(f *BookingFixture) {
		f.ResourceID = resourceID
	}
}

// WithBookingTitle overrides the title.
func WithBookingTitle(title string) BookingOption {
	return func(f *BookingFixture) {
		f.Title = title
	}
}

// WithBookingDescription sets the description.
func WithBookingDescription(description string) BookingOption {
	return func(f *BookingFixture) {
		f.Description = description
	}
}

// WithBookingInterval sets the start and end times.
func WithBookingInterval(start, end time.Time) BookingOption {
	return func(f *BookingFixture) {
		f.Start = start
		f.End = end
	}
}

// WithBookingRule turns the fixture into a recurring template. The series id
// and original start default to the fixture's own id and start.
func WithBookingRule(rule string) BookingOption {
	return func(f *BookingFixture) {
		f.IsRecurring = true
		f.RecurrenceRule = rule
		seriesID := f.ID
		f.SeriesID = &seriesID
		start := f.Start
		f.OriginalStartTime = &start
	}
}

// WithBookingParent turns the fixture into a materialized instance of the
// given template.
func WithBookingParent(templateID string) BookingOption {
	return func(f *BookingFixture) {
		parent := templateID
		series := templateID
		f.IsRecurring = false
		f.RecurrenceRule = ""
		f.RecurrenceParentID = &parent
		f.SeriesID = &series
	}
}

// WithBookingCreatedBy sets the creator.
func WithBookingCreatedBy(creator string) BookingOption {
	return func(f *BookingFixture) {
		f.CreatedBy = creator
	}
}

// WithBookingTimestamps sets both created and updated timestamps.
func WithBookingTimestamps(created, updated time.Time) BookingOption {
	return func(f *BookingFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Domain returns the fixture as a booking.Booking value.
func (f BookingFixture) Domain() booking.Booking {
	return booking.Booking{
		ID:                 f.ID,
		ResourceID:         f.ResourceID,
		Title:              f.Title,
		Description:        f.Description,
		Start:              f.Start,
		End:                f.End,
		IsRecurring:        f.IsRecurring,
		RecurrenceRule:     f.RecurrenceRule,
		RecurrenceParentID: copyStringPtr(f.RecurrenceParentID),
		SeriesID:           copyStringPtr(f.SeriesID),
		OriginalStartTime:  copyTimePtr(f.OriginalStartTime),
		CreatedBy:          f.CreatedBy,
		CreatedAt:          f.CreatedAt,
		UpdatedAt:          f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Booking value.
func (f BookingFixture) Persistence() persistence.Booking {
	var description *string
	if f.Description != "" {
		value := f.Description
		description = &value
	}
	var rule *string
	if f.RecurrenceRule != "" {
		value := f.RecurrenceRule
		rule = &value
	}
	var createdBy *string
	if f.CreatedBy != "" {
		value := f.CreatedBy
		createdBy = &value
	}
	return persistence.Booking{
		ID:                 f.ID,
		ResourceID:         f.ResourceID,
		Title:              f.Title,
		Description:        description,
		StartTime:          f.Start,
		EndTime:            f.End,
		IsRecurring:        f.IsRecurring,
		RecurrenceRule:     rule,
		RecurrenceParentID: copyStringPtr(f.RecurrenceParentID),
		SeriesID:           copyStringPtr(f.SeriesID),
		OriginalStartTime:  copyTimePtr(f.OriginalStartTime),
		CreatedBy:          createdBy,
		CreatedAt:          f.CreatedAt,
		UpdatedAt:          f.UpdatedAt,
	}
}

// --------------------------- Exception fixtures ---------------------------

// ExceptionFixture represents a deterministic per-occurrence override.
type ExceptionFixture struct {
	ID             string
	BookingID      string
	ExceptionDate  time.Time
	ExceptionType  booking.ExceptionType
	NewStartTime   *time.Time
	NewEndTime     *time.Time
	NewTitle       *string
	NewDescription *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ExceptionOption configures the generated exception fixture.
type ExceptionOption func(*ExceptionFixture)

// NewExceptionFixture returns a deterministic cancelled exception with
// optional overrides.
func NewExceptionFixture(opts ...ExceptionOption) ExceptionFixture {
	idx := atomic.AddUint64(&exceptionCounter, 1)
	id := fmt.Sprintf("exception-%03d", idx)
	date := referenceTime.AddDate(0, 0, int(idx))
	fixture := ExceptionFixture{
		ID:            id,
		BookingID:     fmt.Sprintf("booking-%03d", idx),
		ExceptionDate: time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC),
		ExceptionType: booking.ExceptionCancelled,
		CreatedAt:     referenceTime,
		UpdatedAt:     referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithExceptionID overrides the exception ID.
func WithExceptionID(id string) ExceptionOption {
	return func(f *ExceptionFixture) {
		f.ID = id
	}
}

// WithExceptionBooking sets the template the exception applies to.
func WithExceptionBooking(bookingID string) ExceptionOption {
	return func(f *ExceptionFixture) {
		f.BookingID = bookingID
	}
}

// WithExceptionDate sets the occurrence date, truncated to its UTC day.
func WithExceptionDate(date time.Time) ExceptionOption {
	return func(f *ExceptionFixture) {
		date = date.UTC()
		f.ExceptionDate = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	}
}

// WithExceptionModified turns the fixture into a modified exception with the
// given replacement interval.
func WithExceptionModified(newStart, newEnd time.Time) ExceptionOption {
	return func(f *ExceptionFixture) {
		start := newStart
		end := newEnd
		f.ExceptionType = booking.ExceptionModified
		f.NewStartTime = &start
		f.NewEndTime = &end
	}
}

// WithExceptionTitle sets a replacement title on the fixture.
func WithExceptionTitle(title string) ExceptionOption {
	return func(f *ExceptionFixture) {
		value := title
		f.NewTitle = &value
	}
}

// WithExceptionTimestamps sets both created and updated timestamps.
func WithExceptionTimestamps(created, updated time.Time) ExceptionOption {
	return func(f *ExceptionFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Domain returns the fixture as a booking.BookingException value.
func (f ExceptionFixture) Domain() booking.BookingException {
	return booking.BookingException{
		ID:             f.ID,
		BookingID:      f.BookingID,
		ExceptionDate:  f.ExceptionDate,
		ExceptionType:  f.ExceptionType,
		NewStartTime:   copyTimePtr(f.NewStartTime),
		NewEndTime:     copyTimePtr(f.NewEndTime),
		NewTitle:       copyStringPtr(f.NewTitle),
		NewDescription: copyStringPtr(f.NewDescription),
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.BookingException value.
func (f ExceptionFixture) Persistence() persistence.BookingException {
	return persistence.BookingException{
		ID:             f.ID,
		BookingID:      f.BookingID,
		ExceptionDate:  f.ExceptionDate,
		ExceptionType:  string(f.ExceptionType),
		NewStartTime:   copyTimePtr(f.NewStartTime),
		NewEndTime:     copyTimePtr(f.NewEndTime),
		NewTitle:       copyStringPtr(f.NewTitle),
		NewDescription: copyStringPtr(f.NewDescription),
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
}

// helpers to deep copy optional values.

func copyStringPtr(src *string) *string {
	if src == nil {
		return nil
	}
	value := *src
	return &value
}

func copyTimePtr(src *time.Time) *time.Time {
	if src == nil {
		return nil
	}
	value := *src
	return &value
}

func copyIntPtr(src *int) *int {
	if src == nil {
		return nil
	}
	value := *src
	return &value
}
