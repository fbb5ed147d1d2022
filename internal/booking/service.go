package booking

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/example/booking-platform/internal/recurrence"
)

// suggestionCount is how many alternative slots accompany a conflict error.
const suggestionCount = 3

// defaultSlotMinutes is the slot duration used when an availability query
// does not specify one.
const defaultSlotMinutes = 60

// Service is the engine's public surface. It validates requests, holds the
// per-resource lock across detect-then-insert, and maps persistence failures
// into the domain error taxonomy.
type Service struct {
	bookings    BookingRepository
	exceptions  ExceptionRepository
	resources   ResourceCatalog
	detector    *ConflictDetector
	planner     *AvailabilityPlanner
	coordinator *CancellationCoordinator
	locker      ResourceLocker
	expander    recurrence.Expander
	idGenerator func() string
	now         func() time.Time
}

// ServiceDeps bundles the collaborators a Service needs.
type ServiceDeps struct {
	Bookings    BookingRepository
	Exceptions  ExceptionRepository
	Resources   ResourceCatalog
	Locker      ResourceLocker
	Expander    recurrence.Expander
	IDGenerator func() string
	Now         func() time.Time
}

// NewService wires the engine components around the provided collaborators.
func NewService(deps ServiceDeps) *Service {
	if deps.IDGenerator == nil {
		deps.IDGenerator = func() string { return "" }
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	resolver := NewExceptionResolver(deps.Exceptions)
	detector := NewConflictDetector(deps.Bookings, resolver, deps.Expander)
	planner := NewAvailabilityPlanner(deps.Bookings, detector, resolver, deps.Expander)
	coordinator := NewCancellationCoordinator(deps.Bookings, deps.Exceptions, deps.IDGenerator, deps.Now)

	return &Service{
		bookings:    deps.Bookings,
		exceptions:  deps.Exceptions,
		resources:   deps.Resources,
		detector:    detector,
		planner:     planner,
		coordinator: coordinator,
		locker:      deps.Locker,
		expander:    deps.Expander,
		idGenerator: deps.IDGenerator,
		now:         deps.Now,
	}
}

// CreateBooking validates the request, detects conflicts, and persists the
// booking. Detection and insertion run under the resource lock so two
// concurrent requests cannot both observe an empty conflict set. On conflict
// the returned error is a *ConflictError carrying the conflicts and up to
// three alternative slots.
func (s *Service) CreateBooking(ctx context.Context, params CreateBookingParams) (Booking, error) {
	if s == nil || s.bookings == nil {
		return Booking{}, fmt.Errorf("booking service not configured")
	}

	if err := s.validateCreate(params); err != nil {
		return Booking{}, err
	}

	if err := s.ensureResourceExists(ctx, params.ResourceID); err != nil {
		return Booking{}, err
	}

	createdAt := s.now()
	b := Booking{
		ID:          s.idGenerator(),
		ResourceID:  params.ResourceID,
		Title:       strings.TrimSpace(params.Title),
		Description: params.Description,
		Start:       params.Start.UTC(),
		End:         params.End.UTC(),
		CreatedBy:   params.CreatedBy,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	if params.RecurrenceRule != "" {
		b.IsRecurring = true
		b.RecurrenceRule = strings.TrimSpace(params.RecurrenceRule)
		seriesID := b.ID
		b.SeriesID = &seriesID
		start := b.Start
		b.OriginalStartTime = &start
	}

	var persisted Booking
	err := s.withResourceLock(ctx, params.ResourceID, func(ctx context.Context) error {
		conflicts, err := s.detector.Detect(ctx, b.ResourceID, b.Start, b.End, b.RecurrenceRule)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			suggestions, err := s.planner.SuggestNext(ctx, b.ResourceID, b.Start, b.End, suggestionCount)
			if err != nil {
				return err
			}
			return &ConflictError{Conflicts: conflicts, Suggestions: suggestions}
		}

		persisted, err = s.bookings.CreateBooking(ctx, b)
		if err != nil {
			return mapBookingRepoError(err)
		}
		return nil
	})
	if err != nil {
		return Booking{}, err
	}

	return persisted, nil
}

// CancelBooking delegates to the cancellation coordinator.
func (s *Service) CancelBooking(ctx context.Context, params CancelBookingParams) (CancellationResult, error) {
	if s == nil || s.coordinator == nil {
		return CancellationResult{}, fmt.Errorf("booking service not configured")
	}
	if params.BookingID == "" {
		vErr := &ValidationError{}
		vErr.add("booking_id", "booking_id is required")
		return CancellationResult{}, vErr
	}
	return s.coordinator.Cancel(ctx, params)
}

// GetBooking returns one booking by id.
func (s *Service) GetBooking(ctx context.Context, id string) (Booking, error) {
	if s == nil || s.bookings == nil {
		return Booking{}, fmt.Errorf("booking service not configured")
	}
	b, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		return Booking{}, mapBookingRepoError(err)
	}
	return b, nil
}

// ListBookings returns the bookings stored for a resource that overlap the
// range, ordered by start time.
func (s *Service) ListBookings(ctx context.Context, params ListBookingsParams) ([]Booking, error) {
	if s == nil || s.bookings == nil {
		return nil, fmt.Errorf("booking service not configured")
	}

	vErr := &ValidationError{}
	if params.ResourceID == "" {
		vErr.add("resource_id", "resource_id is required")
	}
	validateRange(params.Start, params.End, vErr)
	if vErr.HasErrors() {
		return nil, vErr
	}

	bookings, err := s.bookings.ListOverlapping(ctx, params.ResourceID, params.Start, params.End)
	if err != nil {
		if isRepoNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	ordered := make([]Booking, len(bookings))
	copy(ordered, bookings)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Start.Equal(ordered[j].Start) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].Start.Before(ordered[j].Start)
	})

	return ordered, nil
}

// GetAvailability returns free slots of the given duration within the range.
// A non-positive duration falls back to 60 minutes.
func (s *Service) GetAvailability(ctx context.Context, resourceID string, rangeStart, rangeEnd time.Time, durationMinutes int) ([]Slot, error) {
	if s == nil || s.planner == nil {
		return nil, fmt.Errorf("booking service not configured")
	}
	if durationMinutes <= 0 {
		durationMinutes = defaultSlotMinutes
	}

	vErr := &ValidationError{}
	if resourceID == "" {
		vErr.add("resource_id", "resource_id is required")
	}
	validateRange(rangeStart, rangeEnd, vErr)
	if vErr.HasErrors() {
		return nil, vErr
	}

	if err := s.ensureResourceExists(ctx, resourceID); err != nil {
		return nil, err
	}

	return s.planner.ListAvailable(ctx, resourceID, rangeStart, rangeEnd, time.Duration(durationMinutes)*time.Minute)
}

// GetUtilizationSummary reports booked versus available business hours for
// the range.
func (s *Service) GetUtilizationSummary(ctx context.Context, resourceID string, rangeStart, rangeEnd time.Time) (UtilizationSummary, error) {
	if s == nil || s.planner == nil {
		return UtilizationSummary{}, fmt.Errorf("booking service not configured")
	}

	vErr := &ValidationError{}
	if resourceID == "" {
		vErr.add("resource_id", "resource_id is required")
	}
	validateRange(rangeStart, rangeEnd, vErr)
	if vErr.HasErrors() {
		return UtilizationSummary{}, vErr
	}

	if err := s.ensureResourceExists(ctx, resourceID); err != nil {
		return UtilizationSummary{}, err
	}

	return s.planner.Summarize(ctx, resourceID, rangeStart, rangeEnd)
}

// AddException records a per-occurrence override on a recurring template.
// Overrides are upserted on the (booking id, exception date) key, so editing
// the same date replaces the previous override.
func (s *Service) AddException(ctx context.Context, params AddExceptionParams) (BookingException, error) {
	if s == nil || s.exceptions == nil {
		return BookingException{}, fmt.Errorf("booking service not configured")
	}

	if err := validateException(params); err != nil {
		return BookingException{}, err
	}

	template, err := s.bookings.GetBooking(ctx, params.BookingID)
	if err != nil {
		return BookingException{}, mapBookingRepoError(err)
	}
	if !template.IsRecurring {
		vErr := &ValidationError{}
		vErr.add("booking_id", "exceptions apply only to recurring bookings")
		return BookingException{}, vErr
	}

	createdAt := s.now()
	exc := BookingException{
		ID:             s.idGenerator(),
		BookingID:      template.ID,
		ExceptionDate:  dateOf(params.ExceptionDate),
		ExceptionType:  params.ExceptionType,
		NewStartTime:   params.NewStartTime,
		NewEndTime:     params.NewEndTime,
		NewTitle:       params.NewTitle,
		NewDescription: params.NewDescription,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}

	persisted, err := s.exceptions.UpsertException(ctx, exc)
	if err != nil {
		return BookingException{}, mapBookingRepoError(err)
	}
	return persisted, nil
}

// ListExceptions returns the overrides recorded for a booking.
func (s *Service) ListExceptions(ctx context.Context, bookingID string) ([]BookingException, error) {
	if s == nil || s.exceptions == nil {
		return nil, fmt.Errorf("booking service not configured")
	}
	if _, err := s.bookings.GetBooking(ctx, bookingID); err != nil {
		return nil, mapBookingRepoError(err)
	}
	return s.exceptions.ListExceptions(ctx, bookingID)
}

// DeleteException removes one override by id.
func (s *Service) DeleteException(ctx context.Context, id string) error {
	if s == nil || s.exceptions == nil {
		return fmt.Errorf("booking service not configured")
	}
	if err := s.exceptions.DeleteException(ctx, id); err != nil {
		return mapBookingRepoError(err)
	}
	return nil
}

// IsSlotAvailable exposes the detector's point check.
func (s *Service) IsSlotAvailable(ctx context.Context, resourceID string, start, end time.Time) (bool, error) {
	if s == nil || s.detector == nil {
		return false, fmt.Errorf("booking service not configured")
	}
	return s.detector.IsSlotAvailable(ctx, resourceID, start, end)
}

func (s *Service) withResourceLock(ctx context.Context, resourceID string, fn func(ctx context.Context) error) error {
	if s.locker == nil {
		return fn(ctx)
	}
	return s.locker.WithResourceLock(ctx, resourceID, fn)
}

func (s *Service) ensureResourceExists(ctx context.Context, resourceID string) error {
	if s.resources == nil {
		return nil
	}
	res, err := s.resources.GetResource(ctx, resourceID)
	if err != nil {
		if isRepoNotFound(err) {
			return fmt.Errorf("%w: resource %s", ErrNotFound, resourceID)
		}
		return err
	}
	if res.Deleted || !res.Active {
		return fmt.Errorf("%w: resource %s", ErrNotFound, resourceID)
	}
	return nil
}

func (s *Service) validateCreate(params CreateBookingParams) error {
	vErr := &ValidationError{}

	if params.ResourceID == "" {
		vErr.add("resource_id", "resource_id is required")
	}
	if strings.TrimSpace(params.Title) == "" {
		vErr.add("title", "title is required")
	}
	validateRange(params.Start, params.End, vErr)

	if !params.Start.IsZero() && params.Start.Before(s.now()) {
		vErr.add("start", "start must not be in the past")
	}

	if params.RecurrenceRule != "" && s.expander != nil {
		if !s.expander.Validate(params.RecurrenceRule) {
			vErr.add("recurrence_rule", "recurrence rule is not valid")
		}
	}

	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

func validateRange(start, end time.Time, vErr *ValidationError) {
	if start.IsZero() {
		vErr.add("start", "start is required")
	}
	if end.IsZero() {
		vErr.add("end", "end is required")
	}
	if !start.IsZero() && !end.IsZero() && !start.Before(end) {
		vErr.add("time", "start must be before end")
	}
}

func validateException(params AddExceptionParams) error {
	vErr := &ValidationError{}

	if params.BookingID == "" {
		vErr.add("booking_id", "booking_id is required")
	}
	if params.ExceptionDate.IsZero() {
		vErr.add("exception_date", "exception_date is required")
	}

	switch params.ExceptionType {
	case ExceptionCancelled:
		if params.NewStartTime != nil || params.NewEndTime != nil || params.NewTitle != nil || params.NewDescription != nil {
			vErr.add("exception_type", "cancelled exceptions must not carry new values")
		}
	case ExceptionModified:
		if params.NewStartTime == nil || params.NewEndTime == nil {
			vErr.add("exception_type", "modified exceptions require new_start_time and new_end_time")
		} else if !params.NewStartTime.Before(*params.NewEndTime) {
			vErr.add("time", "new_start_time must be before new_end_time")
		}
	default:
		vErr.add("exception_type", "exception_type must be cancelled or modified")
	}

	if vErr.HasErrors() {
		return vErr
	}
	return nil
}
