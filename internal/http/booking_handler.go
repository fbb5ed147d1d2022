package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/booking-platform/internal/booking"
)

type bookingService interface {
	CreateBooking(ctx context.Context, params booking.CreateBookingParams) (booking.Booking, error)
	CancelBooking(ctx context.Context, params booking.CancelBookingParams) (booking.CancellationResult, error)
	GetBooking(ctx context.Context, id string) (booking.Booking, error)
	ListBookings(ctx context.Context, params booking.ListBookingsParams) ([]booking.Booking, error)
	AddException(ctx context.Context, params booking.AddExceptionParams) (booking.BookingException, error)
	ListExceptions(ctx context.Context, bookingID string) ([]booking.BookingException, error)
	DeleteException(ctx context.Context, id string) error
}

type BookingHandler struct {
	service   bookingService
	responder responder
	logger    *slog.Logger
}

func NewBookingHandler(service bookingService, logger *slog.Logger) *BookingHandler {
	base := defaultLogger(logger)
	return &BookingHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *BookingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "BookingHandler", operation, attrs...)
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode booking request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "resource_id", req.ResourceID)

	created, err := h.service.CreateBooking(r.Context(), req.toParams())
	if err != nil {
		logger.ErrorContext(r.Context(), "booking creation failed", "error", err, "error_kind", booking.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("booking_id", created.ID).InfoContext(r.Context(), "booking created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, bookingResponse{Booking: toBookingDTO(created)})
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID, ok := BookingIDFromContext(r.Context())
	if !ok || strings.TrimSpace(bookingID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	found, err := h.service.GetBooking(r.Context(), bookingID)
	if err != nil {
		h.log(r.Context(), "Get", "booking_id", bookingID).ErrorContext(r.Context(), "booking fetch failed", "error", err, "error_kind", booking.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, bookingResponse{Booking: toBookingDTO(found)})
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	params := booking.ListBookingsParams{
		ResourceID: strings.TrimSpace(query.Get("resource_id")),
		Start:      parseTime(query.Get("start")),
		End:        parseTime(query.Get("end")),
	}

	logger := h.log(r.Context(), "List", "resource_id", params.ResourceID)

	bookings, err := h.service.ListBookings(r.Context(), params)
	if err != nil {
		logger.ErrorContext(r.Context(), "booking list failed", "error", err, "error_kind", booking.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(bookings)).InfoContext(r.Context(), "bookings listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listBookingsResponse{Bookings: toBookingDTOs(bookings)})
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID, ok := BookingIDFromContext(r.Context())
	if !ok || strings.TrimSpace(bookingID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	query := r.URL.Query()
	params := booking.CancelBookingParams{
		BookingID: bookingID,
		Mode:      booking.CancelSingle,
	}
	if mode := strings.TrimSpace(query.Get("mode")); mode != "" {
		params.Mode = booking.CancelMode(mode)
	}
	if raw := strings.TrimSpace(query.Get("instance_date")); raw != "" {
		if date, err := parseDate(raw); err == nil {
			params.InstanceDate = &date
		}
	}

	logger := h.log(r.Context(), "Cancel", "booking_id", bookingID, "mode", string(params.Mode))

	result, err := h.service.CancelBooking(r.Context(), params)
	if err != nil {
		logger.ErrorContext(r.Context(), "booking cancellation failed", "error", err, "error_kind", booking.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("deleted_count", result.DeletedCount).InfoContext(r.Context(), "booking cancelled")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toCancellationDTO(result))
}

func (h *BookingHandler) CreateException(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID, ok := BookingIDFromContext(r.Context())
	if !ok || strings.TrimSpace(bookingID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	var req exceptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "CreateException", "booking_id", bookingID)

	exc, err := h.service.AddException(r.Context(), req.toParams(bookingID))
	if err != nil {
		logger.ErrorContext(r.Context(), "exception creation failed", "error", err, "error_kind", booking.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("exception_id", exc.ID).InfoContext(r.Context(), "exception recorded")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, exceptionResponse{Exception: toExceptionDTO(exc)})
}

func (h *BookingHandler) ListExceptions(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID, ok := BookingIDFromContext(r.Context())
	if !ok || strings.TrimSpace(bookingID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	exceptions, err := h.service.ListExceptions(r.Context(), bookingID)
	if err != nil {
		h.log(r.Context(), "ListExceptions", "booking_id", bookingID).ErrorContext(r.Context(), "exception list failed", "error", err, "error_kind", booking.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listExceptionsResponse{Exceptions: toExceptionDTOs(exceptions)})
}

func (h *BookingHandler) DeleteException(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	exceptionID, ok := ExceptionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(exceptionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidExceptionID)
		return
	}

	logger := h.log(r.Context(), "DeleteException", "exception_id", exceptionID)
	if err := h.service.DeleteException(r.Context(), exceptionID); err != nil {
		logger.ErrorContext(r.Context(), "exception delete failed", "error", err, "error_kind", booking.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "exception deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type bookingRequest struct {
	ResourceID     string `json:"resource_id"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	Start          string `json:"start"`
	End            string `json:"end"`
	RecurrenceRule string `json:"recurrence_rule"`
	CreatedBy      string `json:"created_by"`
}

func (r bookingRequest) toParams() booking.CreateBookingParams {
	return booking.CreateBookingParams{
		ResourceID:     strings.TrimSpace(r.ResourceID),
		Title:          strings.TrimSpace(r.Title),
		Description:    r.Description,
		Start:          parseTime(r.Start),
		End:            parseTime(r.End),
		RecurrenceRule: strings.TrimSpace(r.RecurrenceRule),
		CreatedBy:      strings.TrimSpace(r.CreatedBy),
	}
}

type exceptionRequest struct {
	ExceptionDate  string  `json:"exception_date"`
	ExceptionType  string  `json:"exception_type"`
	NewStartTime   *string `json:"new_start_time"`
	NewEndTime     *string `json:"new_end_time"`
	NewTitle       *string `json:"new_title"`
	NewDescription *string `json:"new_description"`
}

func (r exceptionRequest) toParams(bookingID string) booking.AddExceptionParams {
	params := booking.AddExceptionParams{
		BookingID:      bookingID,
		ExceptionType:  booking.ExceptionType(strings.TrimSpace(r.ExceptionType)),
		NewTitle:       r.NewTitle,
		NewDescription: r.NewDescription,
	}
	if date, err := parseDate(r.ExceptionDate); err == nil {
		params.ExceptionDate = date
	}
	if r.NewStartTime != nil {
		if ts := parseTime(*r.NewStartTime); !ts.IsZero() {
			params.NewStartTime = &ts
		}
	}
	if r.NewEndTime != nil {
		if ts := parseTime(*r.NewEndTime); !ts.IsZero() {
			params.NewEndTime = &ts
		}
	}
	return params
}

func parseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts
	}
	return time.Time{}
}

// parseDate accepts a bare calendar date or a full timestamp, truncating the
// latter to its UTC date.
func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if ts, err := time.Parse(time.DateOnly, value); err == nil {
		return ts, nil
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, err
	}
	ts = ts.UTC()
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC), nil
}

type bookingResponse struct {
	Booking bookingDTO `json:"booking"`
}

type listBookingsResponse struct {
	Bookings []bookingDTO `json:"bookings"`
}

type bookingDTO struct {
	ID                 string  `json:"id"`
	ResourceID         string  `json:"resource_id"`
	Title              string  `json:"title"`
	Description        string  `json:"description,omitempty"`
	Start              string  `json:"start"`
	End                string  `json:"end"`
	IsRecurring        bool    `json:"is_recurring"`
	RecurrenceRule     string  `json:"recurrence_rule,omitempty"`
	RecurrenceParentID *string `json:"recurrence_parent_id,omitempty"`
	SeriesID           *string `json:"series_id,omitempty"`
	OriginalStartTime  *string `json:"original_start_time,omitempty"`
	CreatedBy          string  `json:"created_by,omitempty"`
	CreatedAt          string  `json:"created_at"`
	UpdatedAt          string  `json:"updated_at"`
}

func toBookingDTO(b booking.Booking) bookingDTO {
	dto := bookingDTO{
		ID:                 b.ID,
		ResourceID:         b.ResourceID,
		Title:              b.Title,
		Description:        b.Description,
		Start:              b.Start.UTC().Format(time.RFC3339Nano),
		End:                b.End.UTC().Format(time.RFC3339Nano),
		IsRecurring:        b.IsRecurring,
		RecurrenceRule:     b.RecurrenceRule,
		RecurrenceParentID: b.RecurrenceParentID,
		SeriesID:           b.SeriesID,
		CreatedBy:          b.CreatedBy,
		CreatedAt:          b.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:          b.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if b.OriginalStartTime != nil {
		formatted := b.OriginalStartTime.UTC().Format(time.RFC3339Nano)
		dto.OriginalStartTime = &formatted
	}
	return dto
}

func toBookingDTOs(bookings []booking.Booking) []bookingDTO {
	if len(bookings) == 0 {
		return nil
	}
	out := make([]bookingDTO, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toBookingDTO(b))
	}
	return out
}

type cancellationDTO struct {
	Mode         string        `json:"mode"`
	BookingID    string        `json:"booking_id"`
	DeletedCount int           `json:"deleted_count"`
	Exception    *exceptionDTO `json:"exception,omitempty"`
}

func toCancellationDTO(result booking.CancellationResult) cancellationDTO {
	dto := cancellationDTO{
		Mode:         string(result.Mode),
		BookingID:    result.BookingID,
		DeletedCount: result.DeletedCount,
	}
	if result.Exception != nil {
		exc := toExceptionDTO(*result.Exception)
		dto.Exception = &exc
	}
	return dto
}

type exceptionResponse struct {
	Exception exceptionDTO `json:"exception"`
}

type listExceptionsResponse struct {
	Exceptions []exceptionDTO `json:"exceptions"`
}

type exceptionDTO struct {
	ID             string  `json:"id"`
	BookingID      string  `json:"booking_id"`
	ExceptionDate  string  `json:"exception_date"`
	ExceptionType  string  `json:"exception_type"`
	NewStartTime   *string `json:"new_start_time,omitempty"`
	NewEndTime     *string `json:"new_end_time,omitempty"`
	NewTitle       *string `json:"new_title,omitempty"`
	NewDescription *string `json:"new_description,omitempty"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
}

func toExceptionDTO(exc booking.BookingException) exceptionDTO {
	dto := exceptionDTO{
		ID:             exc.ID,
		BookingID:      exc.BookingID,
		ExceptionDate:  exc.ExceptionDate.UTC().Format(time.DateOnly),
		ExceptionType:  string(exc.ExceptionType),
		NewTitle:       exc.NewTitle,
		NewDescription: exc.NewDescription,
		CreatedAt:      exc.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:      exc.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if exc.NewStartTime != nil {
		formatted := exc.NewStartTime.UTC().Format(time.RFC3339Nano)
		dto.NewStartTime = &formatted
	}
	if exc.NewEndTime != nil {
		formatted := exc.NewEndTime.UTC().Format(time.RFC3339Nano)
		dto.NewEndTime = &formatted
	}
	return dto
}

func toExceptionDTOs(exceptions []booking.BookingException) []exceptionDTO {
	if len(exceptions) == 0 {
		return nil
	}
	out := make([]exceptionDTO, 0, len(exceptions))
	for _, exc := range exceptions {
		out = append(out, toExceptionDTO(exc))
	}
	return out
}

type conflictDTO struct {
	BookingID string `json:"booking_id"`
	Title     string `json:"title"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Kind      string `json:"kind"`
	Message   string `json:"message,omitempty"`
}

func toConflictDTOs(conflicts []booking.Conflict) []conflictDTO {
	if len(conflicts) == 0 {
		return nil
	}
	out := make([]conflictDTO, 0, len(conflicts))
	for _, c := range conflicts {
		out = append(out, conflictDTO{
			BookingID: c.BookingID,
			Title:     c.Title,
			Start:     c.Start.UTC().Format(time.RFC3339Nano),
			End:       c.End.UTC().Format(time.RFC3339Nano),
			Kind:      string(c.Kind),
			Message:   c.Message,
		})
	}
	return out
}

type slotDTO struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func toSlotDTOs(slots []booking.Slot) []slotDTO {
	if len(slots) == 0 {
		return nil
	}
	out := make([]slotDTO, 0, len(slots))
	for _, slot := range slots {
		out = append(out, slotDTO{
			Start: slot.Start.UTC().Format(time.RFC3339Nano),
			End:   slot.End.UTC().Format(time.RFC3339Nano),
		})
	}
	return out
}
