package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/booking-platform/internal/booking"
)

var (
	errBadRequestBody     = errors.New("request body is not valid JSON")
	errInvalidBookingID   = errors.New("a booking id is required in the path")
	errInvalidResourceID  = errors.New("a resource id is required in the path")
	errInvalidExceptionID = errors.New("an exception id is required in the path")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// handleServiceError translates the booking error taxonomy into HTTP status
// codes. Conflicts answer 409 with the full conflict list and the alternative
// slots the planner produced.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	var cErr *booking.ConflictError
	if errors.As(err, &cErr) {
		r.writeJSON(ctx, w, http.StatusConflict, conflictErrorResponse{
			ErrorCode:   "BOOKING_CONFLICT",
			Message:     cErr.Error(),
			Conflicts:   toConflictDTOs(cErr.Conflicts),
			Suggestions: toSlotDTOs(cErr.Suggestions),
		})
		return
	}

	var vErr *booking.ValidationError
	if errors.As(err, &vErr) {
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			Message: "validation failed",
			Errors:  vErr.FieldErrors,
		})
		return
	}

	if errors.Is(err, booking.ErrNotFound) {
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: "the requested resource was not found"})
		return
	}

	r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "an internal error occurred"})
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}

type conflictErrorResponse struct {
	ErrorCode   string        `json:"error_code"`
	Message     string        `json:"message"`
	Conflicts   []conflictDTO `json:"conflicts"`
	Suggestions []slotDTO     `json:"suggestions,omitempty"`
}
