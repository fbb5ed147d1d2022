package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/booking-platform/internal/booking"
)

type availabilityService interface {
	GetAvailability(ctx context.Context, resourceID string, rangeStart, rangeEnd time.Time, durationMinutes int) ([]booking.Slot, error)
	GetUtilizationSummary(ctx context.Context, resourceID string, rangeStart, rangeEnd time.Time) (booking.UtilizationSummary, error)
}

type AvailabilityHandler struct {
	service   availabilityService
	responder responder
	logger    *slog.Logger
}

func NewAvailabilityHandler(service availabilityService, logger *slog.Logger) *AvailabilityHandler {
	base := defaultLogger(logger)
	return &AvailabilityHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AvailabilityHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AvailabilityHandler", operation, attrs...)
}

func (h *AvailabilityHandler) Availability(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resourceID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(resourceID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	query := r.URL.Query()
	rangeStart := parseTime(query.Get("start"))
	rangeEnd := parseTime(query.Get("end"))

	durationMinutes := 0
	if raw := strings.TrimSpace(query.Get("duration_minutes")); raw != "" {
		if minutes, err := strconv.Atoi(raw); err == nil {
			durationMinutes = minutes
		}
	}

	logger := h.log(r.Context(), "Availability", "resource_id", resourceID)

	slots, err := h.service.GetAvailability(r.Context(), resourceID, rangeStart, rangeEnd, durationMinutes)
	if err != nil {
		logger.ErrorContext(r.Context(), "availability query failed", "error", err, "error_kind", booking.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("slot_count", len(slots)).InfoContext(r.Context(), "availability listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, availabilityResponse{
		ResourceID: resourceID,
		Slots:      toSlotDTOs(slots),
	})
}

func (h *AvailabilityHandler) Utilization(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resourceID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(resourceID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	query := r.URL.Query()
	rangeStart := parseTime(query.Get("start"))
	rangeEnd := parseTime(query.Get("end"))

	logger := h.log(r.Context(), "Utilization", "resource_id", resourceID)

	summary, err := h.service.GetUtilizationSummary(r.Context(), resourceID, rangeStart, rangeEnd)
	if err != nil {
		logger.ErrorContext(r.Context(), "utilization query failed", "error", err, "error_kind", booking.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toUtilizationDTO(summary))
}

type availabilityResponse struct {
	ResourceID string    `json:"resource_id"`
	Slots      []slotDTO `json:"slots"`
}

type utilizationDTO struct {
	ResourceID         string   `json:"resource_id"`
	RangeStart         string   `json:"range_start"`
	RangeEnd           string   `json:"range_end"`
	TotalBusinessHours float64  `json:"total_business_hours"`
	BookedHours        float64  `json:"booked_hours"`
	AvailableHours     float64  `json:"available_hours"`
	UtilizationRate    float64  `json:"utilization_rate"`
	BusyDays           []string `json:"busy_days"`
	AvailableDays      []string `json:"available_days"`
}

func toUtilizationDTO(summary booking.UtilizationSummary) utilizationDTO {
	return utilizationDTO{
		ResourceID:         summary.ResourceID,
		RangeStart:         summary.RangeStart.UTC().Format(time.RFC3339Nano),
		RangeEnd:           summary.RangeEnd.UTC().Format(time.RFC3339Nano),
		TotalBusinessHours: summary.TotalBusinessHours,
		BookedHours:        summary.BookedHours,
		AvailableHours:     summary.AvailableHours,
		UtilizationRate:    summary.UtilizationRate,
		BusyDays:           summary.BusyDays,
		AvailableDays:      summary.AvailableDays,
	}
}
