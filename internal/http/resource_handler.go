package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/booking-platform/internal/booking"
	"github.com/example/booking-platform/internal/persistence"
)

var errDuplicateResource = errors.New("a resource with this id already exists")

type ResourceHandler struct {
	resources   persistence.ResourceRepository
	responder   responder
	logger      *slog.Logger
	idGenerator func() string
	now         func() time.Time
}

func NewResourceHandler(resources persistence.ResourceRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ResourceHandler {
	base := defaultLogger(logger)
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ResourceHandler{
		resources:   resources,
		responder:   newResponder(base),
		logger:      base,
		idGenerator: idGenerator,
		now:         now,
	}
}

func (h *ResourceHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ResourceHandler", operation, attrs...)
}

func (h *ResourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.resources == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req resourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	if err := req.validate(); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	now := h.now().UTC()
	resource := persistence.Resource{
		ID:        h.idGenerator(),
		Name:      strings.TrimSpace(req.Name),
		Capacity:  req.Capacity,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Active != nil {
		resource.Active = *req.Active
	}

	logger := h.log(r.Context(), "Create", "resource_id", resource.ID)

	if err := h.resources.CreateResource(r.Context(), resource); err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			h.responder.writeError(r.Context(), w, http.StatusConflict, errDuplicateResource)
			return
		}
		logger.ErrorContext(r.Context(), "resource creation failed", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "resource created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, resourceResponse{Resource: toResourceDTO(resource)})
}

func (h *ResourceHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.resources == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resourceID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(resourceID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	var req resourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	if err := req.validate(); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger := h.log(r.Context(), "Update", "resource_id", resourceID)

	existing, err := h.resources.GetResource(r.Context(), resourceID)
	if err != nil {
		h.handleRepoError(r.Context(), w, logger, "resource fetch failed", err)
		return
	}

	existing.Name = strings.TrimSpace(req.Name)
	existing.Capacity = req.Capacity
	if req.Active != nil {
		existing.Active = *req.Active
	}
	existing.UpdatedAt = h.now().UTC()

	if err := h.resources.UpdateResource(r.Context(), existing); err != nil {
		h.handleRepoError(r.Context(), w, logger, "resource update failed", err)
		return
	}

	logger.InfoContext(r.Context(), "resource updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resourceResponse{Resource: toResourceDTO(existing)})
}

func (h *ResourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.resources == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resourceID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(resourceID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	logger := h.log(r.Context(), "Delete", "resource_id", resourceID)

	if err := h.resources.DeleteResource(r.Context(), resourceID, h.now().UTC()); err != nil {
		h.handleRepoError(r.Context(), w, logger, "resource delete failed", err)
		return
	}

	logger.InfoContext(r.Context(), "resource deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *ResourceHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.resources == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "List")

	resources, err := h.resources.ListResources(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "resource list failed", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(resources)).InfoContext(r.Context(), "resources listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listResourcesResponse{Resources: toResourceDTOs(resources)})
}

func (h *ResourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.resources == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resourceID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(resourceID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	resource, err := h.resources.GetResource(r.Context(), resourceID)
	if err != nil {
		h.handleRepoError(r.Context(), w, h.log(r.Context(), "Get", "resource_id", resourceID), "resource fetch failed", err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, resourceResponse{Resource: toResourceDTO(resource)})
}

func (h *ResourceHandler) handleRepoError(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, message string, err error) {
	if errors.Is(err, persistence.ErrNotFound) {
		h.responder.handleServiceError(ctx, w, fmt.Errorf("%w: resource", booking.ErrNotFound))
		return
	}
	logger.ErrorContext(ctx, message, "error", err)
	h.responder.handleServiceError(ctx, w, err)
}

type resourceRequest struct {
	Name     string `json:"name"`
	Capacity *int   `json:"capacity"`
	Active   *bool  `json:"active"`
}

func (r resourceRequest) validate() error {
	fieldErrors := make(map[string]string)
	if strings.TrimSpace(r.Name) == "" {
		fieldErrors["name"] = "name is required"
	}
	if r.Capacity != nil && *r.Capacity <= 0 {
		fieldErrors["capacity"] = "capacity must be positive"
	}
	if len(fieldErrors) > 0 {
		return &booking.ValidationError{FieldErrors: fieldErrors}
	}
	return nil
}

type resourceResponse struct {
	Resource resourceDTO `json:"resource"`
}

type listResourcesResponse struct {
	Resources []resourceDTO `json:"resources"`
}

type resourceDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Capacity  *int   `json:"capacity,omitempty"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toResourceDTO(resource persistence.Resource) resourceDTO {
	return resourceDTO{
		ID:        resource.ID,
		Name:      resource.Name,
		Capacity:  resource.Capacity,
		Active:    resource.Active,
		CreatedAt: resource.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: resource.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toResourceDTOs(resources []persistence.Resource) []resourceDTO {
	if len(resources) == 0 {
		return nil
	}
	out := make([]resourceDTO, 0, len(resources))
	for _, resource := range resources {
		out = append(out, toResourceDTO(resource))
	}
	return out
}
