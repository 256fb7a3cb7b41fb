package handlers

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/coffee-matcher/matcher-engine/pkg/models"
	"github.com/coffee-matcher/matcher-engine/pkg/services"
)

// CreateTimeSlotRequest is the request body for publishing availability.
type CreateTimeSlotRequest struct {
	UserID    int64     `json:"user_id" validate:"required,gt=0"`
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
}

// TimeSlotsHandler handles time slot HTTP requests.
type TimeSlotsHandler struct {
	slotService  services.TimeSlotService
	queryService services.QueryService
	validate     *validator.Validate
	logger       *zap.Logger
}

// NewTimeSlotsHandler creates a new time slots handler.
func NewTimeSlotsHandler(slotService services.TimeSlotService, queryService services.QueryService, logger *zap.Logger) *TimeSlotsHandler {
	return &TimeSlotsHandler{
		slotService:  slotService,
		queryService: queryService,
		validate:     newValidator(),
		logger:       logger,
	}
}

// RegisterRoutes registers the time slots handler's routes on the given mux.
func (h *TimeSlotsHandler) RegisterRoutes(mux *http.ServeMux, scope RouteMiddleware) {
	handle(mux, "GET "+APIPrefix+"/timeslots", scope, h.List)
	handle(mux, "POST "+APIPrefix+"/timeslots", scope, h.Create)
	handle(mux, "GET "+APIPrefix+"/timeslots/{id}", scope, h.Get)
	handle(mux, "PUT "+APIPrefix+"/timeslots/{id}", scope, h.Update)
	handle(mux, "DELETE "+APIPrefix+"/timeslots/{id}", scope, h.Delete)
	handle(mux, "POST "+APIPrefix+"/timeslots/{id}/release", scope, h.Release)
}

// List handles GET /api/v1/timeslots?user_id=
// With user_id every slot of that user is returned; without it, every
// available future slot.
func (h *TimeSlotsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := optionalQueryID(w, r, "user_id", h.logger)
	if !ok {
		return
	}

	var (
		slots []*models.TimeSlot
		err   error
	)
	if userID != nil {
		slots, err = h.queryService.ListSlots(r.Context(), *userID)
	} else {
		slots, err = h.queryService.ListAvailableSlots(r.Context(), nil)
	}
	if err != nil {
		writeServiceError(w, h.logger, "list time slots", err)
		return
	}
	writeOK(w, h.logger, http.StatusOK, slots)
}

// Create handles POST /api/v1/timeslots
func (h *TimeSlotsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTimeSlotRequest
	if !decodeRequest(w, r, h.validate, &req, h.logger) {
		return
	}
	slot, err := h.slotService.Create(r.Context(), &models.TimeSlot{
		UserID:    req.UserID,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	})
	if err != nil {
		writeServiceError(w, h.logger, "create time slot", err)
		return
	}
	writeOK(w, h.logger, http.StatusCreated, slot)
}

// Get handles GET /api/v1/timeslots/{id}
func (h *TimeSlotsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, "id", h.logger)
	if !ok {
		return
	}
	slot, err := h.slotService.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, "get time slot", err)
		return
	}
	writeOK(w, h.logger, http.StatusOK, slot)
}

// Update handles PUT /api/v1/timeslots/{id}
// Only the window can change; booking state is not patchable.
func (h *TimeSlotsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, "id", h.logger)
	if !ok {
		return
	}
	var patch models.TimeSlotPatch
	if !decodeRequest(w, r, h.validate, &patch, h.logger) {
		return
	}
	slot, err := h.slotService.Update(r.Context(), id, &patch)
	if err != nil {
		writeServiceError(w, h.logger, "update time slot", err)
		return
	}
	writeOK(w, h.logger, http.StatusOK, slot)
}

// Delete handles DELETE /api/v1/timeslots/{id}
func (h *TimeSlotsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, "id", h.logger)
	if !ok {
		return
	}
	if err := h.slotService.Delete(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, "delete time slot", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Release handles POST /api/v1/timeslots/{id}/release
// Releasing an available slot is a no-op.
func (h *TimeSlotsHandler) Release(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, "id", h.logger)
	if !ok {
		return
	}
	slot, err := h.slotService.Release(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, "release time slot", err)
		return
	}
	writeOK(w, h.logger, http.StatusOK, slot)
}
