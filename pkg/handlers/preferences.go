package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/coffee-matcher/matcher-engine/pkg/models"
	"github.com/coffee-matcher/matcher-engine/pkg/services"
)

// CreatePreferenceRequest is the request body for recording a preference.
type CreatePreferenceRequest struct {
	UserID          int64  `json:"user_id" validate:"required,gt=0"`
	PreferenceType  string `json:"preference_type" validate:"required,max=100"`
	PreferenceValue string `json:"preference_value"`
	Confidence      int    `json:"confidence" validate:"omitempty,min=1,max=100"`
}

// PreferencesHandler handles user preference HTTP requests.
type PreferencesHandler struct {
	prefService services.PreferenceService
	validate    *validator.Validate
	logger      *zap.Logger
}

// NewPreferencesHandler creates a new preferences handler.
func NewPreferencesHandler(prefService services.PreferenceService, logger *zap.Logger) *PreferencesHandler {
	return &PreferencesHandler{
		prefService: prefService,
		validate:    newValidator(),
		logger:      logger,
	}
}

// RegisterRoutes registers the preferences handler's routes on the given mux.
// GET takes a user id; PUT and DELETE take a preference id.
func (h *PreferencesHandler) RegisterRoutes(mux *http.ServeMux, scope RouteMiddleware) {
	handle(mux, "POST "+APIPrefix+"/preferences", scope, h.Create)
	handle(mux, "GET "+APIPrefix+"/preferences/{userId}", scope, h.ListByUser)
	handle(mux, "PUT "+APIPrefix+"/preferences/{id}", scope, h.Update)
	handle(mux, "DELETE "+APIPrefix+"/preferences/{id}", scope, h.Delete)
}

// Create handles POST /api/v1/preferences
func (h *PreferencesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePreferenceRequest
	if !decodeRequest(w, r, h.validate, &req, h.logger) {
		return
	}
	pref, err := h.prefService.Create(r.Context(), &models.UserPreference{
		UserID:          req.UserID,
		PreferenceType:  req.PreferenceType,
		PreferenceValue: req.PreferenceValue,
		Confidence:      req.Confidence,
	})
	if err != nil {
		writeServiceError(w, h.logger, "create preference", err)
		return
	}
	writeOK(w, h.logger, http.StatusCreated, pref)
}

// ListByUser handles GET /api/v1/preferences/{userId}
func (h *PreferencesHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := ParseID(w, r, "userId", h.logger)
	if !ok {
		return
	}
	prefs, err := h.prefService.ListByUser(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, "list preferences", err)
		return
	}
	writeOK(w, h.logger, http.StatusOK, prefs)
}

// Update handles PUT /api/v1/preferences/{id}
func (h *PreferencesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, "id", h.logger)
	if !ok {
		return
	}
	var patch models.PreferencePatch
	if !decodeRequest(w, r, h.validate, &patch, h.logger) {
		return
	}
	pref, err := h.prefService.Update(r.Context(), id, &patch)
	if err != nil {
		writeServiceError(w, h.logger, "update preference", err)
		return
	}
	writeOK(w, h.logger, http.StatusOK, pref)
}

// Delete handles DELETE /api/v1/preferences/{id}
func (h *PreferencesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, "id", h.logger)
	if !ok {
		return
	}
	if err := h.prefService.Delete(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, "delete preference", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
