package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/coffee-matcher/matcher-engine/pkg/models"
	"github.com/coffee-matcher/matcher-engine/pkg/services"
)

// CreateVenueRequest is the request body for adding a venue.
type CreateVenueRequest struct {
	Name        string  `json:"name" validate:"required,max=255"`
	Type        string  `json:"type" validate:"required,oneof=coffee restaurant"`
	PriceRange  string  `json:"price_range"`
	Location    string  `json:"location"`
	Description *string `json:"description,omitempty"`
	CreatedByID *int64  `json:"created_by_id,omitempty" validate:"omitempty,gt=0"`
}

// VenuesHandler handles venue-related HTTP requests.
type VenuesHandler struct {
	venueService services.VenueService
	queryService services.QueryService
	validate     *validator.Validate
	logger       *zap.Logger
}

// NewVenuesHandler creates a new venues handler.
func NewVenuesHandler(venueService services.VenueService, queryService services.QueryService, logger *zap.Logger) *VenuesHandler {
	return &VenuesHandler{
		venueService: venueService,
		queryService: queryService,
		validate:     newValidator(),
		logger:       logger,
	}
}

// RegisterRoutes registers the venues handler's routes on the given mux.
func (h *VenuesHandler) RegisterRoutes(mux *http.ServeMux, scope RouteMiddleware) {
	handle(mux, "GET "+APIPrefix+"/venues", scope, h.List)
	handle(mux, "POST "+APIPrefix+"/venues", scope, h.Create)
	handle(mux, "GET "+APIPrefix+"/venues/{id}", scope, h.Get)
	handle(mux, "PUT "+APIPrefix+"/venues/{id}", scope, h.Update)
	handle(mux, "DELETE "+APIPrefix+"/venues/{id}", scope, h.Delete)
}

// List handles GET /api/v1/venues?venue_type=&skip=&limit=
func (h *VenuesHandler) List(w http.ResponseWriter, r *http.Request) {
	offset, limit, ok := ParsePage(w, r, h.logger)
	if !ok {
		return
	}
	venues, err := h.queryService.ListVenues(r.Context(), optionalQuery(r, "venue_type"), offset, limit)
	if err != nil {
		writeServiceError(w, h.logger, "list venues", err)
		return
	}
	writeOK(w, h.logger, http.StatusOK, venues)
}

// Create handles POST /api/v1/venues
func (h *VenuesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateVenueRequest
	if !decodeRequest(w, r, h.validate, &req, h.logger) {
		return
	}
	venue, err := h.venueService.Create(r.Context(), &models.Venue{
		Name:        req.Name,
		Type:        req.Type,
		PriceRange:  req.PriceRange,
		Location:    req.Location,
		Description: req.Description,
		CreatedByID: req.CreatedByID,
	})
	if err != nil {
		writeServiceError(w, h.logger, "create venue", err)
		return
	}
	writeOK(w, h.logger, http.StatusCreated, venue)
}

// Get handles GET /api/v1/venues/{id}
func (h *VenuesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, "id", h.logger)
	if !ok {
		return
	}
	venue, err := h.venueService.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, "get venue", err)
		return
	}
	writeOK(w, h.logger, http.StatusOK, venue)
}

// Update handles PUT /api/v1/venues/{id}
func (h *VenuesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, "id", h.logger)
	if !ok {
		return
	}
	var patch models.VenuePatch
	if !decodeRequest(w, r, h.validate, &patch, h.logger) {
		return
	}
	venue, err := h.venueService.Update(r.Context(), id, &patch)
	if err != nil {
		writeServiceError(w, h.logger, "update venue", err)
		return
	}
	writeOK(w, h.logger, http.StatusOK, venue)
}

// Delete handles DELETE /api/v1/venues/{id}
func (h *VenuesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, "id", h.logger)
	if !ok {
		return
	}
	if err := h.venueService.Delete(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, "delete venue", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
