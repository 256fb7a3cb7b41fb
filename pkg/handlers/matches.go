package handlers

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/coffee-matcher/matcher-engine/pkg/services"
)

// CreateMatchRequest is the request body for proposing a meetup.
type CreateMatchRequest struct {
	RequesterID  int64     `json:"requester_id" validate:"required,gt=0"`
	TargetID     int64     `json:"target_id" validate:"required,gt=0"`
	VenueID      int64     `json:"venue_id" validate:"required,gt=0"`
	TimeSlotID   *int64    `json:"time_slot_id,omitempty" validate:"omitempty,gt=0"`
	ProposedTime time.Time `json:"proposed_time" validate:"required"`
	Message      *string   `json:"message,omitempty" validate:"omitempty,max=2000"`
}

// RespondMatchRequest is the request body for answering a match request.
type RespondMatchRequest struct {
	Action        string `json:"action" validate:"required,oneof=accept reject reschedule"`
	NewTimeSlotID *int64 `json:"new_time_slot_id,omitempty" validate:"omitempty,gt=0"`
	NewVenueID    *int64 `json:"new_venue_id,omitempty" validate:"omitempty,gt=0"`
}

// MatchesHandler handles match request HTTP requests.
type MatchesHandler struct {
	matchService services.MatchService
	queryService services.QueryService
	validate     *validator.Validate
	logger       *zap.Logger
}

// NewMatchesHandler creates a new matches handler.
func NewMatchesHandler(matchService services.MatchService, queryService services.QueryService, logger *zap.Logger) *MatchesHandler {
	return &MatchesHandler{
		matchService: matchService,
		queryService: queryService,
		validate:     newValidator(),
		logger:       logger,
	}
}

// RegisterRoutes registers the matches handler's routes on the given mux.
func (h *MatchesHandler) RegisterRoutes(mux *http.ServeMux, scope RouteMiddleware) {
	handle(mux, "POST "+APIPrefix+"/matches", scope, h.Create)
	handle(mux, "GET "+APIPrefix+"/matches/{id}", scope, h.Get)
	handle(mux, "DELETE "+APIPrefix+"/matches/{id}", scope, h.Delete)
	handle(mux, "PUT "+APIPrefix+"/matches/{id}/respond", scope, h.Respond)
	handle(mux, "GET "+APIPrefix+"/matches/received/{userId}", scope, h.Received)
	handle(mux, "GET "+APIPrefix+"/matches/sent/{userId}", scope, h.Sent)
}

// Create handles POST /api/v1/matches
func (h *MatchesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateMatchRequest
	if !decodeRequest(w, r, h.validate, &req, h.logger) {
		return
	}
	match, err := h.matchService.Create(r.Context(), services.CreateMatchInput{
		RequesterID:  req.RequesterID,
		TargetID:     req.TargetID,
		VenueID:      req.VenueID,
		TimeSlotID:   req.TimeSlotID,
		ProposedTime: req.ProposedTime,
		Message:      req.Message,
	})
	if err != nil {
		writeServiceError(w, h.logger, "create match request", err)
		return
	}
	writeOK(w, h.logger, http.StatusCreated, match)
}

// Get handles GET /api/v1/matches/{id}
func (h *MatchesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, "id", h.logger)
	if !ok {
		return
	}
	match, err := h.matchService.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, "get match request", err)
		return
	}
	writeOK(w, h.logger, http.StatusOK, match)
}

// Delete handles DELETE /api/v1/matches/{id}
func (h *MatchesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, "id", h.logger)
	if !ok {
		return
	}
	if err := h.matchService.Delete(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, "delete match request", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Respond handles PUT /api/v1/matches/{id}/respond
func (h *MatchesHandler) Respond(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, "id", h.logger)
	if !ok {
		return
	}
	var req RespondMatchRequest
	if !decodeRequest(w, r, h.validate, &req, h.logger) {
		return
	}
	match, err := h.matchService.Respond(r.Context(), id, services.RespondInput{
		Action:        req.Action,
		NewTimeSlotID: req.NewTimeSlotID,
		NewVenueID:    req.NewVenueID,
	})
	if err != nil {
		writeServiceError(w, h.logger, "respond to match request", err)
		return
	}
	writeOK(w, h.logger, http.StatusOK, match)
}

// Received handles GET /api/v1/matches/received/{userId}?status=
func (h *MatchesHandler) Received(w http.ResponseWriter, r *http.Request) {
	userID, ok := ParseID(w, r, "userId", h.logger)
	if !ok {
		return
	}
	views, err := h.queryService.ListReceived(r.Context(), userID, optionalQuery(r, "status"))
	if err != nil {
		writeServiceError(w, h.logger, "list received", err)
		return
	}
	writeOK(w, h.logger, http.StatusOK, views)
}

// Sent handles GET /api/v1/matches/sent/{userId}?status=
func (h *MatchesHandler) Sent(w http.ResponseWriter, r *http.Request) {
	userID, ok := ParseID(w, r, "userId", h.logger)
	if !ok {
		return
	}
	views, err := h.queryService.ListSent(r.Context(), userID, optionalQuery(r, "status"))
	if err != nil {
		writeServiceError(w, h.logger, "list sent", err)
		return
	}
	writeOK(w, h.logger, http.StatusOK, views)
}
