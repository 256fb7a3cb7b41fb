package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/coffee-matcher/matcher-engine/pkg/models"
	"github.com/coffee-matcher/matcher-engine/pkg/services"
)

// CreateUserRequest is the request body for registering a user.
type CreateUserRequest struct {
	Name           string  `json:"name" validate:"required,max=255"`
	Email          string  `json:"email" validate:"required,email"`
	Bio            *string `json:"bio,omitempty"`
	Location       *string `json:"location,omitempty"`
	AIAnalysisJSON *string `json:"ai_analysis_json,omitempty"`
}

// LoginRequest is the request body for the email lookup.
type LoginRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// UsersHandler handles user-related HTTP requests.
type UsersHandler struct {
	userService  services.UserService
	queryService services.QueryService
	validate     *validator.Validate
	logger       *zap.Logger
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(userService services.UserService, queryService services.QueryService, logger *zap.Logger) *UsersHandler {
	return &UsersHandler{
		userService:  userService,
		queryService: queryService,
		validate:     newValidator(),
		logger:       logger,
	}
}

// RegisterRoutes registers the users handler's routes on the given mux.
func (h *UsersHandler) RegisterRoutes(mux *http.ServeMux, scope RouteMiddleware) {
	handle(mux, "POST "+APIPrefix+"/auth/login", scope, h.Login)
	handle(mux, "GET "+APIPrefix+"/users", scope, h.List)
	handle(mux, "POST "+APIPrefix+"/users", scope, h.Create)
	handle(mux, "GET "+APIPrefix+"/users/{id}", scope, h.Get)
	handle(mux, "PUT "+APIPrefix+"/users/{id}", scope, h.Update)
	handle(mux, "DELETE "+APIPrefix+"/users/{id}", scope, h.Delete)
	handle(mux, "GET "+APIPrefix+"/users/{id}/timeslots", scope, h.AvailableSlots)
	handle(mux, "GET "+APIPrefix+"/directory", scope, h.Directory)
}

// Login handles POST /api/v1/auth/login
// Looks a user up by email. No credentials are checked.
func (h *UsersHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeRequest(w, r, h.validate, &req, h.logger) {
		return
	}
	user, err := h.userService.Login(r.Context(), req.Email)
	if err != nil {
		writeServiceError(w, h.logger, "login", err)
		return
	}
	writeOK(w, h.logger, http.StatusOK, user)
}

// List handles GET /api/v1/users?skip=&limit=
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	offset, limit, ok := ParsePage(w, r, h.logger)
	if !ok {
		return
	}
	users, err := h.userService.List(r.Context(), offset, limit)
	if err != nil {
		writeServiceError(w, h.logger, "list users", err)
		return
	}
	writeOK(w, h.logger, http.StatusOK, users)
}

// Create handles POST /api/v1/users
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !decodeRequest(w, r, h.validate, &req, h.logger) {
		return
	}
	user, err := h.userService.Create(r.Context(), &models.User{
		Name:           req.Name,
		Email:          req.Email,
		Bio:            req.Bio,
		Location:       req.Location,
		AIAnalysisJSON: req.AIAnalysisJSON,
	})
	if err != nil {
		writeServiceError(w, h.logger, "create user", err)
		return
	}
	writeOK(w, h.logger, http.StatusCreated, user)
}

// Get handles GET /api/v1/users/{id}
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, "id", h.logger)
	if !ok {
		return
	}
	user, err := h.userService.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, "get user", err)
		return
	}
	writeOK(w, h.logger, http.StatusOK, user)
}

// Update handles PUT /api/v1/users/{id}
// Only fields present in the body are changed.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, "id", h.logger)
	if !ok {
		return
	}
	var patch models.UserPatch
	if !decodeRequest(w, r, h.validate, &patch, h.logger) {
		return
	}
	user, err := h.userService.Update(r.Context(), id, &patch)
	if err != nil {
		writeServiceError(w, h.logger, "update user", err)
		return
	}
	writeOK(w, h.logger, http.StatusOK, user)
}

// Delete handles DELETE /api/v1/users/{id}
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, "id", h.logger)
	if !ok {
		return
	}
	if err := h.userService.Delete(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, "delete user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AvailableSlots handles GET /api/v1/users/{id}/timeslots
// Returns the user's future available slots, earliest first.
func (h *UsersHandler) AvailableSlots(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, "id", h.logger)
	if !ok {
		return
	}
	slots, err := h.queryService.ListAvailableSlots(r.Context(), &id)
	if err != nil {
		writeServiceError(w, h.logger, "list user slots", err)
		return
	}
	writeOK(w, h.logger, http.StatusOK, slots)
}

// Directory handles GET /api/v1/directory?skip=&limit=
func (h *UsersHandler) Directory(w http.ResponseWriter, r *http.Request) {
	offset, limit, ok := ParsePage(w, r, h.logger)
	if !ok {
		return
	}
	entries, err := h.queryService.Directory(r.Context(), offset, limit)
	if err != nil {
		writeServiceError(w, h.logger, "directory", err)
		return
	}
	writeOK(w, h.logger, http.StatusOK, entries)
}
