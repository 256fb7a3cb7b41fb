package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/coffee-matcher/matcher-engine/pkg/apperrors"
)

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// errorMapping pairs a domain sentinel with its HTTP status and error code.
type errorMapping struct {
	target error
	status int
	code   string
}

var serviceErrors = []errorMapping{
	{apperrors.ErrNotFound, http.StatusNotFound, "not_found"},
	{apperrors.ErrInvalidReference, http.StatusBadRequest, "invalid_reference"},
	{apperrors.ErrInconsistentTime, http.StatusBadRequest, "inconsistent_time"},
	{apperrors.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{apperrors.ErrInvalidState, http.StatusConflict, "invalid_state"},
	{apperrors.ErrSlotConflict, http.StatusConflict, "slot_conflict"},
	{apperrors.ErrConflict, http.StatusConflict, "conflict"},
}

// statusForError returns the HTTP status and error code for a service error.
func statusForError(err error) (int, string) {
	for _, m := range serviceErrors {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal_error"
}

// writeServiceError translates err into a JSON error response. Domain errors
// carry their message to the client; anything else is logged and hidden.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, op string, err error) {
	status, code := statusForError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("Request failed", zap.String("operation", op), zap.Error(err))
		message = "Internal server error"
	}
	if err := ErrorResponse(w, status, code, message); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}

// writeOK encodes data with the given status and logs encoding failures.
func writeOK(w http.ResponseWriter, logger *zap.Logger, status int, data any) {
	if err := WriteJSON(w, status, data); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}
