package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Pagination defaults for list endpoints.
const (
	defaultLimit = 100
	maxLimit     = 500
)

// ParseID extracts a positive integer id from the named path parameter.
// Returns the id and true on success, or 0 and false on error
// (after writing an error response).
func ParseID(w http.ResponseWriter, r *http.Request, pathParam string, logger *zap.Logger) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(pathParam), 10, 64)
	if err != nil || id <= 0 {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_id",
			fmt.Sprintf("Invalid %s: must be a positive integer", pathParam)); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return 0, false
	}
	return id, true
}

// ParsePage reads the skip and limit query parameters.
// Expects query parameters: skip (default 0), limit (default 100, max 500)
func ParsePage(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (offset, limit int, ok bool) {
	offset, limit = 0, defaultLimit
	q := r.URL.Query()

	if s := q.Get("skip"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			writeBadRequest(w, logger, "invalid_skip", "skip must be a non-negative integer")
			return 0, 0, false
		}
		offset = v
	}
	if s := q.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v <= 0 {
			writeBadRequest(w, logger, "invalid_limit", "limit must be a positive integer")
			return 0, 0, false
		}
		limit = min(v, maxLimit)
	}
	return offset, limit, true
}

// optionalQuery returns a pointer to the trimmed query value, or nil when absent.
func optionalQuery(r *http.Request, name string) *string {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return nil
	}
	return &v
}

// optionalQueryID parses an optional positive integer query parameter.
func optionalQueryID(w http.ResponseWriter, r *http.Request, name string, logger *zap.Logger) (*int64, bool) {
	s := optionalQuery(r, name)
	if s == nil {
		return nil, true
	}
	id, err := strconv.ParseInt(*s, 10, 64)
	if err != nil || id <= 0 {
		writeBadRequest(w, logger, "invalid_"+name, name+" must be a positive integer")
		return nil, false
	}
	return &id, true
}

// decodeRequest decodes the JSON body into dst and runs struct validation.
// Returns false after writing a 400 response on failure.
func decodeRequest(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst any, logger *zap.Logger) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeBadRequest(w, logger, "invalid_request", "Invalid request body")
		return false
	}
	if err := v.Struct(dst); err != nil {
		writeBadRequest(w, logger, "validation_failed", validationMessage(err))
		return false
	}
	return true
}

// validationMessage flattens validator errors into one readable line.
func validationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fe.Field()+" is required")
		case "oneof":
			parts = append(parts, fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

func writeBadRequest(w http.ResponseWriter, logger *zap.Logger, code, message string) {
	if err := ErrorResponse(w, http.StatusBadRequest, code, message); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}

// newValidator returns a validator that reports JSON field names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
