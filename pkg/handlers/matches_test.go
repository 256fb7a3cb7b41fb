package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/coffee-matcher/matcher-engine/pkg/apperrors"
	"github.com/coffee-matcher/matcher-engine/pkg/models"
)

// serve registers routes on a fresh mux and sends one request through it.
func serve(register func(*http.ServeMux), method, target, body string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	register(mux)

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func newMatchesTestHandler(ms *mockMatchService, qs *mockQueryService) func(*http.ServeMux) {
	h := NewMatchesHandler(ms, qs, zap.NewNop())
	return func(mux *http.ServeMux) { h.RegisterRoutes(mux, nil) }
}

func TestMatchesHandler_Create(t *testing.T) {
	proposed := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	ms := &mockMatchService{match: &models.MatchRequest{ID: 5, Status: models.MatchStatusPending}}

	rec := serve(newMatchesTestHandler(ms, &mockQueryService{}), http.MethodPost, "/api/v1/matches",
		`{"requester_id":1,"target_id":2,"venue_id":3,"time_slot_id":4,"proposed_time":"2025-01-10T09:00:00Z","message":"coffee?"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, int64(1), ms.capturedCreate.RequesterID)
	assert.Equal(t, int64(4), *ms.capturedCreate.TimeSlotID)
	assert.True(t, ms.capturedCreate.ProposedTime.Equal(proposed))
	assert.Equal(t, "coffee?", *ms.capturedCreate.Message)

	var got models.MatchRequest
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, int64(5), got.ID)
	assert.Equal(t, models.MatchStatusPending, got.Status)
}

func TestMatchesHandler_Create_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
	}{
		{"malformed json", `{"requester_id":`, "invalid_request"},
		{"missing venue", `{"requester_id":1,"target_id":2,"proposed_time":"2025-01-10T09:00:00Z"}`, "validation_failed"},
		{"missing proposed time", `{"requester_id":1,"target_id":2,"venue_id":3}`, "validation_failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(newMatchesTestHandler(&mockMatchService{}, &mockQueryService{}), http.MethodPost, "/api/v1/matches", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec)["error"])
		})
	}
}

func TestMatchesHandler_Create_ServiceErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{apperrors.ErrInconsistentTime, http.StatusBadRequest},
		{apperrors.ErrInvalidReference, http.StatusBadRequest},
		{fmt.Errorf("venue 3: %w", apperrors.ErrNotFound), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			ms := &mockMatchService{err: tt.err}
			rec := serve(newMatchesTestHandler(ms, &mockQueryService{}), http.MethodPost, "/api/v1/matches",
				`{"requester_id":1,"target_id":2,"venue_id":3,"proposed_time":"2025-01-10T09:00:00Z"}`)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestMatchesHandler_Respond(t *testing.T) {
	ms := &mockMatchService{match: &models.MatchRequest{ID: 9, Status: models.MatchStatusRescheduled}}

	rec := serve(newMatchesTestHandler(ms, &mockQueryService{}), http.MethodPut, "/api/v1/matches/9/respond",
		`{"action":"reschedule","new_time_slot_id":12}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(9), ms.capturedID)
	assert.Equal(t, models.MatchActionReschedule, ms.capturedRespond.Action)
	assert.Equal(t, int64(12), *ms.capturedRespond.NewTimeSlotID)
	assert.Nil(t, ms.capturedRespond.NewVenueID)
}

func TestMatchesHandler_Respond_Errors(t *testing.T) {
	t.Run("unknown action", func(t *testing.T) {
		rec := serve(newMatchesTestHandler(&mockMatchService{}, &mockQueryService{}), http.MethodPut,
			"/api/v1/matches/9/respond", `{"action":"maybe"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeError(t, rec)["message"], "action must be one of")
	})

	t.Run("slot conflict", func(t *testing.T) {
		ms := &mockMatchService{err: fmt.Errorf("time slot 4 is already booked: %w", apperrors.ErrSlotConflict)}
		rec := serve(newMatchesTestHandler(ms, &mockQueryService{}), http.MethodPut,
			"/api/v1/matches/9/respond", `{"action":"accept"}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "slot_conflict", decodeError(t, rec)["error"])
	})

	t.Run("terminal", func(t *testing.T) {
		ms := &mockMatchService{err: apperrors.ErrInvalidState}
		rec := serve(newMatchesTestHandler(ms, &mockQueryService{}), http.MethodPut,
			"/api/v1/matches/9/respond", `{"action":"reject"}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "invalid_state", decodeError(t, rec)["error"])
	})

	t.Run("bad id", func(t *testing.T) {
		rec := serve(newMatchesTestHandler(&mockMatchService{}, &mockQueryService{}), http.MethodPut,
			"/api/v1/matches/abc/respond", `{"action":"accept"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_id", decodeError(t, rec)["error"])
	})
}

func TestMatchesHandler_GetAndDelete(t *testing.T) {
	ms := &mockMatchService{match: &models.MatchRequest{ID: 3}}
	register := newMatchesTestHandler(ms, &mockQueryService{})

	rec := serve(register, http.MethodGet, "/api/v1/matches/3", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(register, http.MethodDelete, "/api/v1/matches/3", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, int64(3), ms.capturedID)

	ms.err = apperrors.ErrNotFound
	rec = serve(register, http.MethodGet, "/api/v1/matches/3", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMatchesHandler_ReceivedAndSent(t *testing.T) {
	qs := &mockQueryService{views: []*models.MatchRequestView{
		{MatchRequest: models.MatchRequest{ID: 1, Status: models.MatchStatusPending}, RequesterName: "alice"},
	}}
	register := newMatchesTestHandler(&mockMatchService{}, qs)

	rec := serve(register, http.MethodGet, "/api/v1/matches/received/2?status=pending", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(2), *qs.capturedUserID)
	require.NotNil(t, qs.capturedStatus)
	assert.Equal(t, "pending", *qs.capturedStatus)

	var views []models.MatchRequestView
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&views))
	require.Len(t, views, 1)
	assert.Equal(t, "alice", views[0].RequesterName)

	rec = serve(register, http.MethodGet, "/api/v1/matches/sent/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, qs.capturedStatus)

	qs.err = fmt.Errorf("unknown status: %w", apperrors.ErrInvalidInput)
	rec = serve(register, http.MethodGet, "/api/v1/matches/sent/1?status=bogus", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
