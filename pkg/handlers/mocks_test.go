package handlers

import (
	"context"

	"github.com/coffee-matcher/matcher-engine/pkg/models"
	"github.com/coffee-matcher/matcher-engine/pkg/services"
)

// mockMatchService records inputs and returns configured results.
type mockMatchService struct {
	match *models.MatchRequest
	err   error

	capturedCreate  services.CreateMatchInput
	capturedRespond services.RespondInput
	capturedID      int64
}

func (m *mockMatchService) Create(ctx context.Context, input services.CreateMatchInput) (*models.MatchRequest, error) {
	m.capturedCreate = input
	return m.match, m.err
}

func (m *mockMatchService) Respond(ctx context.Context, matchID int64, input services.RespondInput) (*models.MatchRequest, error) {
	m.capturedID = matchID
	m.capturedRespond = input
	return m.match, m.err
}

func (m *mockMatchService) Get(ctx context.Context, matchID int64) (*models.MatchRequest, error) {
	m.capturedID = matchID
	return m.match, m.err
}

func (m *mockMatchService) Delete(ctx context.Context, matchID int64) error {
	m.capturedID = matchID
	return m.err
}

// mockQueryService returns configured projections.
type mockQueryService struct {
	views     []*models.MatchRequestView
	slots     []*models.TimeSlot
	venues    []*models.Venue
	directory []*models.DirectoryEntry
	err       error

	capturedUserID *int64
	capturedStatus *string
	capturedType   *string
	capturedOffset int
	capturedLimit  int
	calledListAll  bool
}

func (m *mockQueryService) ListReceived(ctx context.Context, userID int64, status *string) ([]*models.MatchRequestView, error) {
	m.capturedUserID = &userID
	m.capturedStatus = status
	return m.views, m.err
}

func (m *mockQueryService) ListSent(ctx context.Context, userID int64, status *string) ([]*models.MatchRequestView, error) {
	m.capturedUserID = &userID
	m.capturedStatus = status
	return m.views, m.err
}

func (m *mockQueryService) ListAvailableSlots(ctx context.Context, userID *int64) ([]*models.TimeSlot, error) {
	m.capturedUserID = userID
	return m.slots, m.err
}

func (m *mockQueryService) ListSlots(ctx context.Context, userID int64) ([]*models.TimeSlot, error) {
	m.capturedUserID = &userID
	m.calledListAll = true
	return m.slots, m.err
}

func (m *mockQueryService) ListVenues(ctx context.Context, venueType *string, offset, limit int) ([]*models.Venue, error) {
	m.capturedType = venueType
	m.capturedOffset = offset
	m.capturedLimit = limit
	return m.venues, m.err
}

func (m *mockQueryService) Directory(ctx context.Context, offset, limit int) ([]*models.DirectoryEntry, error) {
	m.capturedOffset = offset
	m.capturedLimit = limit
	return m.directory, m.err
}

// mockUserService is a configurable mock for testing UsersHandler.
type mockUserService struct {
	user  *models.User
	users []*models.User
	err   error

	capturedUser   *models.User
	capturedEmail  string
	capturedPatch  *models.UserPatch
	capturedOffset int
	capturedLimit  int
}

func (m *mockUserService) Create(ctx context.Context, user *models.User) (*models.User, error) {
	m.capturedUser = user
	if m.err != nil {
		return nil, m.err
	}
	user.ID = 1
	return user, nil
}

func (m *mockUserService) Get(ctx context.Context, id int64) (*models.User, error) {
	return m.user, m.err
}

func (m *mockUserService) Login(ctx context.Context, email string) (*models.User, error) {
	m.capturedEmail = email
	return m.user, m.err
}

func (m *mockUserService) List(ctx context.Context, offset, limit int) ([]*models.User, error) {
	m.capturedOffset = offset
	m.capturedLimit = limit
	return m.users, m.err
}

func (m *mockUserService) Update(ctx context.Context, id int64, patch *models.UserPatch) (*models.User, error) {
	m.capturedPatch = patch
	return m.user, m.err
}

func (m *mockUserService) Delete(ctx context.Context, id int64) error {
	return m.err
}

// mockTimeSlotService is a configurable mock for testing TimeSlotsHandler.
type mockTimeSlotService struct {
	slot *models.TimeSlot
	err  error

	capturedSlot  *models.TimeSlot
	capturedPatch *models.TimeSlotPatch
	capturedID    int64
}

func (m *mockTimeSlotService) Create(ctx context.Context, slot *models.TimeSlot) (*models.TimeSlot, error) {
	m.capturedSlot = slot
	return m.slot, m.err
}

func (m *mockTimeSlotService) Get(ctx context.Context, id int64) (*models.TimeSlot, error) {
	m.capturedID = id
	return m.slot, m.err
}

func (m *mockTimeSlotService) Update(ctx context.Context, id int64, patch *models.TimeSlotPatch) (*models.TimeSlot, error) {
	m.capturedID = id
	m.capturedPatch = patch
	return m.slot, m.err
}

func (m *mockTimeSlotService) Delete(ctx context.Context, id int64) error {
	m.capturedID = id
	return m.err
}

func (m *mockTimeSlotService) Release(ctx context.Context, id int64) (*models.TimeSlot, error) {
	m.capturedID = id
	return m.slot, m.err
}

// mockVenueService is a configurable mock for testing VenuesHandler.
type mockVenueService struct {
	venue *models.Venue
	err   error

	capturedVenue *models.Venue
}

func (m *mockVenueService) Create(ctx context.Context, venue *models.Venue) (*models.Venue, error) {
	m.capturedVenue = venue
	return m.venue, m.err
}

func (m *mockVenueService) Get(ctx context.Context, id int64) (*models.Venue, error) {
	return m.venue, m.err
}

func (m *mockVenueService) Update(ctx context.Context, id int64, patch *models.VenuePatch) (*models.Venue, error) {
	return m.venue, m.err
}

func (m *mockVenueService) Delete(ctx context.Context, id int64) error {
	return m.err
}

// mockPreferenceService is a configurable mock for testing PreferencesHandler.
type mockPreferenceService struct {
	pref  *models.UserPreference
	prefs []*models.UserPreference
	err   error

	capturedPref   *models.UserPreference
	capturedUserID int64
}

func (m *mockPreferenceService) Create(ctx context.Context, pref *models.UserPreference) (*models.UserPreference, error) {
	m.capturedPref = pref
	return m.pref, m.err
}

func (m *mockPreferenceService) ListByUser(ctx context.Context, userID int64) ([]*models.UserPreference, error) {
	m.capturedUserID = userID
	return m.prefs, m.err
}

func (m *mockPreferenceService) Update(ctx context.Context, id int64, patch *models.PreferencePatch) (*models.UserPreference, error) {
	return m.pref, m.err
}

func (m *mockPreferenceService) Delete(ctx context.Context, id int64) error {
	return m.err
}

var (
	_ services.MatchService      = (*mockMatchService)(nil)
	_ services.QueryService      = (*mockQueryService)(nil)
	_ services.UserService       = (*mockUserService)(nil)
	_ services.TimeSlotService   = (*mockTimeSlotService)(nil)
	_ services.VenueService      = (*mockVenueService)(nil)
	_ services.PreferenceService = (*mockPreferenceService)(nil)
)
