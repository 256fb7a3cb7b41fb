//go:build integration

package repositories

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coffee-matcher/matcher-engine/pkg/models"
	"github.com/coffee-matcher/matcher-engine/pkg/testhelpers"
)

// repoTestContext bundles a scoped context with every repository.
type repoTestContext struct {
	t      *testing.T
	ctx    context.Context
	users  UserRepository
	venues VenueRepository
	slots  TimeSlotRepository
	prefs  PreferenceRepository
	match  MatchRequestRepository
}

func setupRepoTest(t *testing.T) *repoTestContext {
	t.Helper()
	testDB := testhelpers.GetTestDB(t)
	testDB.Reset(t)

	return &repoTestContext{
		t:      t,
		ctx:    testDB.Context(t),
		users:  NewUserRepository(),
		venues: NewVenueRepository(),
		slots:  NewTimeSlotRepository(),
		prefs:  NewPreferenceRepository(),
		match:  NewMatchRequestRepository(),
	}
}

func (tc *repoTestContext) createUser(name string) *models.User {
	tc.t.Helper()
	u := &models.User{Name: name, Email: fmt.Sprintf("%s@example.com", name)}
	require.NoError(tc.t, tc.users.Create(tc.ctx, u))
	return u
}

func (tc *repoTestContext) createVenue(name, venueType string) *models.Venue {
	tc.t.Helper()
	v := &models.Venue{Name: name, Type: venueType, PriceRange: "$$", Location: "Downtown"}
	require.NoError(tc.t, tc.venues.Create(tc.ctx, v))
	return v
}

func (tc *repoTestContext) createSlot(userID int64, start time.Time) *models.TimeSlot {
	tc.t.Helper()
	s := &models.TimeSlot{UserID: userID, StartTime: start, EndTime: start.Add(2 * time.Hour)}
	require.NoError(tc.t, tc.slots.Create(tc.ctx, s))
	return s
}

func (tc *repoTestContext) createMatch(requester, target *models.User, venue *models.Venue, slot *models.TimeSlot) *models.MatchRequest {
	tc.t.Helper()
	m := &models.MatchRequest{
		RequesterID:  requester.ID,
		TargetID:     target.ID,
		VenueID:      venue.ID,
		ProposedTime: slot.StartTime,
		TimeSlotID:   &slot.ID,
	}
	require.NoError(tc.t, tc.match.Create(tc.ctx, m))
	return m
}
