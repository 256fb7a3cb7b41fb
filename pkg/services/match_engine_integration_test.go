//go:build integration

package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/coffee-matcher/matcher-engine/pkg/apperrors"
	"github.com/coffee-matcher/matcher-engine/pkg/models"
	"github.com/coffee-matcher/matcher-engine/pkg/repositories"
	"github.com/coffee-matcher/matcher-engine/pkg/testhelpers"
)

// Stays below the test pool size so every goroutine gets its own connection.
const concurrentResponders = 6

var errTransitionFailed = errors.New("transition failed")

// failingTransition books through the real store but fails the status update
// that follows, so the surrounding transaction must roll the booking back.
type failingTransition struct {
	repositories.MatchRequestRepository
}

func (failingTransition) Transition(ctx context.Context, id int64, from, to string, slotID *int64) (*models.MatchRequest, error) {
	return nil, errTransitionFailed
}

type pgMatchTestContext struct {
	t       *testing.T
	testDB  *testhelpers.TestDB
	ctx     context.Context
	users   repositories.UserRepository
	venues  repositories.VenueRepository
	slots   repositories.TimeSlotRepository
	matches repositories.MatchRequestRepository
	service MatchService

	bob   *models.User
	venue *models.Venue
	slot  *models.TimeSlot
}

func setupPgMatchTest(t *testing.T) *pgMatchTestContext {
	t.Helper()
	testDB := testhelpers.GetTestDB(t)
	testDB.Reset(t)

	tc := &pgMatchTestContext{
		t:       t,
		testDB:  testDB,
		ctx:     testDB.Context(t),
		users:   repositories.NewUserRepository(),
		venues:  repositories.NewVenueRepository(),
		slots:   repositories.NewTimeSlotRepository(),
		matches: repositories.NewMatchRequestRepository(),
	}
	tc.service = tc.newService(tc.matches)

	tc.bob = tc.createUser("bob")
	tc.venue = &models.Venue{Name: "Blue Bottle", Type: models.VenueTypeCoffee, PriceRange: "$$", Location: "Downtown"}
	require.NoError(t, tc.venues.Create(tc.ctx, tc.venue))
	tc.slot = &models.TimeSlot{UserID: tc.bob.ID, StartTime: slotStart, EndTime: slotStart.Add(2 * time.Hour)}
	require.NoError(t, tc.slots.Create(tc.ctx, tc.slot))
	return tc
}

func (tc *pgMatchTestContext) newService(matches repositories.MatchRequestRepository) MatchService {
	logger := zap.NewNop()
	allocator := NewSlotAllocator(tc.slots, nil, logger)
	return NewMatchService(matches, tc.users, tc.venues, tc.slots, allocator, NewTxRunner(logger), nil, logger)
}

func (tc *pgMatchTestContext) createUser(name string) *models.User {
	tc.t.Helper()
	u := &models.User{Name: name, Email: name + "@example.com"}
	require.NoError(tc.t, tc.users.Create(tc.ctx, u))
	return u
}

func (tc *pgMatchTestContext) createMatch(requester *models.User) *models.MatchRequest {
	tc.t.Helper()
	mr, err := tc.service.Create(tc.ctx, CreateMatchInput{
		RequesterID:  requester.ID,
		TargetID:     tc.bob.ID,
		VenueID:      tc.venue.ID,
		TimeSlotID:   &tc.slot.ID,
		ProposedTime: slotStart,
	})
	require.NoError(tc.t, err)
	return mr
}

// acceptAll answers every id with accept from its own goroutine and pooled
// connection, released together.
func (tc *pgMatchTestContext) acceptAll(ids []int64) []error {
	tc.t.Helper()
	start := make(chan struct{})
	errs := make([]error, len(ids))

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			ctx, cleanup, err := tc.testDB.DB.WithScope(context.Background())
			if err != nil {
				errs[i] = err
				return
			}
			defer cleanup()
			<-start
			_, errs[i] = tc.service.Respond(ctx, id, RespondInput{Action: models.MatchActionAccept})
		}(i, id)
	}
	close(start)
	wg.Wait()
	return errs
}

func (tc *pgMatchTestContext) reloadSlot() *models.TimeSlot {
	tc.t.Helper()
	slot, err := tc.slots.GetByID(tc.ctx, tc.slot.ID)
	require.NoError(tc.t, err)
	return slot
}

func (tc *pgMatchTestContext) reloadMatch(id int64) *models.MatchRequest {
	tc.t.Helper()
	mr, err := tc.matches.GetByID(tc.ctx, id)
	require.NoError(tc.t, err)
	return mr
}

func TestMatchService_Postgres_ConcurrentAcceptsBookOnce(t *testing.T) {
	tc := setupPgMatchTest(t)

	ids := make([]int64, concurrentResponders)
	for i := range ids {
		ids[i] = tc.createMatch(tc.createUser(fmt.Sprintf("requester%d", i))).ID
	}

	errs := tc.acceptAll(ids)

	var winners []int64
	for i, err := range errs {
		if err == nil {
			winners = append(winners, ids[i])
			continue
		}
		assert.ErrorIs(t, err, apperrors.ErrSlotConflict, "request %d", ids[i])
		assert.Equal(t, models.MatchStatusPending, tc.reloadMatch(ids[i]).Status)
	}
	require.Len(t, winners, 1)

	slot := tc.reloadSlot()
	assert.Equal(t, models.TimeSlotBooked, slot.Status)
	require.NotNil(t, slot.BookedMatchID)
	assert.Equal(t, winners[0], *slot.BookedMatchID)
	assert.Equal(t, models.MatchStatusAccepted, tc.reloadMatch(winners[0]).Status)
}

func TestMatchService_Postgres_SameRequestAcceptedOnce(t *testing.T) {
	tc := setupPgMatchTest(t)
	mr := tc.createMatch(tc.createUser("alice"))

	ids := make([]int64, concurrentResponders)
	for i := range ids {
		ids[i] = mr.ID
	}
	errs := tc.acceptAll(ids)

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, apperrors.ErrInvalidState)
	}
	assert.Equal(t, 1, succeeded)

	slot := tc.reloadSlot()
	assert.Equal(t, models.TimeSlotBooked, slot.Status)
	require.NotNil(t, slot.BookedMatchID)
	assert.Equal(t, mr.ID, *slot.BookedMatchID)
	assert.Equal(t, models.MatchStatusAccepted, tc.reloadMatch(mr.ID).Status)
}

func TestMatchService_Postgres_FailedTransitionRollsBackBooking(t *testing.T) {
	tc := setupPgMatchTest(t)
	mr := tc.createMatch(tc.createUser("alice"))

	service := tc.newService(failingTransition{tc.matches})
	_, err := service.Respond(tc.ctx, mr.ID, RespondInput{Action: models.MatchActionAccept})
	require.ErrorIs(t, err, errTransitionFailed)

	slot := tc.reloadSlot()
	assert.Equal(t, models.TimeSlotAvailable, slot.Status)
	assert.Nil(t, slot.BookedMatchID)
	assert.Equal(t, models.MatchStatusPending, tc.reloadMatch(mr.ID).Status)
}

// A window update waiting on the slot lock sees the committed request and
// refuses to move the slot.
func TestMatchService_Postgres_CreateLocksResolvedSlot(t *testing.T) {
	tc := setupPgMatchTest(t)
	alice := tc.createUser("alice")
	logger := zap.NewNop()
	slotSvc := NewTimeSlotService(tc.slots, tc.users, tc.matches,
		NewSlotAllocator(tc.slots, nil, logger), NewTxRunner(logger), logger)

	ctx, cleanup, err := tc.testDB.DB.WithScope(context.Background())
	require.NoError(t, err)
	defer cleanup()

	updateErr := make(chan error, 1)
	err = NewTxRunner(logger)(tc.ctx, func(txCtx context.Context) error {
		mr := &models.MatchRequest{RequesterID: alice.ID, TargetID: tc.bob.ID, VenueID: tc.venue.ID, ProposedTime: slotStart}
		slot, err := tc.service.(*matchService).lockSlotAt(txCtx, tc.bob.ID, slotStart)
		if err != nil {
			return err
		}
		mr.TimeSlotID = &slot.ID

		go func() {
			_, err := slotSvc.Update(ctx, tc.slot.ID, &models.TimeSlotPatch{
				StartTime: ptr(slotStart.Add(time.Hour)),
				EndTime:   ptr(slotStart.Add(3 * time.Hour)),
			})
			updateErr <- err
		}()
		// Give the update time to block on the row lock.
		time.Sleep(200 * time.Millisecond)
		return tc.matches.Create(txCtx, mr)
	})
	require.NoError(t, err)

	assert.ErrorIs(t, <-updateErr, apperrors.ErrConflict)
	assert.True(t, tc.reloadSlot().StartTime.Equal(slotStart))
}
