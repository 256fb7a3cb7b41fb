package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/coffee-matcher/matcher-engine/pkg/apperrors"
	"github.com/coffee-matcher/matcher-engine/pkg/models"
)

// moveAfterLookup runs move once, right after the first successful lookup by
// start time, as if a concurrent window update committed in between.
type moveAfterLookup struct {
	memSlots
	move  func()
	moved bool
}

func (r *moveAfterLookup) FindByOwnerAndStart(ctx context.Context, userID int64, start time.Time) (*models.TimeSlot, error) {
	slot, err := r.memSlots.FindByOwnerAndStart(ctx, userID, start)
	if err == nil && !r.moved {
		r.moved = true
		r.move()
	}
	return slot, err
}

// newMovingSlotService returns a match service whose slot lookups are
// followed by moving slotID one hour later through the time slot service.
func newMovingSlotService(t *testing.T, h *matchHarness, slotID int64) MatchService {
	t.Helper()
	logger := zap.NewNop()
	slots := &moveAfterLookup{memSlots: memSlots{h.store}}
	allocator := NewSlotAllocator(slots, nil, logger)
	slotSvc := NewTimeSlotService(memSlots{h.store}, memUsers{h.store}, memMatches{h.store}, allocator, passthroughTx, logger)

	slots.move = func() {
		cur := h.store.slot(slotID)
		_, err := slotSvc.Update(context.Background(), slotID, &models.TimeSlotPatch{
			StartTime: ptr(cur.StartTime.Add(time.Hour)),
			EndTime:   ptr(cur.EndTime.Add(time.Hour)),
		})
		require.NoError(t, err)
	}

	return NewMatchService(memMatches{h.store}, memUsers{h.store}, memVenues{h.store}, slots,
		allocator, passthroughTx, nil, logger)
}

func TestMatchService_Create_SlotMovedDuringLookup(t *testing.T) {
	h := newMatchHarness(t)
	service := newMovingSlotService(t, h, h.slot.ID)

	mr, err := service.Create(context.Background(), CreateMatchInput{
		RequesterID:  h.alice.ID,
		TargetID:     h.bob.ID,
		VenueID:      h.venue.ID,
		ProposedTime: slotStart,
	})
	require.NoError(t, err)

	assert.Nil(t, mr.TimeSlotID, "a slot that moved away must not be linked")
	assert.True(t, h.store.slot(h.slot.ID).StartTime.Equal(slotStart.Add(time.Hour)))
}

func TestMatchService_Accept_SlotMovedDuringFallback(t *testing.T) {
	h := newMatchHarness(t)
	later := slotStart.Add(4 * time.Hour)
	mr := h.create(t, h.alice, nil, later)
	require.Nil(t, mr.TimeSlotID)

	slot := h.store.addSlot(h.bob.ID, later)
	service := newMovingSlotService(t, h, slot.ID)

	_, err := service.Respond(context.Background(), mr.ID, RespondInput{Action: models.MatchActionAccept})
	assert.ErrorIs(t, err, apperrors.ErrSlotConflict)

	got := h.store.slot(slot.ID)
	assert.Equal(t, models.TimeSlotAvailable, got.Status)
	assert.Nil(t, got.BookedMatchID)
	stored := h.store.matchRequest(mr.ID)
	assert.Equal(t, models.MatchStatusPending, stored.Status)
	assert.Nil(t, stored.TimeSlotID)
}
