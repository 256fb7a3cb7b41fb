package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/coffee-matcher/matcher-engine/pkg/apperrors"
	"github.com/coffee-matcher/matcher-engine/pkg/metrics"
	"github.com/coffee-matcher/matcher-engine/pkg/models"
	"github.com/coffee-matcher/matcher-engine/pkg/repositories"
)

// SlotAllocator owns the available/booked transitions of time slots.
type SlotAllocator interface {
	// Reserve books an available slot for matchID. Returns ErrSlotConflict when
	// the slot is missing or already booked.
	Reserve(ctx context.Context, slotID, matchID int64) error
	// Release makes a booked slot available. Releasing an available slot is a
	// no-op; a missing slot returns ErrNotFound.
	Release(ctx context.Context, slotID int64) error
	// AvailableSlotsFor returns the user's available slots starting after the
	// given time, earliest first.
	AvailableSlotsFor(ctx context.Context, userID int64, after time.Time) ([]*models.TimeSlot, error)
}

type slotAllocator struct {
	slotRepo repositories.TimeSlotRepository
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

var _ SlotAllocator = (*slotAllocator)(nil)

// NewSlotAllocator creates a new slot allocator.
func NewSlotAllocator(slotRepo repositories.TimeSlotRepository, m *metrics.Metrics, logger *zap.Logger) SlotAllocator {
	return &slotAllocator{
		slotRepo: slotRepo,
		metrics:  m,
		logger:   logger.Named("slot-allocator"),
	}
}

func (a *slotAllocator) Reserve(ctx context.Context, slotID, matchID int64) error {
	ok, err := a.slotRepo.Reserve(ctx, slotID, matchID)
	if err != nil {
		return err
	}
	if ok {
		a.booked(slotID, matchID)
		return nil
	}

	// The swap missed. A slot released between the swap and this read gets
	// exactly one more attempt.
	slot, err := a.slotRepo.GetByID(ctx, slotID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return a.conflict(slotID, matchID, fmt.Sprintf("time slot %d does not exist", slotID))
	}
	if err != nil {
		return err
	}
	if !slot.IsAvailable() {
		return a.conflict(slotID, matchID, fmt.Sprintf("time slot %d is already booked", slotID))
	}

	ok, err = a.slotRepo.Reserve(ctx, slotID, matchID)
	if err != nil {
		return err
	}
	if !ok {
		return a.conflict(slotID, matchID, fmt.Sprintf("time slot %d was booked concurrently", slotID))
	}
	a.booked(slotID, matchID)
	return nil
}

func (a *slotAllocator) booked(slotID, matchID int64) {
	a.metrics.SlotReservation(metrics.ReservationBooked)
	a.logger.Debug("Reserved time slot",
		zap.Int64("slot_id", slotID),
		zap.Int64("match_id", matchID))
}

func (a *slotAllocator) conflict(slotID, matchID int64, reason string) error {
	a.metrics.SlotReservation(metrics.ReservationConflict)
	a.logger.Info("Time slot reservation lost",
		zap.Int64("slot_id", slotID),
		zap.Int64("match_id", matchID),
		zap.String("reason", reason))
	return fmt.Errorf("%s: %w", reason, apperrors.ErrSlotConflict)
}

func (a *slotAllocator) Release(ctx context.Context, slotID int64) error {
	released, err := a.slotRepo.Release(ctx, slotID)
	if err != nil {
		return err
	}
	if released {
		a.metrics.SlotReleased()
		a.logger.Debug("Released time slot", zap.Int64("slot_id", slotID))
		return nil
	}

	// Nothing changed: the slot is either already available or missing.
	_, err = a.slotRepo.GetByID(ctx, slotID)
	return err
}

func (a *slotAllocator) AvailableSlotsFor(ctx context.Context, userID int64, after time.Time) ([]*models.TimeSlot, error) {
	return a.slotRepo.ListAvailable(ctx, &userID, &after)
}
