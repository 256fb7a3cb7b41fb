package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/coffee-matcher/matcher-engine/pkg/apperrors"
	"github.com/coffee-matcher/matcher-engine/pkg/models"
	"github.com/coffee-matcher/matcher-engine/pkg/repositories"
)

// TimeSlotService defines the interface for time slot operations. Booking
// state is owned by the SlotAllocator; this service only manages windows.
type TimeSlotService interface {
	Create(ctx context.Context, slot *models.TimeSlot) (*models.TimeSlot, error)
	Get(ctx context.Context, id int64) (*models.TimeSlot, error)
	// Update moves the slot window. Moving the start of a slot that match
	// requests reference returns ErrConflict.
	Update(ctx context.Context, id int64, patch *models.TimeSlotPatch) (*models.TimeSlot, error)
	// Delete returns ErrConflict while match requests reference the slot.
	Delete(ctx context.Context, id int64) error
	// Release frees a booked slot through the allocator.
	Release(ctx context.Context, id int64) (*models.TimeSlot, error)
}

type timeSlotService struct {
	slotRepo  repositories.TimeSlotRepository
	userRepo  repositories.UserRepository
	matchRepo repositories.MatchRequestRepository
	allocator SlotAllocator
	runInTx   TxRunner
	logger    *zap.Logger
}

var _ TimeSlotService = (*timeSlotService)(nil)

// NewTimeSlotService creates a new time slot service.
func NewTimeSlotService(
	slotRepo repositories.TimeSlotRepository,
	userRepo repositories.UserRepository,
	matchRepo repositories.MatchRequestRepository,
	allocator SlotAllocator,
	runInTx TxRunner,
	logger *zap.Logger,
) TimeSlotService {
	return &timeSlotService{
		slotRepo:  slotRepo,
		userRepo:  userRepo,
		matchRepo: matchRepo,
		allocator: allocator,
		runInTx:   runInTx,
		logger:    logger.Named("timeslot-service"),
	}
}

func (s *timeSlotService) Create(ctx context.Context, slot *models.TimeSlot) (*models.TimeSlot, error) {
	slot.StartTime = slot.StartTime.UTC().Truncate(time.Microsecond)
	slot.EndTime = slot.EndTime.UTC().Truncate(time.Microsecond)
	if err := slot.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), apperrors.ErrInvalidInput)
	}

	if _, err := s.userRepo.GetByID(ctx, slot.UserID); err != nil {
		return nil, fmt.Errorf("owner %d: %w", slot.UserID, err)
	}

	if err := s.slotRepo.Create(ctx, slot); err != nil {
		return nil, err
	}
	s.logger.Info("Created time slot",
		zap.Int64("slot_id", slot.ID),
		zap.Int64("user_id", slot.UserID),
		zap.Time("start_time", slot.StartTime))
	return slot, nil
}

func (s *timeSlotService) Get(ctx context.Context, id int64) (*models.TimeSlot, error) {
	return s.slotRepo.GetByID(ctx, id)
}

func (s *timeSlotService) Update(ctx context.Context, id int64, patch *models.TimeSlotPatch) (*models.TimeSlot, error) {
	var slot *models.TimeSlot
	err := s.runInTx(ctx, func(ctx context.Context) error {
		var err error
		slot, err = s.slotRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if patch.IsEmpty() {
			return nil
		}

		oldStart := slot.StartTime
		if err := patch.Apply(slot); err != nil {
			return fmt.Errorf("%s: %w", err.Error(), apperrors.ErrInvalidInput)
		}
		slot.StartTime = slot.StartTime.Truncate(time.Microsecond)
		slot.EndTime = slot.EndTime.Truncate(time.Microsecond)

		if !slot.StartTime.Equal(oldStart) {
			referenced, err := s.matchRepo.ExistsForSlot(ctx, id)
			if err != nil {
				return err
			}
			if referenced {
				return fmt.Errorf("time slot %d is referenced by match requests, start time is fixed: %w",
					id, apperrors.ErrConflict)
			}
		}
		return s.slotRepo.UpdateWindow(ctx, slot)
	})
	if err != nil {
		return nil, err
	}
	return slot, nil
}

func (s *timeSlotService) Delete(ctx context.Context, id int64) error {
	if err := s.slotRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return fmt.Errorf("time slot %d is referenced by match requests: %w", id, apperrors.ErrConflict)
		}
		return err
	}
	s.logger.Info("Deleted time slot", zap.Int64("slot_id", id))
	return nil
}

func (s *timeSlotService) Release(ctx context.Context, id int64) (*models.TimeSlot, error) {
	var slot *models.TimeSlot
	err := s.runInTx(ctx, func(ctx context.Context) error {
		if err := s.allocator.Release(ctx, id); err != nil {
			return err
		}
		var err error
		slot, err = s.slotRepo.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return slot, nil
}
