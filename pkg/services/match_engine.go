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

// CreateMatchInput describes a new match request.
type CreateMatchInput struct {
	RequesterID  int64
	TargetID     int64
	VenueID      int64
	TimeSlotID   *int64
	ProposedTime time.Time
	Message      *string
}

// RespondInput is the target's answer to a pending match request.
// NewTimeSlotID and NewVenueID are only read by the reschedule action.
type RespondInput struct {
	Action        string
	NewTimeSlotID *int64
	NewVenueID    *int64
}

// MatchService drives the match request lifecycle:
// pending -> accepted | rejected | rescheduled, all terminal.
type MatchService interface {
	Create(ctx context.Context, input CreateMatchInput) (*models.MatchRequest, error)
	Respond(ctx context.Context, matchID int64, input RespondInput) (*models.MatchRequest, error)
	Get(ctx context.Context, matchID int64) (*models.MatchRequest, error)
	// Delete removes a request. Deleting an accepted request frees its slot.
	Delete(ctx context.Context, matchID int64) error
}

type matchService struct {
	matchRepo repositories.MatchRequestRepository
	userRepo  repositories.UserRepository
	venueRepo repositories.VenueRepository
	slotRepo  repositories.TimeSlotRepository
	allocator SlotAllocator
	runInTx   TxRunner
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

var _ MatchService = (*matchService)(nil)

// NewMatchService creates a new match service.
func NewMatchService(
	matchRepo repositories.MatchRequestRepository,
	userRepo repositories.UserRepository,
	venueRepo repositories.VenueRepository,
	slotRepo repositories.TimeSlotRepository,
	allocator SlotAllocator,
	runInTx TxRunner,
	m *metrics.Metrics,
	logger *zap.Logger,
) MatchService {
	return &matchService{
		matchRepo: matchRepo,
		userRepo:  userRepo,
		venueRepo: venueRepo,
		slotRepo:  slotRepo,
		allocator: allocator,
		runInTx:   runInTx,
		metrics:   m,
		logger:    logger.Named("match-service"),
	}
}

func (s *matchService) Create(ctx context.Context, input CreateMatchInput) (*models.MatchRequest, error) {
	if input.RequesterID == input.TargetID {
		return nil, fmt.Errorf("requester and target must differ: %w", apperrors.ErrInvalidReference)
	}
	if input.ProposedTime.IsZero() {
		return nil, fmt.Errorf("proposed_time is required: %w", apperrors.ErrInvalidInput)
	}

	match := &models.MatchRequest{
		RequesterID:  input.RequesterID,
		TargetID:     input.TargetID,
		VenueID:      input.VenueID,
		TimeSlotID:   input.TimeSlotID,
		ProposedTime: input.ProposedTime.UTC().Truncate(time.Microsecond),
		Message:      input.Message,
	}

	err := s.runInTx(ctx, func(ctx context.Context) error {
		if _, err := s.userRepo.GetByID(ctx, input.RequesterID); err != nil {
			return fmt.Errorf("requester %d: %w", input.RequesterID, err)
		}
		if _, err := s.userRepo.GetByID(ctx, input.TargetID); err != nil {
			return fmt.Errorf("target %d: %w", input.TargetID, err)
		}
		if _, err := s.venueRepo.GetByID(ctx, input.VenueID); err != nil {
			return fmt.Errorf("venue %d: %w", input.VenueID, err)
		}

		if input.TimeSlotID != nil {
			// Locked so the slot window cannot move between this check and commit.
			slot, err := s.slotRepo.GetByIDForUpdate(ctx, *input.TimeSlotID)
			if err != nil {
				return fmt.Errorf("time slot %d: %w", *input.TimeSlotID, err)
			}
			if slot.UserID != input.TargetID {
				return fmt.Errorf("time slot %d does not belong to user %d: %w",
					slot.ID, input.TargetID, apperrors.ErrInvalidReference)
			}
			if !match.ProposedTime.Equal(slot.StartTime) {
				return fmt.Errorf("proposed time %s, slot starts %s: %w",
					match.ProposedTime.Format(time.RFC3339), slot.StartTime.Format(time.RFC3339),
					apperrors.ErrInconsistentTime)
			}
		} else {
			slot, err := s.lockSlotAt(ctx, input.TargetID, match.ProposedTime)
			switch {
			case err == nil:
				match.TimeSlotID = &slot.ID
			case !errors.Is(err, apperrors.ErrNotFound):
				return err
			}
		}

		return s.matchRepo.Create(ctx, match)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.MatchTransition(models.MatchStatusPending)
	s.logger.Info("Created match request",
		zap.Int64("match_id", match.ID),
		zap.Int64("requester_id", match.RequesterID),
		zap.Int64("target_id", match.TargetID),
		zap.Bool("has_slot", match.TimeSlotID != nil))
	return match, nil
}

func (s *matchService) Respond(ctx context.Context, matchID int64, input RespondInput) (*models.MatchRequest, error) {
	switch input.Action {
	case models.MatchActionAccept, models.MatchActionReject, models.MatchActionReschedule:
	default:
		return nil, fmt.Errorf("unknown action %q: %w", input.Action, apperrors.ErrInvalidInput)
	}

	var result *models.MatchRequest
	err := s.runInTx(ctx, func(ctx context.Context) error {
		// Locking the request serializes concurrent responses to it.
		match, err := s.matchRepo.GetByIDForUpdate(ctx, matchID)
		if err != nil {
			return err
		}
		if match.IsTerminal() {
			return fmt.Errorf("match request %d is %s: %w", matchID, match.Status, apperrors.ErrInvalidState)
		}

		switch input.Action {
		case models.MatchActionAccept:
			result, err = s.accept(ctx, match)
		case models.MatchActionReject:
			result, err = s.matchRepo.Transition(ctx, match.ID, models.MatchStatusPending, models.MatchStatusRejected, nil)
		case models.MatchActionReschedule:
			result, err = s.reschedule(ctx, match, input)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.MatchTransition(result.Status)
	s.logger.Info("Match request answered",
		zap.Int64("match_id", result.ID),
		zap.String("action", input.Action),
		zap.String("status", result.Status))
	return result, nil
}

// accept books the request's slot and marks it accepted. When the slot cannot
// be booked nothing is written and ErrSlotConflict is returned.
func (s *matchService) accept(ctx context.Context, match *models.MatchRequest) (*models.MatchRequest, error) {
	var resolved *int64
	slotID := match.TimeSlotID
	if slotID == nil {
		slot, err := s.lockSlotAt(ctx, match.TargetID, match.ProposedTime)
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("no time slot of user %d starts at %s: %w",
				match.TargetID, match.ProposedTime.Format(time.RFC3339), apperrors.ErrSlotConflict)
		}
		if err != nil {
			return nil, err
		}
		slotID = &slot.ID
		resolved = &slot.ID
	}

	if err := s.allocator.Reserve(ctx, *slotID, match.ID); err != nil {
		return nil, err
	}

	return s.matchRepo.Transition(ctx, match.ID, models.MatchStatusPending, models.MatchStatusAccepted, resolved)
}

// lockSlotAt finds the owner's slot starting at start and locks it. The slot
// is re-checked after locking: a window moved by a concurrent update between
// lookup and lock counts as not found.
func (s *matchService) lockSlotAt(ctx context.Context, ownerID int64, start time.Time) (*models.TimeSlot, error) {
	found, err := s.slotRepo.FindByOwnerAndStart(ctx, ownerID, start)
	if err != nil {
		return nil, err
	}
	slot, err := s.slotRepo.GetByIDForUpdate(ctx, found.ID)
	if err != nil {
		return nil, err
	}
	if slot.UserID != ownerID || !slot.StartTime.Equal(start) {
		s.logger.Info("Time slot moved during lookup",
			zap.Int64("slot_id", slot.ID),
			zap.Time("wanted_start", start),
			zap.Time("start", slot.StartTime))
		return nil, fmt.Errorf("time slot %d no longer starts at %s: %w",
			slot.ID, start.Format(time.RFC3339), apperrors.ErrNotFound)
	}
	return slot, nil
}

func (s *matchService) reschedule(ctx context.Context, match *models.MatchRequest, input RespondInput) (*models.MatchRequest, error) {
	slotID := match.TimeSlotID
	proposed := match.ProposedTime
	venueID := match.VenueID

	if input.NewTimeSlotID != nil {
		slot, err := s.slotRepo.GetByIDForUpdate(ctx, *input.NewTimeSlotID)
		if err != nil {
			return nil, fmt.Errorf("time slot %d: %w", *input.NewTimeSlotID, err)
		}
		if slot.UserID != match.TargetID {
			return nil, fmt.Errorf("time slot %d does not belong to user %d: %w",
				slot.ID, match.TargetID, apperrors.ErrInvalidReference)
		}
		slotID = &slot.ID
		proposed = slot.StartTime
	}

	if input.NewVenueID != nil {
		if _, err := s.venueRepo.GetByID(ctx, *input.NewVenueID); err != nil {
			return nil, fmt.Errorf("venue %d: %w", *input.NewVenueID, err)
		}
		venueID = *input.NewVenueID
	}

	return s.matchRepo.Reschedule(ctx, match.ID, slotID, proposed, venueID)
}

func (s *matchService) Get(ctx context.Context, matchID int64) (*models.MatchRequest, error) {
	return s.matchRepo.GetByID(ctx, matchID)
}

func (s *matchService) Delete(ctx context.Context, matchID int64) error {
	var status string
	err := s.runInTx(ctx, func(ctx context.Context) error {
		match, err := s.matchRepo.GetByIDForUpdate(ctx, matchID)
		if err != nil {
			return err
		}
		status = match.Status

		if match.Status == models.MatchStatusAccepted && match.TimeSlotID != nil {
			slot, err := s.slotRepo.GetByIDForUpdate(ctx, *match.TimeSlotID)
			if err != nil {
				return err
			}
			// Only free the slot if this request still holds it.
			if slot.BookedMatchID != nil && *slot.BookedMatchID == match.ID {
				if err := s.allocator.Release(ctx, slot.ID); err != nil {
					return err
				}
			}
		}

		return s.matchRepo.Delete(ctx, matchID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Deleted match request",
		zap.Int64("match_id", matchID),
		zap.String("status", status))
	return nil
}
