package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/coffee-matcher/matcher-engine/pkg/apperrors"
	"github.com/coffee-matcher/matcher-engine/pkg/models"
	"github.com/coffee-matcher/matcher-engine/pkg/repositories"
)

// QueryService serves the read-side projections used by the dashboards.
type QueryService interface {
	// ListReceived returns requests targeting the user, optionally filtered by status.
	ListReceived(ctx context.Context, userID int64, status *string) ([]*models.MatchRequestView, error)
	// ListSent returns requests made by the user, optionally filtered by status.
	ListSent(ctx context.Context, userID int64, status *string) ([]*models.MatchRequestView, error)
	// ListAvailableSlots returns future available slots, of one user when userID is set.
	ListAvailableSlots(ctx context.Context, userID *int64) ([]*models.TimeSlot, error)
	// ListSlots returns every slot of the user regardless of status or time.
	ListSlots(ctx context.Context, userID int64) ([]*models.TimeSlot, error)
	ListVenues(ctx context.Context, venueType *string, offset, limit int) ([]*models.Venue, error)
	// Directory lists users with their future available slots.
	Directory(ctx context.Context, offset, limit int) ([]*models.DirectoryEntry, error)
}

type queryService struct {
	matchRepo repositories.MatchRequestRepository
	userRepo  repositories.UserRepository
	venueRepo repositories.VenueRepository
	slotRepo  repositories.TimeSlotRepository
	allocator SlotAllocator
	now       func() time.Time
	logger    *zap.Logger
}

var _ QueryService = (*queryService)(nil)

// NewQueryService creates a new query service.
func NewQueryService(
	matchRepo repositories.MatchRequestRepository,
	userRepo repositories.UserRepository,
	venueRepo repositories.VenueRepository,
	slotRepo repositories.TimeSlotRepository,
	allocator SlotAllocator,
	logger *zap.Logger,
) QueryService {
	return &queryService{
		matchRepo: matchRepo,
		userRepo:  userRepo,
		venueRepo: venueRepo,
		slotRepo:  slotRepo,
		allocator: allocator,
		now:       time.Now,
		logger:    logger.Named("query-service"),
	}
}

func (s *queryService) ListReceived(ctx context.Context, userID int64, status *string) ([]*models.MatchRequestView, error) {
	if err := s.checkStatusFilter(status); err != nil {
		return nil, err
	}
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.matchRepo.ListReceived(ctx, userID, status)
}

func (s *queryService) ListSent(ctx context.Context, userID int64, status *string) ([]*models.MatchRequestView, error) {
	if err := s.checkStatusFilter(status); err != nil {
		return nil, err
	}
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.matchRepo.ListSent(ctx, userID, status)
}

func (s *queryService) checkStatusFilter(status *string) error {
	if status != nil && !models.IsValidMatchStatus(*status) {
		return fmt.Errorf("unknown status %q: %w", *status, apperrors.ErrInvalidInput)
	}
	return nil
}

func (s *queryService) ListAvailableSlots(ctx context.Context, userID *int64) ([]*models.TimeSlot, error) {
	now := s.now().UTC()
	if userID == nil {
		return s.slotRepo.ListAvailable(ctx, nil, &now)
	}
	if _, err := s.userRepo.GetByID(ctx, *userID); err != nil {
		return nil, err
	}
	return s.allocator.AvailableSlotsFor(ctx, *userID, now)
}

func (s *queryService) ListSlots(ctx context.Context, userID int64) ([]*models.TimeSlot, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.slotRepo.ListByUser(ctx, userID)
}

func (s *queryService) ListVenues(ctx context.Context, venueType *string, offset, limit int) ([]*models.Venue, error) {
	if venueType != nil && !models.IsValidVenueType(*venueType) {
		return nil, fmt.Errorf("unknown venue type %q: %w", *venueType, apperrors.ErrInvalidInput)
	}
	return s.venueRepo.List(ctx, venueType, offset, limit)
}

func (s *queryService) Directory(ctx context.Context, offset, limit int) ([]*models.DirectoryEntry, error) {
	users, err := s.userRepo.List(ctx, offset, limit)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	slots, err := s.slotRepo.ListAvailableForUsers(ctx, ids, s.now().UTC())
	if err != nil {
		return nil, err
	}

	entries := make([]*models.DirectoryEntry, len(users))
	for i, u := range users {
		available := slots[u.ID]
		if available == nil {
			available = []*models.TimeSlot{}
		}
		entries[i] = &models.DirectoryEntry{
			ID:             u.ID,
			Name:           u.Name,
			Email:          u.Email,
			Bio:            u.Bio,
			Location:       u.Location,
			AvailableSlots: available,
		}
	}
	return entries, nil
}
