package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/coffee-matcher/matcher-engine/pkg/apperrors"
	"github.com/coffee-matcher/matcher-engine/pkg/models"
	"github.com/coffee-matcher/matcher-engine/pkg/repositories"
)

// VenueService defines the interface for venue operations.
type VenueService interface {
	Create(ctx context.Context, venue *models.Venue) (*models.Venue, error)
	Get(ctx context.Context, id int64) (*models.Venue, error)
	Update(ctx context.Context, id int64, patch *models.VenuePatch) (*models.Venue, error)
	// Delete returns ErrConflict while match requests reference the venue.
	Delete(ctx context.Context, id int64) error
}

type venueService struct {
	venueRepo repositories.VenueRepository
	userRepo  repositories.UserRepository
	runInTx   TxRunner
	logger    *zap.Logger
}

var _ VenueService = (*venueService)(nil)

// NewVenueService creates a new venue service.
func NewVenueService(venueRepo repositories.VenueRepository, userRepo repositories.UserRepository, runInTx TxRunner, logger *zap.Logger) VenueService {
	return &venueService{
		venueRepo: venueRepo,
		userRepo:  userRepo,
		runInTx:   runInTx,
		logger:    logger.Named("venue-service"),
	}
}

func (s *venueService) Create(ctx context.Context, venue *models.Venue) (*models.Venue, error) {
	if err := venue.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), apperrors.ErrInvalidInput)
	}

	if venue.CreatedByID != nil {
		if _, err := s.userRepo.GetByID(ctx, *venue.CreatedByID); err != nil {
			return nil, fmt.Errorf("creator %d: %w", *venue.CreatedByID, err)
		}
	}

	if err := s.venueRepo.Create(ctx, venue); err != nil {
		return nil, err
	}
	s.logger.Info("Created venue", zap.Int64("venue_id", venue.ID), zap.String("type", venue.Type))
	return venue, nil
}

func (s *venueService) Get(ctx context.Context, id int64) (*models.Venue, error) {
	return s.venueRepo.GetByID(ctx, id)
}

func (s *venueService) Update(ctx context.Context, id int64, patch *models.VenuePatch) (*models.Venue, error) {
	var venue *models.Venue
	err := s.runInTx(ctx, func(ctx context.Context) error {
		var err error
		venue, err = s.venueRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if patch.IsEmpty() {
			return nil
		}
		if err := patch.Apply(venue); err != nil {
			return fmt.Errorf("%s: %w", err.Error(), apperrors.ErrInvalidInput)
		}
		return s.venueRepo.Update(ctx, venue)
	})
	if err != nil {
		return nil, err
	}
	return venue, nil
}

func (s *venueService) Delete(ctx context.Context, id int64) error {
	if err := s.venueRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return fmt.Errorf("venue %d is referenced by match requests: %w", id, apperrors.ErrConflict)
		}
		return err
	}
	s.logger.Info("Deleted venue", zap.Int64("venue_id", id))
	return nil
}
