package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/coffee-matcher/matcher-engine/pkg/apperrors"
	"github.com/coffee-matcher/matcher-engine/pkg/models"
	"github.com/coffee-matcher/matcher-engine/pkg/repositories"
)

// PreferenceService defines the interface for user preference operations.
type PreferenceService interface {
	Create(ctx context.Context, pref *models.UserPreference) (*models.UserPreference, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.UserPreference, error)
	Update(ctx context.Context, id int64, patch *models.PreferencePatch) (*models.UserPreference, error)
	Delete(ctx context.Context, id int64) error
}

type preferenceService struct {
	prefRepo repositories.PreferenceRepository
	userRepo repositories.UserRepository
	runInTx  TxRunner
	logger   *zap.Logger
}

var _ PreferenceService = (*preferenceService)(nil)

// NewPreferenceService creates a new preference service.
func NewPreferenceService(prefRepo repositories.PreferenceRepository, userRepo repositories.UserRepository, runInTx TxRunner, logger *zap.Logger) PreferenceService {
	return &preferenceService{
		prefRepo: prefRepo,
		userRepo: userRepo,
		runInTx:  runInTx,
		logger:   logger.Named("preference-service"),
	}
}

func (s *preferenceService) Create(ctx context.Context, pref *models.UserPreference) (*models.UserPreference, error) {
	if err := pref.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), apperrors.ErrInvalidInput)
	}
	if _, err := s.userRepo.GetByID(ctx, pref.UserID); err != nil {
		return nil, fmt.Errorf("user %d: %w", pref.UserID, err)
	}
	if err := s.prefRepo.Create(ctx, pref); err != nil {
		return nil, err
	}
	return pref, nil
}

func (s *preferenceService) ListByUser(ctx context.Context, userID int64) ([]*models.UserPreference, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.prefRepo.ListByUser(ctx, userID)
}

func (s *preferenceService) Update(ctx context.Context, id int64, patch *models.PreferencePatch) (*models.UserPreference, error) {
	var pref *models.UserPreference
	err := s.runInTx(ctx, func(ctx context.Context) error {
		var err error
		pref, err = s.prefRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if patch.IsEmpty() {
			return nil
		}
		if err := patch.Apply(pref); err != nil {
			return fmt.Errorf("%s: %w", err.Error(), apperrors.ErrInvalidInput)
		}
		return s.prefRepo.Update(ctx, pref)
	})
	if err != nil {
		return nil, err
	}
	return pref, nil
}

func (s *preferenceService) Delete(ctx context.Context, id int64) error {
	return s.prefRepo.Delete(ctx, id)
}
