package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/coffee-matcher/matcher-engine/pkg/apperrors"
	"github.com/coffee-matcher/matcher-engine/pkg/models"
	"github.com/coffee-matcher/matcher-engine/pkg/repositories"
)

// UserService defines the interface for user operations.
type UserService interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	Get(ctx context.Context, id int64) (*models.User, error)
	// Login looks a user up by email. There are no credentials.
	Login(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, offset, limit int) ([]*models.User, error)
	Update(ctx context.Context, id int64, patch *models.UserPatch) (*models.User, error)
	// Delete removes a user with their slots and preferences. Returns
	// ErrConflict while match requests reference the user.
	Delete(ctx context.Context, id int64) error
}

type userService struct {
	userRepo repositories.UserRepository
	runInTx  TxRunner
	logger   *zap.Logger
}

var _ UserService = (*userService)(nil)

// NewUserService creates a new user service with dependencies.
func NewUserService(userRepo repositories.UserRepository, runInTx TxRunner, logger *zap.Logger) UserService {
	return &userService{
		userRepo: userRepo,
		runInTx:  runInTx,
		logger:   logger.Named("user-service"),
	}
}

func (s *userService) Create(ctx context.Context, user *models.User) (*models.User, error) {
	user.Email = strings.TrimSpace(user.Email)
	if err := user.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), apperrors.ErrInvalidInput)
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, fmt.Errorf("email already registered: %w", apperrors.ErrConflict)
		}
		return nil, err
	}

	s.logger.Info("Created user", zap.Int64("user_id", user.ID))
	return user, nil
}

func (s *userService) Get(ctx context.Context, id int64) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *userService) Login(ctx context.Context, email string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("email is required: %w", apperrors.ErrInvalidInput)
	}
	return s.userRepo.GetByEmail(ctx, email)
}

func (s *userService) List(ctx context.Context, offset, limit int) ([]*models.User, error) {
	return s.userRepo.List(ctx, offset, limit)
}

func (s *userService) Update(ctx context.Context, id int64, patch *models.UserPatch) (*models.User, error) {
	var user *models.User
	err := s.runInTx(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.userRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if patch.IsEmpty() {
			return nil
		}
		if err := patch.Apply(user); err != nil {
			return fmt.Errorf("%s: %w", err.Error(), apperrors.ErrInvalidInput)
		}
		return s.userRepo.Update(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userService) Delete(ctx context.Context, id int64) error {
	if err := s.userRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return fmt.Errorf("user %d is referenced by match requests: %w", id, apperrors.ErrConflict)
		}
		return err
	}
	s.logger.Info("Deleted user", zap.Int64("user_id", id))
	return nil
}
