package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kitbuilder587/valyu-go/internal/domain"
	"github.com/kitbuilder587/valyu-go/internal/repository"
)

type UserService interface {
	GetOrCreate(ctx context.Context, telegramID int64, username string) (*domain.User, error)
}

type userService struct {
	repo   repository.UserRepository
	logger *zap.Logger
}

func NewUserService(repo repository.UserRepository, logger *zap.Logger) UserService {
	return &userService{
		repo:   repo,
		logger: logger,
	}
}

// GetOrCreate registers the telegram user on first contact. Research tasks
// reference users, so this runs before any task is saved.
// Known users with the same username are served without a write.
func (s *userService) GetOrCreate(ctx context.Context, telegramID int64, username string) (*domain.User, error) {
	existing, err := s.repo.GetByID(ctx, telegramID)
	switch {
	case err == nil && existing.Username == username:
		return existing, nil
	case err != nil && !errors.Is(err, domain.ErrUserNotFound):
		return nil, fmt.Errorf("get user: %w", err)
	}

	user, err := s.repo.GetOrCreate(ctx, telegramID, username)
	if err != nil {
		return nil, fmt.Errorf("get or create user: %w", err)
	}

	s.logger.Debug("user resolved",
		zap.Int64("telegram_id", telegramID),
		zap.String("username", username),
	)
	return user, nil
}
