package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pixelcanvas/engine/internal/repository"
)

// Service handles user operations.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new user service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// RegisterRequest defines registration inputs.
type RegisterRequest struct {
	Handle         string
	InitialCredits int64
}

// Register creates a new user with an optional starting balance.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	handle := strings.TrimSpace(req.Handle)
	if handle == "" || req.InitialCredits < 0 {
		return nil, ErrInvalidInput
	}

	u := &User{
		Handle:    handle,
		Credits:   req.InitialCredits,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			return nil, ErrHandleTaken
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.logger.Info("user registered", "user_id", u.ID, "handle", u.Handle)
	return u, nil
}

// Get fetches a user by ID.
func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}
