package service

import (
	"context"
	"fmt"

	"github.com/mkamenev/memobox/internal/adapter"
	"github.com/mkamenev/memobox/internal/logger"
	"github.com/mkamenev/memobox/internal/store"
	"github.com/mkamenev/memobox/models"
)

type clientAuthService struct {
	syncState store.SyncStateRepository
	adapter   adapter.ServerAdapter
	logger    *logger.Logger
}

func NewClientAuthService(syncState store.SyncStateRepository, serverAdapter adapter.ServerAdapter, logger *logger.Logger) ClientAuthService {
	return &clientAuthService{syncState: syncState, adapter: serverAdapter, logger: logger}
}

// Register implements [ClientAuthService].
func (s *clientAuthService) Register(ctx context.Context, user models.User) error {
	token, err := s.adapter.Register(ctx, user)
	if err != nil {
		return fmt.Errorf("register on server: %w", err)
	}

	if err = s.syncState.SaveSession(ctx, token.UserID, token.SignedString); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	s.logger.Info().Int64("user_id", token.UserID).Msg("registered and logged in")
	return nil
}

// Login implements [ClientAuthService].
func (s *clientAuthService) Login(ctx context.Context, user models.User) error {
	token, err := s.adapter.Login(ctx, user)
	if err != nil {
		return fmt.Errorf("login on server: %w", err)
	}

	if err = s.syncState.SaveSession(ctx, token.UserID, token.SignedString); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	s.logger.Info().Int64("user_id", token.UserID).Msg("logged in")
	return nil
}

// RestoreSession implements [ClientAuthService].
func (s *clientAuthService) RestoreSession(ctx context.Context) (int64, error) {
	userID, token, err := s.syncState.GetSession(ctx)
	if err != nil {
		return 0, fmt.Errorf("load session: %w", err)
	}

	s.adapter.SetToken(token)
	return userID, nil
}
