// Package service implements the application workflows on top of the
// storage layer and the split/balance calculator.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kmoroz/splithaus/internal/auth"
	"github.com/kmoroz/splithaus/internal/models"
	"github.com/kmoroz/splithaus/internal/storage"
)

// AuthService handles registration, login and token refresh.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	store         storage.Store
}

// NewAuthService creates an AuthService.
func NewAuthService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, store storage.Store) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		store:         store,
	}
}

// Register creates an account and returns the user with a token pair.
func (s *AuthService) Register(ctx context.Context, email, displayName, password string) (*models.User, *auth.TokenPair, error) {
	user, err := s.authenticator.Register(ctx, email, displayName, password)
	if err != nil {
		return nil, nil, err
	}

	tokens, err := s.jwtManager.Generate(user)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	slog.Info("user registered", "user_id", user.ID)
	return user, tokens, nil
}

// Login verifies credentials and returns the user with a token pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, *auth.TokenPair, error) {
	user, err := s.authenticator.Authenticate(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}

	tokens, err := s.jwtManager.Generate(user)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate tokens: %w", err)
	}
	return user, tokens, nil
}

// Refresh exchanges a valid refresh token for a new token pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	claims, err := s.jwtManager.ValidateRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	// Re-load the user so tokens are never minted for deleted accounts.
	user, err := s.store.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, auth.ErrInvalidToken
	}

	tokens, err := s.jwtManager.Generate(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}
	return tokens, nil
}
