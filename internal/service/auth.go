// Package service holds the authentication business logic.
//
// AuthService sits between the HTTP handlers and the user store:
//
//	AuthHandler (HTTP) → AuthService → LocalStrategy  → UserRepository (DB)
//	                                 ↘ BearerStrategy ↗
//
// KEY RESPONSIBILITIES:
//   - Login: resolve username-or-email + password to a user
//   - Signup: create the user, then log in with the same credentials so the
//     response is exactly what Login would return
//   - Identify: resolve a bearer token to a user or to "anonymous"
//
// WHAT THIS PACKAGE DOES NOT DO:
//   - It does NOT validate request bodies (handler concern)
//   - It does NOT map errors to HTTP statuses (apperror.Translate does)
//   - It does NOT retry storage failures; they propagate immediately
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/chatapp/internal/model"
	"github.com/sakif/chatapp/internal/repository"
)

// AuthService handles the authentication flows.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users   repository.UserRepository → read/write user records
//   - hasher  model.PasswordHasher      → bcrypt compare for the local strategy
//   - logger  *slog.Logger              → structured logging (never credentials)
type AuthService struct {
	users  repository.UserRepository
	local  *LocalStrategy
	bearer *BearerStrategy
	logger *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(users repository.UserRepository, hasher model.PasswordHasher, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:  users,
		local:  NewLocalStrategy(users, hasher),
		bearer: NewBearerStrategy(users),
		logger: logger,
	}
}

// SignupInput is an already validated signup request.
type SignupInput struct {
	Username string
	Email    string
	Password string
}

// Login runs the local strategy. Login never rotates the token: the user's
// stored token is returned as is.
//
// Returns ErrUnknownUser or ErrInvalidPassword for bad credentials.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*model.User, error) {
	user, err := s.local.Authenticate(ctx, identifier, password)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", slog.Int64("userID", user.ID))
	return user, nil
}

// Signup creates the user and then logs in with the same credentials.
//
// Creation errors keep the store's *apperror.Error in their chain, so
// apperror.Translate can shape them (e.g. UniqueViolation → 409).
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*model.User, error) {
	user := &model.User{
		Username: in.Username,
		Email:    in.Email,
		Password: in.Password,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating user %q: %w", in.Username, err)
	}

	s.logger.Info("user signed up",
		slog.Int64("userID", user.ID),
		slog.String("username", user.Username),
	)

	return s.Login(ctx, in.Username, in.Password)
}

// Identify resolves a bearer token. (nil, nil) is the anonymous outcome.
func (s *AuthService) Identify(ctx context.Context, token string) (*model.User, error) {
	return s.bearer.Authenticate(ctx, token)
}

// Ping reports whether the user store is reachable. Used by /readyz.
func (s *AuthService) Ping(ctx context.Context) error {
	return s.users.Ping(ctx)
}
