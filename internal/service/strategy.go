package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sakif/chatapp/internal/model"
	"github.com/sakif/chatapp/internal/repository"
)

// Credential failures of the local strategy. Handlers report both with the
// same response so callers cannot tell which half of the pair was wrong.
var (
	ErrUnknownUser     = errors.New("unknown user")
	ErrInvalidPassword = errors.New("invalid password")
)

// LocalStrategy verifies an identifier (username or email) and a plaintext
// password against the user store.
type LocalStrategy struct {
	users  repository.UserRepository
	hasher model.PasswordHasher
}

func NewLocalStrategy(users repository.UserRepository, hasher model.PasswordHasher) *LocalStrategy {
	return &LocalStrategy{users: users, hasher: hasher}
}

// Authenticate returns the matching user, ErrUnknownUser, ErrInvalidPassword,
// or a wrapped storage/comparison error.
func (s *LocalStrategy) Authenticate(ctx context.Context, identifier, password string) (*model.User, error) {
	user, err := s.users.FindByLogin(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("service/local: looking up user: %w", err)
	}
	if user == nil {
		return nil, ErrUnknownUser
	}

	ok, err := user.VerifyPassword(s.hasher, password)
	if err != nil {
		return nil, fmt.Errorf("service/local: %w", err)
	}
	if !ok {
		return nil, ErrInvalidPassword
	}
	return user, nil
}

// BearerStrategy resolves an opaque bearer token to a user.
type BearerStrategy struct {
	users repository.UserRepository
}

func NewBearerStrategy(users repository.UserRepository) *BearerStrategy {
	return &BearerStrategy{users: users}
}

// Authenticate returns the user holding token, or (nil, nil) for the
// anonymous outcome: an empty token never reaches the store, and an unknown
// one is not an error. Only storage failures are returned as errors.
func (s *BearerStrategy) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, nil
	}

	user, err := s.users.FindByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("service/bearer: looking up token: %w", err)
	}
	return user, nil
}
