// Package repository declares the storage contracts of the auth service.
//
// Implementations live in subpackages (postgres, sqlite). Every failure they
// return is an *apperror.Error classified into an apperror.Kind, so callers
// never inspect driver-specific error types.
package repository

import (
	"context"

	"github.com/sakif/chatapp/internal/model"
)

// UserRepository persists and looks up User rows.
//
// Lookups return (nil, nil) when no row matches: "not found" is a normal
// outcome for both strategies, not an error.
type UserRepository interface {
	// Create validates u, runs its insert hook (password hash + fresh token)
	// and inserts it. On success u.ID is set and u.Password holds the hash.
	Create(ctx context.Context, u *model.User) error

	// FindByLogin returns the user whose username OR email equals identifier.
	// When both a username and a different user's email match, the row with
	// the lowest userid wins.
	FindByLogin(ctx context.Context, identifier string) (*model.User, error)

	// FindByToken returns the user holding the exact bearer token.
	FindByToken(ctx context.Context, token string) (*model.User, error)

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
}
