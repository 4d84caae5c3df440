// Package model defines the data structures used throughout the application.
package model

import (
	"fmt"
	"unicode/utf8"

	"github.com/sakif/chatapp/internal/apperror"
	"github.com/sakif/chatapp/internal/auth"
)

// Column limits of the users table.
const (
	MaxUsernameLength = 255
	MaxEmailLength    = 255
	MaxTokenLength    = 255
)

// PasswordHasher is the hashing capability the User lifecycle needs.
// *auth.PasswordService satisfies it.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Compare(hash, plaintext string) (bool, error)
}

// User is a row of the users table.
//
// Password holds the plaintext only between construction and BeforeInsert;
// after that, and for every loaded row, it is the bcrypt hash. It is never
// serialized: `json:"-"` keeps it out of every encoding of the struct, and
// handlers respond with Public() anyway.
type User struct {
	ID       int64  `json:"userid"   db:"userid"`
	Username string `json:"username" db:"username"`
	Email    string `json:"email"    db:"email"`
	Password string `json:"-"        db:"password"`
	Token    string `json:"token"    db:"token"`
}

// PublicUser is the sanitized view of a User. It has no password field.
type PublicUser struct {
	UserID   int64  `json:"userid"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Token    string `json:"token"`
}

// Public returns the sanitized view of u.
func (u *User) Public() PublicUser {
	return PublicUser{
		UserID:   u.ID,
		Username: u.Username,
		Email:    u.Email,
		Token:    u.Token,
	}
}

// Validate checks u against the users schema: username and email are
// required strings of 1..255 characters, token (when set) at most 255.
// It returns an *apperror.Error of KindModelValidation listing every
// failing field.
func (u *User) Validate() error {
	fields := make(map[string][]apperror.FieldError)

	checkLength(fields, "username", u.Username, 1, MaxUsernameLength)
	checkLength(fields, "email", u.Email, 1, MaxEmailLength)
	if u.Token != "" {
		checkLength(fields, "token", u.Token, 1, MaxTokenLength)
	}

	if len(fields) > 0 {
		return apperror.ModelValidation(fields)
	}
	return nil
}

func checkLength(fields map[string][]apperror.FieldError, name, value string, min, max int) {
	n := utf8.RuneCountInString(value)
	switch {
	case n < min:
		fields[name] = append(fields[name], apperror.FieldError{
			Message: fmt.Sprintf("must NOT have fewer than %d characters", min),
			Keyword: "minLength",
			Params:  map[string]any{"limit": min},
		})
	case n > max:
		fields[name] = append(fields[name], apperror.FieldError{
			Message: fmt.Sprintf("must NOT have more than %d characters", max),
			Keyword: "maxLength",
			Params:  map[string]any{"limit": max},
		})
	}
}

// BeforeInsert runs exactly once, immediately before the row is persisted:
// it replaces the plaintext password with its salted hash and assigns a
// fresh bearer token. Repositories call it from Create.
func (u *User) BeforeInsert(hasher PasswordHasher) error {
	hashed, err := hasher.Hash(u.Password)
	if err != nil {
		return fmt.Errorf("model: hashing password for %q: %w", u.Username, err)
	}

	token, err := auth.NewToken()
	if err != nil {
		return fmt.Errorf("model: generating token for %q: %w", u.Username, err)
	}

	u.Password = hashed
	u.Token = token
	return nil
}

// VerifyPassword compares candidate with the stored hash. A mismatch is
// (false, nil); an error means the comparison itself failed.
func (u *User) VerifyPassword(hasher PasswordHasher, candidate string) (bool, error) {
	ok, err := hasher.Compare(u.Password, candidate)
	if err != nil {
		return false, fmt.Errorf("model: verifying password for user %d: %w", u.ID, err)
	}
	return ok, nil
}
