// Package auth provides the credential primitives of the chat service:
// bcrypt password hashing, bearer token generation and Authorization
// header parsing.
//
// bcrypt embeds a fresh random salt in every hash it produces, so two users
// with the same password never share a stored value:
//
//	$2a$10$<22-char salt><31-char hash>
//	 ^   ^
//	 |   cost (10 rounds, 2^10 iterations)
//	 version
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost matches the work factor of bcrypt's default salt generation.
const DefaultCost = bcrypt.DefaultCost

// maxPasswordBytes is bcrypt's input limit. Only this prefix of a password
// is hashed or compared, so longer passwords are accepted and their tail is
// ignored.
const maxPasswordBytes = 72

// PasswordService hashes and compares passwords with bcrypt.
//
// The cost is injectable so tests can run at bcrypt.MinCost.
type PasswordService struct {
	cost int
}

// NewPasswordService creates a PasswordService with the given cost. Values
// outside bcrypt's accepted range fall back to DefaultCost.
func NewPasswordService(cost int) *PasswordService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &PasswordService{cost: cost}
}

// NewPasswordServiceForTest creates a PasswordService with bcrypt's minimum
// cost. Do NOT use in production.
func NewPasswordServiceForTest() *PasswordService {
	return &PasswordService{cost: bcrypt.MinCost}
}

// Hash hashes the first 72 bytes of plaintext with a freshly generated salt.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword(bcryptInput(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}

	return string(hashed), nil
}

// Compare reports whether plaintext matches the stored hash.
//
// A mismatch is (false, nil). An error is returned only when the comparison
// itself cannot be performed, e.g. the stored hash is malformed.
func (p *PasswordService) Compare(hash, plaintext string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), bcryptInput(plaintext))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("auth: comparing password hash: %w", err)
	}
}

func bcryptInput(plaintext string) []byte {
	b := []byte(plaintext)
	if len(b) > maxPasswordBytes {
		b = b[:maxPasswordBytes]
	}
	return b
}
