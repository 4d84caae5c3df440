package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "chatapp"

// Signer issues and verifies session cookie values.
type Signer struct {
	secret []byte
	ttl    time.Duration
}

// NewSigner returns a Signer. The secret is mandatory: the service refuses to
// start without one.
func NewSigner(secret string, ttl time.Duration) (*Signer, error) {
	if secret == "" {
		return nil, errors.New("session: secret must not be empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("session: ttl must be positive, got %s", ttl)
	}
	return &Signer{secret: []byte(secret), ttl: ttl}, nil
}

// Sign returns the cookie value for session id.
func (s *Signer) Sign(id string) (string, error) {
	now := time.Now()
	c := jwt.RegisteredClaims{
		Subject:   id,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("session: signing cookie: %w", err)
	}
	return signed, nil
}

// Parse verifies a cookie value and returns the session id it names.
func (s *Signer) Parse(value string) (string, error) {
	var c jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(value, &c,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("session: invalid cookie: %w", err)
	}
	if c.Subject == "" {
		return "", errors.New("session: cookie has no session id")
	}
	return c.Subject, nil
}
