package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

// tokenBytes is the amount of randomness in a bearer token; the hex
// encoding doubles it to 32 characters.
const tokenBytes = 16

var tokenPattern = regexp.MustCompile(`^[a-f0-9]{32}$`)

// NewToken returns a bearer token: the lowercase hex encoding of 16
// cryptographically random bytes.
func NewToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("auth: generating token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// IsWellFormedToken reports whether s has the shape NewToken produces.
func IsWellFormedToken(s string) bool {
	return tokenPattern.MatchString(s)
}

// BearerToken extracts the credential from an "Authorization: Bearer <token>"
// header. It returns ("", false) when the header is absent or malformed.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}
