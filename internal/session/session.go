// Package session provides cookie-backed sessions.
//
// Each request gets a session: the one named by its signed "chat.sid" cookie
// when that is valid and still stored, otherwise a fresh one. The session is
// saved after every request and the cookie is re-issued, so an active client
// never sees it expire.
//
// Sessions are bookkeeping only. Authentication never reads them; login,
// signup and the webhook derive identity from the request's own credentials.
//
// Cookie value layout:
//
//	HS256 JWT { iss: "chatapp", sub: <xid session id>, iat, exp }
package session

import (
	"context"
	"errors"
	"time"
)

// ErrStoreUnavailable wraps failures of the backing store.
var ErrStoreUnavailable = errors.New("session: store unavailable")

// Session is the server-side state bound to one cookie.
type Session struct {
	ID        string            `json:"id"`
	CreatedAt time.Time         `json:"created_at"`
	Values    map[string]string `json:"values"`
}

// Store persists sessions by id.
type Store interface {
	// Get returns (nil, nil) when id is unknown or expired.
	Get(ctx context.Context, id string) (*Session, error)
	// Save stores s, refreshing its expiry.
	Save(ctx context.Context, s *Session) error
	Ping(ctx context.Context) error
}

type contextKey struct{}

// FromContext returns the request's session, if the middleware attached one.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(contextKey{}).(*Session)
	return s, ok
}

func withSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

func clone(s *Session) *Session {
	c := *s
	c.Values = make(map[string]string, len(s.Values))
	for k, v := range s.Values {
		c.Values[k] = v
	}
	return &c
}
