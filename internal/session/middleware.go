package session

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/xid"
)

// CookieName is the session cookie's name.
const CookieName = "chat.sid"

// Manager attaches a session to every request.
type Manager struct {
	store  Store
	signer *Signer
	ttl    time.Duration
	secure bool
	logger *slog.Logger
}

// NewManager builds a Manager. secure sets the cookie's Secure attribute.
func NewManager(store Store, signer *Signer, ttl time.Duration, secure bool, logger *slog.Logger) *Manager {
	return &Manager{store: store, signer: signer, ttl: ttl, secure: secure, logger: logger}
}

// Ping checks the backing store.
func (m *Manager) Ping(ctx context.Context) error {
	return m.store.Ping(ctx)
}

// Middleware resolves or creates the session, re-issues the cookie, runs next
// and saves the session afterwards. A store failure is logged and the request
// continues without a session.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		s, err := m.load(r)
		if err != nil {
			m.logger.Warn("session store unavailable", slog.Any("error", err))
			next.ServeHTTP(w, r)
			return
		}

		value, err := m.signer.Sign(s.ID)
		if err != nil {
			m.logger.Error("signing session cookie", slog.Any("error", err))
			next.ServeHTTP(w, r)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     CookieName,
			Value:    value,
			Path:     "/",
			MaxAge:   int(m.ttl.Seconds()),
			HttpOnly: true,
			Secure:   m.secure,
			SameSite: http.SameSiteLaxMode,
		})

		next.ServeHTTP(w, r.WithContext(withSession(ctx, s)))

		if err := m.store.Save(ctx, s); err != nil {
			m.logger.Warn("saving session", slog.String("sessionID", s.ID), slog.Any("error", err))
		}
	})
}

// load returns the stored session named by the request cookie, or a new one
// when the cookie is missing, invalid, expired or unknown to the store.
func (m *Manager) load(r *http.Request) (*Session, error) {
	if c, err := r.Cookie(CookieName); err == nil {
		if id, err := m.signer.Parse(c.Value); err == nil {
			s, err := m.store.Get(r.Context(), id)
			if err != nil {
				return nil, err
			}
			if s != nil {
				return s, nil
			}
		}
	}

	return &Session{
		ID:        xid.New().String(),
		CreatedAt: time.Now().UTC(),
		Values:    map[string]string{},
	}, nil
}
