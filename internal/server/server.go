// Package server wires stores, services, handlers and middleware into one
// HTTP server and runs it until its context ends.
//
// DEPENDENCY INJECTION FLOW:
// main.go opens the stores and passes them in as Deps:
//
//	Deps.Users (repository.UserRepository) → service.AuthService → handler.AuthHandler
//	Deps.Sessions (*session.Manager)       → session middleware + /readyz
//	Deps.Metrics (*middleware.Metrics)     → metrics middleware + /metrics + auth outcomes
//
// This is the composition root: nothing below this package constructs its own
// dependencies.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/sync/errgroup"

	"github.com/sakif/chatapp/internal/handler"
	"github.com/sakif/chatapp/internal/markdown"
	"github.com/sakif/chatapp/internal/middleware"
	"github.com/sakif/chatapp/internal/model"
	"github.com/sakif/chatapp/internal/repository"
	"github.com/sakif/chatapp/internal/service"
	"github.com/sakif/chatapp/internal/session"
)

// Config holds the HTTP-level settings.
type Config struct {
	Port               int
	CORSAllowedOrigins []string
	ShutdownTimeout    time.Duration
}

// Deps are the long-lived collaborators the server does not own. The caller
// opens them and closes them after Run returns.
type Deps struct {
	Users    repository.UserRepository
	Hasher   model.PasswordHasher
	Sessions *session.Manager
	Metrics  *middleware.Metrics
}

// Server is the auth service's HTTP server.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
}

// New builds the router. It never touches the network.
func New(cfg Config, deps Deps, logger *slog.Logger) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
	}
	s.setupRoutes(deps)
	return s
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes mounts middleware and handlers.
//
// ROUTE STRUCTURE:
// POST   /login               → local strategy login
// POST   /signup              → create user, then log in
// GET    /webhook             → bearer token → gateway role
// POST   /messages/preview    → markdown preview
// GET    /healthz             → liveness
// GET    /readyz              → readiness (user store required, sessions optional)
// GET    /metrics             → Prometheus
//
// MIDDLEWARE ORDER:
// RequestID, RealIP, Logger, metrics, Recoverer, CORS, session. Logger and
// metrics sit outside Recoverer so a recovered panic is still logged and
// counted as a 500.
func (s *Server) setupRoutes(deps Deps) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(deps.Metrics.Middleware)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	s.router.Use(deps.Sessions.Middleware)

	authService := service.NewAuthService(deps.Users, deps.Hasher, s.logger)
	authHandler := handler.NewAuthHandler(authService, deps.Metrics, s.logger)
	previewHandler := handler.NewPreviewHandler(markdown.NewRenderer(), s.logger)
	healthHandler := handler.NewHealthHandler(
		handler.Dependency{Name: "users", Required: true, Check: authService.Ping},
		handler.Dependency{Name: "sessions", Check: deps.Sessions.Ping},
	)

	s.router.Post("/login", authHandler.HandleLogin)
	s.router.Post("/signup", authHandler.HandleSignup)
	s.router.Get("/webhook", authHandler.HandleWebhook)
	s.router.Post("/messages/preview", previewHandler.HandlePreview)

	s.router.Get("/healthz", healthHandler.Liveness)
	s.router.Get("/readyz", healthHandler.Readiness)
	s.router.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
}

// Run serves until ctx is cancelled, then drains in-flight requests within
// ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: listening: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down", slog.Duration("timeout", s.config.ShutdownTimeout))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown: %w", err)
		}
		s.logger.Info("server stopped gracefully")
		return nil
	})

	return g.Wait()
}
