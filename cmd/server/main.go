// Package main is the entry point for the chat auth service.
//
// main only reads configuration, opens the stores and hands them to
// internal/server; everything else lives in the internal packages.
//
// STORE SELECTION:
//   - DATABASE_URL=postgres://...  → Postgres user store (pgx)
//   - DATABASE_URL=sqlite:<path>   → embedded SQLite user store, schema applied on open
//   - REDIS_URL set                → Redis session store, otherwise in-memory LRU
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sakif/chatapp/internal/auth"
	"github.com/sakif/chatapp/internal/config"
	"github.com/sakif/chatapp/internal/middleware"
	"github.com/sakif/chatapp/internal/repository"
	"github.com/sakif/chatapp/internal/repository/postgres"
	sqliteRepo "github.com/sakif/chatapp/internal/repository/sqlite"
	"github.com/sakif/chatapp/internal/server"
	"github.com/sakif/chatapp/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := cfg.NewLogger(os.Stdout)

	if err := run(cfg, logger); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	if err := cfg.ValidateServer(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hasher := auth.NewPasswordService(cfg.BcryptCost)

	users, closeUsers, err := openUserStore(ctx, cfg, hasher)
	if err != nil {
		return err
	}
	defer closeUsers.Close()

	store, closeSessions, err := openSessionStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSessions.Close()

	signer, err := session.NewSigner(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		return err
	}

	srv := server.New(server.Config{
		Port:               cfg.Port,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		ShutdownTimeout:    cfg.ShutdownTimeout,
	}, server.Deps{
		Users:    users,
		Hasher:   hasher,
		Sessions: session.NewManager(store, signer, cfg.SessionTTL, false, logger),
		Metrics:  middleware.NewMetrics(),
	}, logger)

	return srv.Run(ctx)
}

func openUserStore(ctx context.Context, cfg *config.Config, hasher *auth.PasswordService) (repository.UserRepository, io.Closer, error) {
	if cfg.UsesSQLite() {
		path := cfg.SQLitePath()
		if path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		db, err := sqliteRepo.New(ctx, path, hasher)
		if err != nil {
			return nil, nil, err
		}
		return db, db, nil
	}

	pool, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return postgres.New(pool, hasher), pool, nil
}

func openSessionStore(ctx context.Context, cfg *config.Config) (session.Store, io.Closer, error) {
	if cfg.RedisURL == "" {
		return session.NewMemoryStore(session.DefaultMemoryCapacity, cfg.SessionTTL), io.NopCloser(nil), nil
	}
	rs, err := session.NewRedisStore(ctx, cfg.RedisURL, cfg.SessionTTL)
	if err != nil {
		return nil, nil, err
	}
	return rs, rs, nil
}
