package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
)

// Wait blocks until the database answers SELECT 1, trying at most attempts
// times with delay between tries.
func (r *Runner) Wait(ctx context.Context, attempts int, delay time.Duration) error {
	return Wait(ctx, func(ctx context.Context) error {
		var one int
		return r.db.GetContext(ctx, &one, "SELECT 1")
	}, attempts, delay, r.logger)
}

// Wait retries ping until it succeeds. logger may be nil.
func Wait(ctx context.Context, ping func(context.Context) error, attempts int, delay time.Duration, logger *slog.Logger) error {
	if attempts < 1 {
		attempts = 1
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewConstant(delay))

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := ping(ctx); err != nil {
			logger.Info("database not ready",
				slog.Int("attempt", attempt),
				slog.Int("max", attempts),
				slog.String("error", err.Error()),
			)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("migrate: database not ready after %d attempt(s): %w", attempt, err)
	}

	logger.Info("database is ready", slog.Int("attempts", attempt))
	return nil
}
