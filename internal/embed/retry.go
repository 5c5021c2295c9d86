package embed

import (
	"context"
	"log/slog"
	"time"

	gserrors "github.com/grantsight/grantsight/internal/errors"
)

// RetryConfig controls the exponential backoff applied to provider calls.
type RetryConfig struct {
	// MaxRetries is the number of additional attempts after the first.
	MaxRetries int
	// Delay is the initial backoff, doubled on each retry.
	Delay time.Duration
}

// DefaultRetryConfig returns the standard provider retry policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: DefaultMaxRetries,
		Delay:      DefaultRetryDelay,
	}
}

// withRetry runs fn with exponential backoff. Rate-limit and transient
// errors are retried up to MaxRetries times with Delay * 2^attempt
// between attempts. Permanent errors fail immediately without
// consuming the retry budget. The last error is returned when the
// budget is exhausted.
func withRetry(ctx context.Context, cfg RetryConfig, op string, fn func() error) error {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultRetryDelay
	}

	var lastErr error
	delay := cfg.Delay
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			slog.Warn("retrying provider call",
				slog.String("op", op),
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
				slog.String("kind", gserrors.KindOf(lastErr).String()),
				slog.String("error", lastErr.Error()))

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			delay *= 2
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if gserrors.IsPermanent(lastErr) {
			return lastErr
		}
	}
	return lastErr
}
