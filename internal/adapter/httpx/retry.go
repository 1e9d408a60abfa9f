// Package httpx provides the shared plumbing for HTTP collaborators:
// typed errors, the resilient retry executor, and structured logging.
package httpx

import (
	"context"
	"time"
)

// RetryConfig holds configuration for the resilient operation executor.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// Delay is the wait between attempts. With Exponential set it is the
	// base delay, doubled after every failed attempt.
	Delay time.Duration
	// Exponential selects exponential backoff instead of a fixed delay.
	Exponential bool
}

// DefaultRetryConfig returns the default executor configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		Delay:       2 * time.Second,
	}
}

// Backoff returns the wait before the given retry. attempt is 1-based:
// the delay after the first failed attempt is Backoff(cfg, 1).
func Backoff(cfg RetryConfig, attempt int) time.Duration {
	if !cfg.Exponential {
		return cfg.Delay
	}
	delay := cfg.Delay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	return delay
}

// Do executes op up to cfg.MaxAttempts times. Each failure is logged with
// the operation label and attempt number; when attempts remain, Do waits
// for the configured backoff before retrying. When all attempts are
// exhausted, the last observed error is returned, never swallowed.
// Every invocation is independent; no state is shared across calls.
func Do[T any](ctx context.Context, label string, cfg RetryConfig, logger Logger, op func(context.Context) (T, error)) (T, error) {
	var zero T

	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	if logger == nil {
		logger = NopLogger{}
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		value, err := op(ctx)
		if err == nil {
			return value, nil
		}
		lastErr = err
		logger.Warnf("%s: attempt %d/%d failed: %v", label, attempt, attempts, err)

		if attempt == attempts {
			break
		}

		select {
		case <-time.After(Backoff(cfg, attempt)):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}

	return zero, lastErr
}
