package shared

import (
	"context"
	"fmt"
	"math"
	"time"
)

// RetryConfig defines retry behavior for catalog requests.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
	// Retryable decides whether an error is worth another attempt. Defaults to [ErrorKind.Retryable].
	Retryable func(error) bool
}

// DefaultRetryConfig returns the retry settings used by the catalog clients.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		Multiplier:     2.0,
		Retryable:      func(err error) bool { return KindOf(err).Retryable() },
	}
}

// Retry executes fn with exponential backoff.
//
// Non-retryable errors are returned unchanged so callers can still classify them.
// Rate-limited failures wait the maximum backoff.
func Retry(ctx context.Context, config RetryConfig, fn func() error) error {
	retryable := config.Retryable
	if retryable == nil {
		retryable = func(err error) bool { return KindOf(err).Retryable() }
	}

	var lastErr error
	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !retryable(err) {
			return err
		}

		if attempt == config.MaxRetries {
			break
		}

		backoff := calculateBackoff(attempt, config.InitialBackoff, config.MaxBackoff, config.Multiplier)
		if KindOf(err) == KindRateLimited {
			backoff = config.MaxBackoff
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(backoff):
		}
	}

	return fmt.Errorf("max retries (%d) exceeded: %w", config.MaxRetries, lastErr)
}

// calculateBackoff returns initial * multiplier^attempt capped at max.
func calculateBackoff(attempt int, initial, max time.Duration, multiplier float64) time.Duration {
	backoff := float64(initial) * math.Pow(multiplier, float64(attempt))
	if backoff > float64(max) {
		backoff = float64(max)
	}
	return time.Duration(backoff)
}
