package shared

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestKindForStatus(t *testing.T) {
	tc := []struct {
		status int
		want   ErrorKind
	}{
		{200, KindNone},
		{401, KindAuthFailure},
		{403, KindAuthFailure},
		{404, KindNotFound},
		{429, KindRateLimited},
		{500, KindTransient},
		{503, KindTransient},
		{400, KindMalformed},
	}

	for _, tt := range tc {
		t.Run(fmt.Sprintf("status %d", tt.status), func(t *testing.T) {
			if got := KindForStatus(tt.status); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	tc := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{name: "nil", err: nil, want: KindNone},
		{name: "wrapped service error", err: fmt.Errorf("fetch: %w", StatusError("youtube.playlist", 404, "")), want: KindNotFound},
		{name: "auth sentinel", err: fmt.Errorf("refresh: %w", ErrNoRefreshToken), want: KindAuthFailure},
		{name: "malformed sentinel", err: ErrMalformedResponse, want: KindMalformed},
		{name: "transport", err: TransportError("youtube.search", errors.New("connection reset")), want: KindTransient},
		{name: "untagged", err: errors.New("boom"), want: KindTransient},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}

	t.Run("status error unwraps to sentinel", func(t *testing.T) {
		err := StatusError("spotify.tracks", 401, "token expired")
		if !errors.Is(err, ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed in chain, got %v", err)
		}
	})

	t.Run("cancellation is not tagged", func(t *testing.T) {
		err := TransportError("youtube.search", context.Canceled)
		var se *ServiceError
		if errors.As(err, &se) {
			t.Errorf("expected untagged cancellation, got %v", err)
		}
	})
}

func TestRetry(t *testing.T) {
	config := RetryConfig{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond, Multiplier: 2}

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), config, func() error {
			calls++
			if calls < 3 {
				return StatusError("op", 503, "")
			}
			return nil
		})
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if calls != 3 {
			t.Errorf("expected 3 calls, got %d", calls)
		}
	})

	t.Run("stops on non-retryable error", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), config, func() error {
			calls++
			return StatusError("op", 404, "")
		})
		if KindOf(err) != KindNotFound {
			t.Errorf("expected NOT_FOUND to pass through, got %v", err)
		}
		if calls != 1 {
			t.Errorf("expected 1 call, got %d", calls)
		}
	})

	t.Run("exhausted retries keep kind", func(t *testing.T) {
		err := Retry(context.Background(), config, func() error {
			return StatusError("op", 429, "")
		})
		if KindOf(err) != KindRateLimited {
			t.Errorf("expected RATE_LIMITED after exhaustion, got %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		slow := config
		slow.InitialBackoff = time.Hour
		slow.MaxBackoff = time.Hour

		err := Retry(ctx, slow, func() error { return StatusError("op", 500, "") })
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestCalculateBackoff(t *testing.T) {
	if got := calculateBackoff(0, time.Second, 10*time.Second, 2); got != time.Second {
		t.Errorf("expected 1s, got %s", got)
	}
	if got := calculateBackoff(2, time.Second, 10*time.Second, 2); got != 4*time.Second {
		t.Errorf("expected 4s, got %s", got)
	}
	if got := calculateBackoff(10, time.Second, 10*time.Second, 2); got != 10*time.Second {
		t.Errorf("expected cap at 10s, got %s", got)
	}
}
