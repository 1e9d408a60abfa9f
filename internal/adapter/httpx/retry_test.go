package httpx_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dfarr/autoreviewer/internal/adapter/httpx"
)

func TestDefaultRetryConfig(t *testing.T) {
	cfg := httpx.DefaultRetryConfig()

	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Delay)
	assert.False(t, cfg.Exponential)
}

func TestBackoff(t *testing.T) {
	fixed := httpx.RetryConfig{MaxAttempts: 3, Delay: 2 * time.Second}
	exponential := httpx.RetryConfig{MaxAttempts: 4, Delay: 2 * time.Second, Exponential: true}

	tests := []struct {
		name    string
		cfg     httpx.RetryConfig
		attempt int
		want    time.Duration
	}{
		{"fixed attempt 1", fixed, 1, 2 * time.Second},
		{"fixed attempt 3", fixed, 3, 2 * time.Second},
		{"exponential attempt 1", exponential, 1, 2 * time.Second},
		{"exponential attempt 2", exponential, 2, 4 * time.Second},
		{"exponential attempt 3", exponential, 3, 8 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, httpx.Backoff(tt.cfg, tt.attempt))
		})
	}
}

func TestDoSucceedsOnFirstAttempt(t *testing.T) {
	cfg := httpx.RetryConfig{MaxAttempts: 3, Delay: time.Hour}

	start := time.Now()
	calls := 0
	got, err := httpx.Do(context.Background(), "op", cfg, nil, func(context.Context) (string, error) {
		calls++
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 1, calls)
	// No delay may be performed on immediate success.
	assert.Less(t, time.Since(start), time.Second)
}

func TestDoRetriesThenSucceeds(t *testing.T) {
	cfg := httpx.RetryConfig{MaxAttempts: 3, Delay: 10 * time.Millisecond}

	start := time.Now()
	calls := 0
	got, err := httpx.Do(context.Background(), "op", cfg, nil, func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
	// Two failures before success means exactly two delays.
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestDoExhaustsAttempts(t *testing.T) {
	cfg := httpx.RetryConfig{MaxAttempts: 3, Delay: time.Millisecond}

	calls := 0
	last := errors.New("final failure")
	_, err := httpx.Do(context.Background(), "op", cfg, nil, func(context.Context) (string, error) {
		calls++
		if calls == cfg.MaxAttempts {
			return "", last
		}
		return "", errors.New("earlier failure")
	})

	assert.Equal(t, 3, calls)
	// The last observed error is re-raised, not an earlier one.
	assert.Equal(t, last, err)
}

func TestDoZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_, err := httpx.Do(context.Background(), "op", httpx.RetryConfig{}, nil, func(context.Context) (string, error) {
		calls++
		return "", errors.New("boom")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoHonorsContextCancellation(t *testing.T) {
	cfg := httpx.RetryConfig{MaxAttempts: 5, Delay: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan error, 1)
	go func() {
		_, err := httpx.Do(ctx, "op", cfg, nil, func(context.Context) (string, error) {
			calls++
			return "", errors.New("transient")
		})
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(time.Second):
		t.Fatal("Do did not return after cancellation")
	}
}

func TestDoCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := httpx.Do(ctx, "op", httpx.DefaultRetryConfig(), nil, func(context.Context) (string, error) {
		calls++
		return "", nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}
