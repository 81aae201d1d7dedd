package retry

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fastConfig(attempts int) Config {
	return Config{
		MaxAttempts:       attempts,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        2 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Do(context.Background(), fastConfig(3), func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestDoRetriesTransientUntilSuccess(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Do(context.Background(), fastConfig(3), func(context.Context) error {
		calls++
		if calls < 3 {
			return MarkTransient(errors.New("try again"))
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	t.Parallel()

	calls := 0
	permanent := errors.New("bad request")
	err := Do(context.Background(), fastConfig(3), func(context.Context) error {
		calls++
		return permanent
	})
	require.ErrorIs(t, err, permanent)
	require.Equal(t, 1, calls, "permanent faults are never retried")
}

func TestDoExhaustion(t *testing.T) {
	t.Parallel()

	cause := errors.New("still down")
	err := Do(context.Background(), fastConfig(2), func(context.Context) error {
		return MarkTransient(cause)
	})

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Equal(t, 2, exhausted.Attempts)
	require.ErrorIs(t, err, cause, "ExhaustedError unwraps to the last cause")
}

func TestDoHonorsContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, Config{MaxAttempts: 5, InitialBackoff: time.Minute, BackoffMultiplier: 2}, func(context.Context) error {
		calls++
		cancel()
		return MarkTransient(errors.New("transient"))
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	require.False(t, IsRetryable(nil))
	require.False(t, IsRetryable(errors.New("plain")))
	require.False(t, IsRetryable(context.Canceled))
	require.True(t, IsRetryable(context.DeadlineExceeded))
	require.True(t, IsRetryable(MarkTransient(errors.New("rate limited"))))
	require.True(t, IsRetryable(&net.DNSError{IsTemporary: true}))
	require.False(t, IsRetryable(&net.DNSError{}))

	// Wrapped transients stay retryable.
	wrapped := errors.Join(errors.New("context"), MarkTransient(errors.New("inner")))
	require.True(t, IsRetryable(wrapped))
}

func TestMarkTransientNil(t *testing.T) {
	t.Parallel()

	require.NoError(t, MarkTransient(nil))
}

func TestCalculateBackoffCapped(t *testing.T) {
	t.Parallel()

	cfg := Config{InitialBackoff: time.Second, MaxBackoff: 3 * time.Second, BackoffMultiplier: 10}
	require.Equal(t, time.Second, calculateBackoff(cfg, 1))
	require.Equal(t, 3*time.Second, calculateBackoff(cfg, 2))
	require.Equal(t, 3*time.Second, calculateBackoff(cfg, 5))
}
