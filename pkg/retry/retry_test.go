package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fastConfig() Config {
	return Config{
		MaxAttempts: 3,
		InitialWait: time.Millisecond,
		MaxWait:     time.Millisecond,
		Multiplier:  1,
	}
}

func TestDo_SucceedsAfterRetries(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), fastConfig(), func() error {
		attempts++
		if attempts < 3 {
			return Retryable(errors.New("transient"))
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	permanent := errors.New("permanent")
	attempts := 0
	err := Do(context.Background(), fastConfig(), func() error {
		attempts++
		return permanent
	})
	require.ErrorIs(t, err, permanent)
	require.Equal(t, 1, attempts)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	transient := errors.New("transient")
	attempts := 0
	err := Do(context.Background(), fastConfig(), func() error {
		attempts++
		return Retryable(transient)
	})
	require.ErrorIs(t, err, transient)
	require.Equal(t, 3, attempts)
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, fastConfig(), func() error {
		return Retryable(errors.New("transient"))
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestDoWithResult(t *testing.T) {
	attempts := 0
	v, err := DoWithResult(context.Background(), fastConfig(), func() (int, error) {
		attempts++
		if attempts < 2 {
			return 0, Retryable(errors.New("transient"))
		}
		return 42, nil
	})
	require.NoError(t, err)
	require.Equal(t, 42, v)
}

func TestIsRetryable(t *testing.T) {
	require.True(t, IsRetryable(Retryable(errors.New("x"))))
	require.False(t, IsRetryable(errors.New("x")))
	require.NoError(t, Retryable(nil))
}
