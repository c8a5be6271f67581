package retry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")

func TestDo_SucceedsAfterRetries(t *testing.T) {
	calls := 0
	v, err := Do(context.Background(), Policy{MaxAttempts: 3}, func(_ context.Context, attempt int) (string, error) {
		calls++
		if attempt < 2 {
			return "", errTransient
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 3, calls)
}

func TestDo_Exhausted(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), Policy{MaxAttempts: 2}, func(context.Context, int) (int, error) {
		calls++
		return 0, errTransient
	})

	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 2, calls)
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	fatal := errors.New("fatal")
	calls := 0
	_, err := Do(context.Background(), Policy{
		MaxAttempts: 5,
		Retryable:   func(err error) bool { return errors.Is(err, errTransient) },
	}, func(context.Context, int) (int, error) {
		calls++
		return 0, fatal
	})

	assert.ErrorIs(t, err, fatal)
	assert.NotErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 1, calls)
}

func TestDo_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_, _ = Do(context.Background(), Policy{}, func(context.Context, int) (int, error) {
		calls++
		return 1, nil
	})
	assert.Equal(t, 1, calls)
}

func TestDo_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Do(ctx, Policy{MaxAttempts: 3}, func(context.Context, int) (int, error) {
		t.Fatal("fn must not be called")
		return 0, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
