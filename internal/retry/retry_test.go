package retry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Fixed(3, 0).Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Fixed(3, 0).Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsBudget(t *testing.T) {
	sentinel := errors.New("always fails")
	calls := 0
	err := Fixed(3, 0).Do(context.Background(), func(context.Context) error {
		calls++
		return sentinel
	})

	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, ErrAttemptsExhausted)
	assert.ErrorIs(t, err, sentinel)
}

func TestDo_TerminalErrorStopsImmediately(t *testing.T) {
	terminal := errors.New("forbidden")
	policy := Policy{
		MaxAttempts: 3,
		Retryable:   func(err error) bool { return !errors.Is(err, terminal) },
	}

	calls := 0
	err := policy.Do(context.Background(), func(context.Context) error {
		calls++
		return terminal
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, terminal)
	assert.NotErrorIs(t, err, ErrAttemptsExhausted)
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Fixed(3, 0).Do(ctx, func(context.Context) error {
		calls++
		return errors.New("never reached")
	})

	assert.Equal(t, 0, calls)
	assert.ErrorIs(t, err, context.Canceled)
}
