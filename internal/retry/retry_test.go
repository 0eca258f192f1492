package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastOptions() Options {
	return Options{
		MaxAttempts:     3,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2.0,
	}
}

func TestDo_SucceedsFirstTry(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		return nil
	}, fastOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, fastOptions())
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	sentinel := errors.New("still failing")
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		return sentinel
	}, fastOptions())
	require.ErrorIs(t, err, sentinel)
	assert.Equal(t, 3, calls)
}

func TestDo_ClassifierStopsRetries(t *testing.T) {
	permanent := errors.New("permanent")
	opts := fastOptions()
	opts.Classifier = func(err error) bool {
		return !errors.Is(err, permanent)
	}

	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		return permanent
	}, opts)
	require.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls, "non-retryable errors return immediately")
}

func TestDo_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := fastOptions()
	opts.InitialInterval = time.Minute

	err := Do(ctx, func() error {
		return errors.New("transient")
	}, opts)
	require.ErrorIs(t, err, context.Canceled)
}
