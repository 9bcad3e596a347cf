package callbacks_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberml/ember"
	"github.com/emberml/ember/callbacks"
	"github.com/emberml/ember/internal/tt"
)

func TestTimeLimitTerminates(t *testing.T) {
	clock := ember.NewFixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	engine := ember.New(func(ctx context.Context, e *ember.Engine[int], batch int) (any, error) {
		clock.Advance(10 * time.Second)
		return nil, nil
	}).WithClock(clock)

	err := engine.AddCallbacks(callbacks.NewTimeLimit[int](callbacks.TimeLimitConfig{
		Limit: 25 * time.Second,
	}))
	require.NoError(t, err)

	err = engine.Run(context.Background(), tt.NewBatches(1, 2, 3, 4, 5), ember.DefaultRunConfig())
	require.NoError(t, err)

	// Each iteration costs 10s, so the 25s budget runs out after the third.
	assert.Equal(t, int64(3), engine.State().Iteration())
}

func TestTimeLimitGenerousBudgetRunsToCompletion(t *testing.T) {
	clock := ember.NewFixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	engine := ember.New(func(ctx context.Context, e *ember.Engine[int], batch int) (any, error) {
		clock.Advance(time.Second)
		return nil, nil
	}).WithClock(clock)

	err := engine.AddCallbacks(callbacks.NewTimeLimit[int](callbacks.TimeLimitConfig{
		Limit: time.Hour,
	}))
	require.NoError(t, err)

	err = engine.Run(context.Background(), tt.NewBatches(1, 2, 3), ember.RunConfig{
		MaxEpochs:  2,
		StartEpoch: -1,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(6), engine.State().Iteration())
}

func TestTimeLimitRequiresPositiveLimit(t *testing.T) {
	err := ember.New(noopProcess).
		AddCallbacks(callbacks.NewTimeLimit[int](callbacks.TimeLimitConfig{}))
	assert.Error(t, err)
}
