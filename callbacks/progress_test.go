package callbacks_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberml/ember"
	"github.com/emberml/ember/callbacks"
	"github.com/emberml/ember/internal/tt"
)

func TestProgressLoggerOutput(t *testing.T) {
	var buf bytes.Buffer
	engine := ember.New(func(ctx context.Context, e *ember.Engine[int], batch int) (any, error) {
		e.Metrics().SetGauge("train:loss", 0.25)
		return float64(batch), nil
	})
	err := engine.AddCallbacks(callbacks.NewProgressLogger[int](callbacks.ProgressLoggerConfig{
		Out:         &buf,
		LogInterval: 1,
	}))
	require.NoError(t, err)

	err = engine.Run(context.Background(), tt.NewBatches(1, 2), ember.RunConfig{
		MaxEpochs:  2,
		StartEpoch: -1,
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "run started (max epochs: 2)")
	assert.Contains(t, out, "epoch 1/2")
	assert.Contains(t, out, "epoch 2/2")
	assert.Contains(t, out, "iter 1: output=1.000000")
	assert.Contains(t, out, "iter 4: output=2.000000")
	assert.Contains(t, out, "train:loss=0.250000")
	assert.Contains(t, out, "run completed: 2 epochs, 4 iterations")
}

func TestProgressLoggerInterval(t *testing.T) {
	var buf bytes.Buffer
	engine := ember.New(noopProcess)
	err := engine.AddCallbacks(callbacks.NewProgressLogger[int](callbacks.ProgressLoggerConfig{
		Out:         &buf,
		LogInterval: 2,
	}))
	require.NoError(t, err)

	err = engine.Run(context.Background(), tt.NewBatches(1, 2, 3), ember.DefaultRunConfig())
	require.NoError(t, err)

	out := buf.String()
	assert.NotContains(t, out, "iter 1:")
	assert.Contains(t, out, "iter 2:")
	assert.NotContains(t, out, "iter 3:")
}

func TestProgressLoggerTerminated(t *testing.T) {
	var buf bytes.Buffer
	engine := ember.New(func(ctx context.Context, e *ember.Engine[int], batch int) (any, error) {
		e.Terminate()
		return nil, nil
	})
	err := engine.AddCallbacks(callbacks.NewProgressLogger[int](callbacks.ProgressLoggerConfig{
		Out: &buf,
	}))
	require.NoError(t, err)

	err = engine.Run(context.Background(), tt.NewBatches(1, 2), ember.RunConfig{
		MaxEpochs:  3,
		StartEpoch: -1,
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "run terminated at epoch 1, iteration 1")
}
