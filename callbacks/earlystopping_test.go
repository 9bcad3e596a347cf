package callbacks_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberml/ember"
	"github.com/emberml/ember/callbacks"
	"github.com/emberml/ember/internal/tt"
)

// lossSchedule sets the watched gauge to a scripted value each epoch.
func lossSchedule(values []float64) ember.Process[int] {
	return func(ctx context.Context, e *ember.Engine[int], batch int) (any, error) {
		epoch := e.State().Epoch()
		e.Metrics().SetGauge("val:loss", values[epoch-1])
		return nil, nil
	}
}

func TestEarlyStoppingTerminates(t *testing.T) {
	tests := []struct {
		name     string
		input    callbacks.EarlyStoppingConfig
		losses   []float64
		expected int64 // epoch count after the run
	}{
		{
			name: "stops after patience exhausted",
			input: callbacks.EarlyStoppingConfig{
				Metric:   "val:loss",
				Patience: 2,
			},
			losses:   []float64{0.5, 0.6, 0.7, 0.4, 0.3},
			expected: 3,
		},
		{
			name: "improvement resets patience",
			input: callbacks.EarlyStoppingConfig{
				Metric:   "val:loss",
				Patience: 2,
			},
			losses:   []float64{0.5, 0.6, 0.4, 0.5, 0.6},
			expected: 5,
		},
		{
			name: "min delta requires real improvement",
			input: callbacks.EarlyStoppingConfig{
				Metric:   "val:loss",
				Patience: 1,
				MinDelta: 0.1,
			},
			losses:   []float64{0.5, 0.45, 0.4, 0.3, 0.2},
			expected: 2,
		},
		{
			name: "max mode watches for increases",
			input: callbacks.EarlyStoppingConfig{
				Metric:   "val:loss",
				Patience: 1,
				Mode:     callbacks.ModeMax,
			},
			losses:   []float64{0.5, 0.7, 0.6, 0.8, 0.9},
			expected: 3,
		},
		{
			name: "never triggers while improving",
			input: callbacks.EarlyStoppingConfig{
				Metric:   "val:loss",
				Patience: 1,
			},
			losses:   []float64{0.5, 0.4, 0.3, 0.2, 0.1},
			expected: 5,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			engine := ember.New(lossSchedule(tc.losses))
			err := engine.AddCallbacks(callbacks.NewEarlyStopping[int](tc.input))
			require.NoError(t, err)

			err = engine.Run(context.Background(), tt.NewBatches(1), ember.RunConfig{
				MaxEpochs:  len(tc.losses),
				StartEpoch: -1,
			})
			require.NoError(t, err)
			assert.Equal(t, tc.expected, engine.State().Epoch())
		})
	}
}

func TestEarlyStoppingMissingMetricIsSkipped(t *testing.T) {
	engine := ember.New(noopProcess)
	err := engine.AddCallbacks(callbacks.NewEarlyStopping[int](callbacks.EarlyStoppingConfig{
		Metric:   "val:loss",
		Patience: 1,
	}))
	require.NoError(t, err)

	err = engine.Run(context.Background(), tt.NewBatches(1), ember.RunConfig{
		MaxEpochs:  3,
		StartEpoch: -1,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), engine.State().Epoch())
}

func TestEarlyStoppingConfigValidation(t *testing.T) {
	tests := []struct {
		name  string
		input callbacks.EarlyStoppingConfig
	}{
		{name: "missing metric", input: callbacks.EarlyStoppingConfig{Patience: 1}},
		{name: "zero patience", input: callbacks.EarlyStoppingConfig{Metric: "val:loss"}},
		{
			name: "bad mode",
			input: callbacks.EarlyStoppingConfig{
				Metric:   "val:loss",
				Patience: 1,
				Mode:     callbacks.Mode("median"),
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ember.New(noopProcess).
				AddCallbacks(callbacks.NewEarlyStopping[int](tc.input))
			assert.Error(t, err)
		})
	}
}
