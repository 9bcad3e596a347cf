package callbacks_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberml/ember"
	"github.com/emberml/ember/callbacks"
	"github.com/emberml/ember/internal/tt"
)

func TestTerminateOnNaN(t *testing.T) {
	tests := []struct {
		name     string
		input    []any // one output per iteration
		expected int64 // iteration count after the run
	}{
		{
			name:     "nan terminates",
			input:    []any{0.5, math.NaN(), 0.4},
			expected: 2,
		},
		{
			name:     "positive infinity terminates",
			input:    []any{0.5, math.Inf(1), 0.4},
			expected: 2,
		},
		{
			name:     "negative infinity terminates",
			input:    []any{0.5, math.Inf(-1), 0.4},
			expected: 2,
		},
		{
			name:     "float32 nan terminates",
			input:    []any{0.5, float32(math.NaN()), 0.4},
			expected: 2,
		},
		{
			name:     "finite outputs run to completion",
			input:    []any{0.5, 0.4, 0.3},
			expected: 3,
		},
		{
			name:     "non-scalar outputs are ignored",
			input:    []any{"a", nil, []float64{math.NaN()}},
			expected: 3,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			engine := ember.New(func(ctx context.Context, e *ember.Engine[int], batch int) (any, error) {
				return tc.input[batch], nil
			})
			err := engine.AddCallbacks(callbacks.NewTerminateOnNaN[int]())
			require.NoError(t, err)

			err = engine.Run(context.Background(), tt.NewBatches(0, 1, 2), ember.DefaultRunConfig())
			require.NoError(t, err)
			assert.Equal(t, tc.expected, engine.State().Iteration())
		})
	}
}
