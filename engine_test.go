package ember_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberml/ember"
	"github.com/emberml/ember/internal/tt"
)

func constOutput(v any) ember.Process[int] {
	return func(ctx context.Context, e *ember.Engine[int], batch int) (any, error) {
		return v, nil
	}
}

func TestRunEventOrdering(t *testing.T) {
	recorder := tt.NewRecorder[int]()
	engine := ember.New(constOutput(0.5)).Register(recorder)

	err := engine.Run(context.Background(), tt.NewBatches(1, 2), ember.RunConfig{
		MaxEpochs:  2,
		StartEpoch: -1,
	})
	require.NoError(t, err)

	expected := []ember.EventName{
		ember.EventStarted,
		ember.EventEpochStarted,
		ember.EventIterationStarted,
		ember.EventIterationCompleted,
		ember.EventIterationStarted,
		ember.EventIterationCompleted,
		ember.EventEpochCompleted,
		ember.EventEpochStarted,
		ember.EventIterationStarted,
		ember.EventIterationCompleted,
		ember.EventIterationStarted,
		ember.EventIterationCompleted,
		ember.EventEpochCompleted,
		ember.EventCompleted,
	}
	assert.Equal(t, expected, recorder.Names())
}

func TestRunCounters(t *testing.T) {
	var iterations []ember.IterationStartedEvent
	engine := ember.New(constOutput(nil))
	engine.Register(ember.OnIterationStarted(func(e *ember.Engine[int], event *ember.IterationStartedEvent) {
		iterations = append(iterations, *event)
	}))

	err := engine.Run(context.Background(), tt.NewBatches(1, 2), ember.RunConfig{
		MaxEpochs:  2,
		StartEpoch: -1,
	})
	require.NoError(t, err)

	// Counters are 1-indexed and the iteration counter never resets between
	// epochs.
	expected := []ember.IterationStartedEvent{
		{Epoch: 1, Iteration: 1},
		{Epoch: 1, Iteration: 2},
		{Epoch: 2, Iteration: 3},
		{Epoch: 2, Iteration: 4},
	}
	assert.Equal(t, expected, iterations)
	assert.Equal(t, int64(2), engine.State().Epoch())
	assert.Equal(t, int64(4), engine.State().Iteration())
}

func TestRunStoresOutput(t *testing.T) {
	engine := ember.New(func(ctx context.Context, e *ember.Engine[int], batch int) (any, error) {
		return batch * 10, nil
	})

	err := engine.Run(context.Background(), tt.NewBatches(1, 2, 3), ember.DefaultRunConfig())
	require.NoError(t, err)
	assert.Equal(t, 30, engine.State().Output())
}

func TestRunStartEpochOverride(t *testing.T) {
	recorder := tt.NewRecorder[int]()
	engine := ember.New(constOutput(nil)).Register(recorder)

	err := engine.Run(context.Background(), tt.NewBatches(1), ember.RunConfig{
		MaxEpochs:  5,
		StartEpoch: 3,
	})
	require.NoError(t, err)

	// Starting at epoch 3 with MaxEpochs 5 runs epochs 4 and 5 only.
	assert.Equal(t, 2, recorder.Count(ember.EventEpochStarted))
	assert.Equal(t, int64(5), engine.State().Epoch())
}

func TestRunValidation(t *testing.T) {
	tests := []struct {
		name     string
		dataset  ember.Dataset[int]
		input    ember.RunConfig
		expected error
	}{
		{
			name:     "nil dataset",
			dataset:  nil,
			input:    ember.DefaultRunConfig(),
			expected: ember.ErrNilDataset,
		},
		{
			name:     "zero max epochs",
			dataset:  tt.NewBatches(1),
			input:    ember.RunConfig{MaxEpochs: 0, StartEpoch: -1},
			expected: ember.ErrInvalidConfig,
		},
		{
			name:     "negative max epochs",
			dataset:  tt.NewBatches(1),
			input:    ember.RunConfig{MaxEpochs: -3, StartEpoch: -1},
			expected: ember.ErrInvalidConfig,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			engine := ember.New(constOutput(nil))
			err := engine.Run(context.Background(), tc.dataset, tc.input)
			assert.ErrorIs(t, err, tc.expected)
		})
	}
}

func TestRunNotReentrant(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	engine := ember.New(func(ctx context.Context, e *ember.Engine[int], batch int) (any, error) {
		once.Do(func() { close(started) })
		<-release
		return nil, nil
	})

	done := make(chan error, 1)
	go func() {
		done <- engine.Run(context.Background(), tt.NewBatches(1), ember.DefaultRunConfig())
	}()

	<-started
	err := engine.Run(context.Background(), tt.NewBatches(1), ember.DefaultRunConfig())
	assert.ErrorIs(t, err, ember.ErrEngineRunning)

	close(release)
	require.NoError(t, <-done)

	// The engine is reusable once the first run finishes.
	err = engine.Run(context.Background(), tt.NewBatches(1), ember.DefaultRunConfig())
	assert.NoError(t, err)
}

func TestTerminateStopsRun(t *testing.T) {
	recorder := tt.NewRecorder[int]()
	engine := ember.New(func(ctx context.Context, e *ember.Engine[int], batch int) (any, error) {
		if e.State().Iteration() == 3 {
			e.Terminate()
		}
		return nil, nil
	})
	engine.Register(recorder)

	err := engine.Run(context.Background(), tt.NewBatches(1, 2), ember.RunConfig{
		MaxEpochs:  5,
		StartEpoch: -1,
	})
	require.NoError(t, err)

	// Terminate during epoch 2 stops after the current iteration: the
	// epoch-completed event for epoch 2 never fires, the run-completed event
	// still does.
	expected := []ember.EventName{
		ember.EventStarted,
		ember.EventEpochStarted,
		ember.EventIterationStarted,
		ember.EventIterationCompleted,
		ember.EventIterationStarted,
		ember.EventIterationCompleted,
		ember.EventEpochCompleted,
		ember.EventEpochStarted,
		ember.EventIterationStarted,
		ember.EventIterationCompleted,
		ember.EventCompleted,
	}
	assert.Equal(t, expected, recorder.Names())

	completed := recorder.Events[len(recorder.Events)-1].(*ember.CompletedEvent)
	assert.True(t, completed.Terminated)
	assert.Equal(t, int64(2), completed.Epoch)
	assert.Equal(t, int64(3), completed.Iteration)
}

func TestTerminateEpochEndsEpochOnly(t *testing.T) {
	recorder := tt.NewRecorder[int]()
	engine := ember.New(func(ctx context.Context, e *ember.Engine[int], batch int) (any, error) {
		if e.State().Iteration() == 1 {
			e.TerminateEpoch()
		}
		return nil, nil
	})
	engine.Register(recorder)

	err := engine.Run(context.Background(), tt.NewBatches(1, 2, 3), ember.RunConfig{
		MaxEpochs:  2,
		StartEpoch: -1,
	})
	require.NoError(t, err)

	// Epoch 1 ends after a single iteration but still completes; epoch 2 runs
	// the full dataset.
	expected := []ember.EventName{
		ember.EventStarted,
		ember.EventEpochStarted,
		ember.EventIterationStarted,
		ember.EventIterationCompleted,
		ember.EventEpochCompleted,
		ember.EventEpochStarted,
		ember.EventIterationStarted,
		ember.EventIterationCompleted,
		ember.EventIterationStarted,
		ember.EventIterationCompleted,
		ember.EventIterationStarted,
		ember.EventIterationCompleted,
		ember.EventEpochCompleted,
		ember.EventCompleted,
	}
	assert.Equal(t, expected, recorder.Names())
}

func TestUnhandledProcessErrorAbortsRun(t *testing.T) {
	boom := errors.New("boom")
	recorder := tt.NewRecorder[int]()
	registry := ember.NewRegistry[int]()
	registry.Register(ember.OnStarted(func(e *ember.Engine[int], event *ember.StartedEvent) {
		recorder.OnStarted(e, event)
	}))
	registry.Register(ember.OnCompleted(func(e *ember.Engine[int], event *ember.CompletedEvent) {
		recorder.OnCompleted(e, event)
	}))

	engine := ember.New(func(ctx context.Context, e *ember.Engine[int], batch int) (any, error) {
		if batch == 2 {
			return nil, boom
		}
		return nil, nil
	}).WithRegistry(registry)

	err := engine.Run(context.Background(), tt.NewBatches(1, 2, 3), ember.DefaultRunConfig())
	require.ErrorIs(t, err, boom)

	// The run aborts: no run-completed event after the error.
	assert.Equal(t, 1, recorder.Count(ember.EventStarted))
	assert.Equal(t, 0, recorder.Count(ember.EventCompleted))
	assert.Equal(t, int64(2), engine.State().Iteration())
}

func TestHandledProcessErrorEndsEpochEarly(t *testing.T) {
	boom := errors.New("boom")
	recorder := tt.NewRecorder[int]()
	engine := ember.New(func(ctx context.Context, e *ember.Engine[int], batch int) (any, error) {
		if e.State().Epoch() == 1 && batch == 2 {
			return nil, boom
		}
		return nil, nil
	})
	engine.Register(recorder)

	err := engine.Run(context.Background(), tt.NewBatches(1, 2, 3), ember.RunConfig{
		MaxEpochs:  2,
		StartEpoch: -1,
	})
	require.NoError(t, err)

	// With an exception handler registered the error ends epoch 1 early, the
	// epoch still completes, and epoch 2 runs the full dataset.
	assert.Equal(t, 1, recorder.Count(ember.EventExceptionRaised))
	assert.Equal(t, 2, recorder.Count(ember.EventEpochCompleted))
	assert.Equal(t, 1, recorder.Count(ember.EventCompleted))
	assert.Equal(t, 4, recorder.Count(ember.EventIterationCompleted))

	var exc *ember.ExceptionEvent
	for _, event := range recorder.Events {
		if e, ok := event.(*ember.ExceptionEvent); ok {
			exc = e
		}
	}
	require.NotNil(t, exc)
	assert.ErrorIs(t, exc.Err, boom)
	assert.Equal(t, int64(2), exc.Iteration)
}

func TestExceptionHandlerCanTerminate(t *testing.T) {
	recorder := tt.NewRecorder[int]()
	registry := ember.NewRegistry[int]()
	registry.Register(ember.OnException(func(e *ember.Engine[int], event *ember.ExceptionEvent) {
		e.Terminate()
	}))

	engine := ember.New(func(ctx context.Context, e *ember.Engine[int], batch int) (any, error) {
		return nil, errors.New("boom")
	}).WithRegistry(registry)
	engine.Register(recorder)

	err := engine.Run(context.Background(), tt.NewBatches(1, 2), ember.RunConfig{
		MaxEpochs:  5,
		StartEpoch: -1,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, recorder.Count(ember.EventEpochStarted))
	assert.Equal(t, 1, recorder.Count(ember.EventCompleted))
	completed := recorder.Events[len(recorder.Events)-1].(*ember.CompletedEvent)
	assert.True(t, completed.Terminated)
}

func TestDatasetErrorsRouteLikeProcessErrors(t *testing.T) {
	iterateErr := errors.New("shard offline")

	t.Run("unhandled aborts", func(t *testing.T) {
		engine := ember.New(constOutput(nil))
		err := engine.Run(context.Background(), &tt.FailingDataset[int]{
			Items:     []int{1, 2},
			FailAfter: 1,
			Err:       iterateErr,
		}, ember.DefaultRunConfig())
		assert.ErrorIs(t, err, iterateErr)
	})

	t.Run("handled ends epoch", func(t *testing.T) {
		recorder := tt.NewRecorder[int]()
		engine := ember.New(constOutput(nil)).Register(recorder)
		err := engine.Run(context.Background(), &tt.FailingDataset[int]{
			Items:     []int{1, 2},
			FailAfter: 1,
			Err:       iterateErr,
		}, ember.DefaultRunConfig())
		require.NoError(t, err)
		assert.Equal(t, 1, recorder.Count(ember.EventExceptionRaised))
		assert.Equal(t, 1, recorder.Count(ember.EventEpochCompleted))
	})

	t.Run("handled iterate failure", func(t *testing.T) {
		recorder := tt.NewRecorder[int]()
		engine := ember.New(constOutput(nil)).Register(recorder)
		err := engine.Run(context.Background(), &tt.FailingDataset[int]{
			Err: iterateErr,
		}, ember.DefaultRunConfig())
		require.NoError(t, err)
		assert.Equal(t, 1, recorder.Count(ember.EventExceptionRaised))
	})
}

func TestContextCancellationAbortsRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	recorder := tt.NewRecorder[int]()
	engine := ember.New(func(c context.Context, e *ember.Engine[int], batch int) (any, error) {
		if e.State().Iteration() == 2 {
			cancel()
		}
		return nil, nil
	})
	engine.Register(recorder)

	err := engine.Run(ctx, tt.NewBatches(1, 2, 3), ember.RunConfig{
		MaxEpochs:  3,
		StartEpoch: -1,
	})
	assert.ErrorIs(t, err, context.Canceled)

	// Cancellation aborts even though an exception handler is registered.
	assert.Equal(t, 0, recorder.Count(ember.EventExceptionRaised))
	assert.Equal(t, 0, recorder.Count(ember.EventCompleted))
}

func TestCustomEvents(t *testing.T) {
	const validated = ember.EventName("demo:validated")
	var payloads []any

	engine := ember.New(constOutput(nil))
	engine.RegisterEvents(validated)
	engine.Register(ember.OnEvent(validated, func(e *ember.Engine[int], event *ember.CustomEvent) {
		payloads = append(payloads, event.Payload)
	}))
	engine.Register(ember.OnEpochCompleted(func(e *ember.Engine[int], event *ember.EpochCompletedEvent) {
		require.NoError(t, e.Emit(validated, event.Epoch))
	}))

	err := engine.Run(context.Background(), tt.NewBatches(1), ember.RunConfig{
		MaxEpochs:  2,
		StartEpoch: -1,
	})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2)}, payloads)
}

func TestEmitUnknownEvent(t *testing.T) {
	engine := ember.New(constOutput(nil))
	err := engine.Emit("demo:unregistered", nil)
	assert.ErrorIs(t, err, ember.ErrUnknownEvent)
}

func TestNewPanicsWithoutProcess(t *testing.T) {
	assert.Panics(t, func() {
		ember.New[int](nil)
	})
}

func TestRestoreCounters(t *testing.T) {
	engine := ember.New(constOutput(nil))
	engine.RestoreCounters(7, 140)
	assert.Equal(t, int64(7), engine.State().Epoch())
	assert.Equal(t, int64(140), engine.State().Iteration())
}
