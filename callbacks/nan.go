package callbacks

import (
	"math"

	"github.com/emberml/ember"
)

// TerminateOnNaN terminates the run as soon as the process output becomes NaN
// or infinite. A diverged loss only produces more divergence; stopping at the
// first bad value keeps the last checkpoint usable.
type TerminateOnNaN[B any] struct{}

// NewTerminateOnNaN creates the callback.
func NewTerminateOnNaN[B any]() *TerminateOnNaN[B] {
	return &TerminateOnNaN[B]{}
}

// Register implements ember.Callback.
func (t *TerminateOnNaN[B]) Register(e *ember.Engine[B]) error {
	e.Register(t)
	return nil
}

func (t *TerminateOnNaN[B]) OnIterationCompleted(
	e *ember.Engine[B],
	event *ember.IterationCompletedEvent,
) {
	value, ok := asFloat(event.Output)
	if !ok {
		return
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		e.Logger().Error("process output diverged, terminating run",
			"epoch", event.Epoch,
			"iteration", event.Iteration,
			"output", value)
		e.Terminate()
	}
}

var _ ember.Callback[any] = (*TerminateOnNaN[any])(nil)
