package callbacks

import (
	"errors"
	"time"

	"github.com/emberml/ember"
)

// TimeLimitConfig holds configuration options for a TimeLimit.
type TimeLimitConfig struct {
	// Limit is the wall-clock budget for the run, measured from the
	// StartedEvent. Must be positive.
	Limit time.Duration
}

// TimeLimit terminates the run once it has consumed its wall-clock budget.
// The check runs after each iteration, so the run overshoots the limit by at
// most one iteration.
type TimeLimit[B any] struct {
	cfg   TimeLimitConfig
	start time.Time
}

// NewTimeLimit creates a TimeLimit from the config.
func NewTimeLimit[B any](cfg TimeLimitConfig) *TimeLimit[B] {
	return &TimeLimit[B]{cfg: cfg}
}

// Register validates the config and attaches the handlers. Implements
// ember.Callback.
func (t *TimeLimit[B]) Register(e *ember.Engine[B]) error {
	if t.cfg.Limit <= 0 {
		return errors.New("callbacks: TimeLimit requires a positive Limit")
	}
	e.Register(t)
	return nil
}

func (t *TimeLimit[B]) OnStarted(e *ember.Engine[B], event *ember.StartedEvent) {
	t.start = e.Clock().Now()
}

func (t *TimeLimit[B]) OnIterationCompleted(
	e *ember.Engine[B],
	event *ember.IterationCompletedEvent,
) {
	elapsed := e.Clock().Now().Sub(t.start)
	if elapsed < t.cfg.Limit {
		return
	}
	e.Logger().Info("time limit reached, terminating run",
		"limit", t.cfg.Limit,
		"elapsed", elapsed,
		"epoch", event.Epoch,
		"iteration", event.Iteration)
	e.Terminate()
}

var _ ember.Callback[any] = (*TimeLimit[any])(nil)
