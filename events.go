package ember

import "time"

// EventName identifies a lifecycle point in an Engine run.
//
// # Naming Convention
//
// Event names follow the pattern: "namespace:category:timing"
//   - namespace: "ember" for framework events, application name for custom events
//   - category: what the event is about (run, epoch, iteration)
//   - timing: when in the lifecycle (started, completed) - omitted for single events
//
// # Examples
//
//	ember:epoch:started       // Framework: an epoch is about to run
//	ember:iteration:completed // Framework: the process function returned
//	myapp:validation:done     // Application: custom event
type EventName string

const (
	// Run lifecycle
	EventStarted   EventName = "ember:run:started"
	EventCompleted EventName = "ember:run:completed"

	// Epoch lifecycle
	EventEpochStarted   EventName = "ember:epoch:started"
	EventEpochCompleted EventName = "ember:epoch:completed"

	// Iteration lifecycle
	EventIterationStarted   EventName = "ember:iteration:started"
	EventIterationCompleted EventName = "ember:iteration:completed"

	// Errors
	EventExceptionRaised EventName = "ember:exception"
)

// -----------------------------------------------------------------------------
// Engine Event Interface
// -----------------------------------------------------------------------------

// Event is the marker interface for all engine lifecycle events.
type Event interface {
	// Name returns the EventName this event is dispatched under.
	Name() EventName

	engineEvent()
}

// -----------------------------------------------------------------------------
// Run Events
// -----------------------------------------------------------------------------

// StartedEvent is emitted once when Run begins, before the first epoch.
type StartedEvent struct {
	// Epoch is the epoch counter at the start of the run. Non-zero when the
	// run resumes from a checkpoint or an explicit StartEpoch.
	Epoch int64

	// MaxEpochs is the configured number of epochs for this run.
	MaxEpochs int
}

func (*StartedEvent) Name() EventName { return EventStarted }
func (*StartedEvent) engineEvent()    {}

// CompletedEvent is emitted once when the run ends, after the final epoch.
// It fires on normal completion and after Terminate, but not when the run
// aborts with an unhandled error.
type CompletedEvent struct {
	// Epoch is the final epoch counter.
	Epoch int64

	// Iteration is the final iteration counter.
	Iteration int64

	// Terminated is true when the run was cut short by Terminate.
	Terminated bool

	// Duration is the total wall-clock time of the run.
	Duration time.Duration
}

func (*CompletedEvent) Name() EventName { return EventCompleted }
func (*CompletedEvent) engineEvent()    {}

// -----------------------------------------------------------------------------
// Epoch Events
// -----------------------------------------------------------------------------

// EpochStartedEvent is emitted after the epoch counter is incremented,
// before the first iteration of the epoch.
type EpochStartedEvent struct {
	// Epoch is the current epoch number (1-indexed).
	Epoch int64
}

func (*EpochStartedEvent) Name() EventName { return EventEpochStarted }
func (*EpochStartedEvent) engineEvent()    {}

// EpochCompletedEvent is emitted after the last iteration of an epoch.
type EpochCompletedEvent struct {
	// Epoch is the epoch number that just finished (1-indexed).
	Epoch int64

	// Iteration is the global iteration counter at the end of the epoch.
	Iteration int64

	// Duration is how long the epoch took.
	Duration time.Duration
}

func (*EpochCompletedEvent) Name() EventName { return EventEpochCompleted }
func (*EpochCompletedEvent) engineEvent()    {}

// -----------------------------------------------------------------------------
// Iteration Events
// -----------------------------------------------------------------------------

// IterationStartedEvent is emitted after the iteration counter is
// incremented, before the process function runs on the batch.
type IterationStartedEvent struct {
	// Epoch is the current epoch number (1-indexed).
	Epoch int64

	// Iteration is the global iteration number (1-indexed, never resets
	// between epochs).
	Iteration int64
}

func (*IterationStartedEvent) Name() EventName { return EventIterationStarted }
func (*IterationStartedEvent) engineEvent()    {}

// IterationCompletedEvent is emitted after the process function returns.
type IterationCompletedEvent struct {
	// Epoch is the current epoch number (1-indexed).
	Epoch int64

	// Iteration is the global iteration number (1-indexed).
	Iteration int64

	// Output is the value returned by the process function for this batch.
	Output any

	// Duration is how long the process function took.
	Duration time.Duration
}

func (*IterationCompletedEvent) Name() EventName { return EventIterationCompleted }
func (*IterationCompletedEvent) engineEvent()    {}

// -----------------------------------------------------------------------------
// Error Events
// -----------------------------------------------------------------------------

// ExceptionEvent is emitted when the process function or the dataset iterator
// fails. It is only dispatched when at least one ExceptionHandler is
// registered; otherwise Run returns the error directly.
type ExceptionEvent struct {
	// Epoch is the epoch where the error occurred (0 if before the first epoch).
	Epoch int64

	// Iteration is the iteration where the error occurred (0 if before the
	// first iteration).
	Iteration int64

	// Err is the error that occurred.
	Err error
}

func (*ExceptionEvent) Name() EventName { return EventExceptionRaised }
func (*ExceptionEvent) engineEvent()    {}

// -----------------------------------------------------------------------------
// Custom Events
// -----------------------------------------------------------------------------

// CustomEvent carries a user-defined event emitted via Engine.Emit. The name
// must have been declared with Engine.RegisterEvents first.
type CustomEvent struct {
	// EventName is the registered name this event was emitted under.
	EventName EventName

	// Epoch is the epoch counter at emit time.
	Epoch int64

	// Iteration is the iteration counter at emit time.
	Iteration int64

	// Payload is the arbitrary value passed to Emit.
	Payload any
}

func (e *CustomEvent) Name() EventName { return e.EventName }
func (*CustomEvent) engineEvent()      {}
