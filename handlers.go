package ember

// Handler interfaces define type-safe event subscriptions.
//
// Implement any combination of these interfaces on a single struct to receive
// multiple event types. The Registry detects which interfaces a handler
// implements and calls the matching methods, in registration order.
//
// # Example
//
//	type LossTracker struct {
//	    best float64
//	}
//
//	// Implement multiple handler interfaces
//	func (t *LossTracker) OnIterationCompleted(
//	    e *ember.Engine[[]float64],
//	    event *ember.IterationCompletedEvent,
//	) {
//	    if loss, ok := event.Output.(float64); ok && loss < t.best {
//	        t.best = loss
//	    }
//	}
//
//	func (t *LossTracker) OnCompleted(
//	    e *ember.Engine[[]float64],
//	    event *ember.CompletedEvent,
//	) {
//	    fmt.Printf("best loss: %f\n", t.best)
//	}
//
//	// Register with the engine
//	engine.Register(&LossTracker{best: math.Inf(1)})
//
// For single-event handlers the func adapters (OnStarted, OnEpochCompleted,
// ...) avoid the boilerplate of a named type.

// StartedHandler receives StartedEvent events.
type StartedHandler[B any] interface {
	OnStarted(e *Engine[B], event *StartedEvent)
}

// CompletedHandler receives CompletedEvent events.
type CompletedHandler[B any] interface {
	OnCompleted(e *Engine[B], event *CompletedEvent)
}

// EpochStartedHandler receives EpochStartedEvent events.
type EpochStartedHandler[B any] interface {
	OnEpochStarted(e *Engine[B], event *EpochStartedEvent)
}

// EpochCompletedHandler receives EpochCompletedEvent events.
type EpochCompletedHandler[B any] interface {
	OnEpochCompleted(e *Engine[B], event *EpochCompletedEvent)
}

// IterationStartedHandler receives IterationStartedEvent events.
type IterationStartedHandler[B any] interface {
	OnIterationStarted(e *Engine[B], event *IterationStartedEvent)
}

// IterationCompletedHandler receives IterationCompletedEvent events.
type IterationCompletedHandler[B any] interface {
	OnIterationCompleted(e *Engine[B], event *IterationCompletedEvent)
}

// ExceptionHandler receives ExceptionEvent events. Registering at least one
// changes error routing: process and iterator errors are dispatched instead
// of aborting the run. Handlers that want to stop the run call
// Engine.Terminate.
type ExceptionHandler[B any] interface {
	OnException(e *Engine[B], event *ExceptionEvent)
}

// CustomHandler receives all CustomEvent events. Filter by event.EventName,
// or use the OnEvent adapter to subscribe to a single name.
type CustomHandler[B any] interface {
	OnCustomEvent(e *Engine[B], event *CustomEvent)
}

// -----------------------------------------------------------------------------
// Func Adapters
// -----------------------------------------------------------------------------

type startedFunc[B any] func(*Engine[B], *StartedEvent)

func (f startedFunc[B]) OnStarted(e *Engine[B], event *StartedEvent) { f(e, event) }

// OnStarted wraps fn as a StartedHandler.
func OnStarted[B any](fn func(*Engine[B], *StartedEvent)) StartedHandler[B] {
	return startedFunc[B](fn)
}

type completedFunc[B any] func(*Engine[B], *CompletedEvent)

func (f completedFunc[B]) OnCompleted(e *Engine[B], event *CompletedEvent) { f(e, event) }

// OnCompleted wraps fn as a CompletedHandler.
func OnCompleted[B any](fn func(*Engine[B], *CompletedEvent)) CompletedHandler[B] {
	return completedFunc[B](fn)
}

type epochStartedFunc[B any] func(*Engine[B], *EpochStartedEvent)

func (f epochStartedFunc[B]) OnEpochStarted(e *Engine[B], event *EpochStartedEvent) { f(e, event) }

// OnEpochStarted wraps fn as an EpochStartedHandler.
func OnEpochStarted[B any](fn func(*Engine[B], *EpochStartedEvent)) EpochStartedHandler[B] {
	return epochStartedFunc[B](fn)
}

type epochCompletedFunc[B any] func(*Engine[B], *EpochCompletedEvent)

func (f epochCompletedFunc[B]) OnEpochCompleted(e *Engine[B], event *EpochCompletedEvent) {
	f(e, event)
}

// OnEpochCompleted wraps fn as an EpochCompletedHandler.
func OnEpochCompleted[B any](fn func(*Engine[B], *EpochCompletedEvent)) EpochCompletedHandler[B] {
	return epochCompletedFunc[B](fn)
}

type iterationStartedFunc[B any] func(*Engine[B], *IterationStartedEvent)

func (f iterationStartedFunc[B]) OnIterationStarted(e *Engine[B], event *IterationStartedEvent) {
	f(e, event)
}

// OnIterationStarted wraps fn as an IterationStartedHandler.
func OnIterationStarted[B any](fn func(*Engine[B], *IterationStartedEvent)) IterationStartedHandler[B] {
	return iterationStartedFunc[B](fn)
}

type iterationCompletedFunc[B any] func(*Engine[B], *IterationCompletedEvent)

func (f iterationCompletedFunc[B]) OnIterationCompleted(
	e *Engine[B],
	event *IterationCompletedEvent,
) {
	f(e, event)
}

// OnIterationCompleted wraps fn as an IterationCompletedHandler.
func OnIterationCompleted[B any](
	fn func(*Engine[B], *IterationCompletedEvent),
) IterationCompletedHandler[B] {
	return iterationCompletedFunc[B](fn)
}

type exceptionFunc[B any] func(*Engine[B], *ExceptionEvent)

func (f exceptionFunc[B]) OnException(e *Engine[B], event *ExceptionEvent) { f(e, event) }

// OnException wraps fn as an ExceptionHandler.
func OnException[B any](fn func(*Engine[B], *ExceptionEvent)) ExceptionHandler[B] {
	return exceptionFunc[B](fn)
}

type customFunc[B any] struct {
	name EventName // empty matches all names
	fn   func(*Engine[B], *CustomEvent)
}

func (f *customFunc[B]) OnCustomEvent(e *Engine[B], event *CustomEvent) {
	if f.name != "" && event.EventName != f.name {
		return
	}
	f.fn(e, event)
}

// OnEvent wraps fn as a CustomHandler that only receives custom events
// emitted under name.
func OnEvent[B any](name EventName, fn func(*Engine[B], *CustomEvent)) CustomHandler[B] {
	return &customFunc[B]{name: name, fn: fn}
}

// OnAnyEvent wraps fn as a CustomHandler that receives every custom event.
func OnAnyEvent[B any](fn func(*Engine[B], *CustomEvent)) CustomHandler[B] {
	return &customFunc[B]{fn: fn}
}
