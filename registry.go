package ember

// Registry manages event handlers and dispatches events to them.
//
// # Overview
//
// Registry is the central coordination point for handlers. It:
//   - Stores registered handlers in order
//   - Dispatches events to handlers that implement the relevant interface
//
// Handlers can implement any combination of handler interfaces - they only
// receive events for the interfaces they implement.
//
// # Creating and Using
//
// Most code registers handlers directly on the Engine, which owns a Registry.
// Build a Registry yourself when trainer and evaluator engines should share
// one set of handlers:
//
//	shared := ember.NewRegistry[[]float64]()
//	shared.Register(&MetricsHook{})
//
//	trainer := ember.New(trainStep).WithRegistry(shared)
//	evaluator := ember.New(evalStep).WithRegistry(shared)
//
// # Thread Safety
//
// Registry is NOT thread-safe. Register all handlers before calling
// Engine.Run. Dispatch should only be called by the Engine.
type Registry[B any] struct {
	handlers []any
}

// NewRegistry creates a new empty Registry.
func NewRegistry[B any]() *Registry[B] {
	return &Registry[B]{
		handlers: make([]any, 0),
	}
}

// Register adds a handler to the registry. The handler can implement any
// combination of handler interfaces (StartedHandler, EpochCompletedHandler,
// etc.).
//
// Handlers are called in the order they are registered.
func (r *Registry[B]) Register(handler any) *Registry[B] {
	r.handlers = append(r.handlers, handler)
	return r
}

// Remove removes a previously registered handler, comparing by identity.
// Returns false when the handler was not found.
func (r *Registry[B]) Remove(handler any) bool {
	for i, h := range r.handlers {
		if h == handler {
			r.handlers = append(r.handlers[:i], r.handlers[i+1:]...)
			return true
		}
	}
	return false
}

// Has reports whether the handler is registered, comparing by identity.
func (r *Registry[B]) Has(handler any) bool {
	for _, h := range r.handlers {
		if h == handler {
			return true
		}
	}
	return false
}

// Len returns the number of registered handlers.
func (r *Registry[B]) Len() int {
	return len(r.handlers)
}

// Clear removes all registered handlers.
func (r *Registry[B]) Clear() {
	r.handlers = make([]any, 0)
}

// HandlesException reports whether any registered handler implements
// ExceptionHandler. The Engine uses this to decide between dispatching an
// ExceptionEvent and returning the error from Run.
func (r *Registry[B]) HandlesException() bool {
	for _, h := range r.handlers {
		if _, ok := h.(ExceptionHandler[B]); ok {
			return true
		}
	}
	return false
}

// Dispatch sends an event to all matching handlers.
// This is called by the Engine after updating its state for the event.
func (r *Registry[B]) Dispatch(e *Engine[B], event Event) {
	switch ev := event.(type) {
	case *StartedEvent:
		for _, h := range r.handlers {
			if handler, ok := h.(StartedHandler[B]); ok {
				handler.OnStarted(e, ev)
			}
		}
	case *CompletedEvent:
		for _, h := range r.handlers {
			if handler, ok := h.(CompletedHandler[B]); ok {
				handler.OnCompleted(e, ev)
			}
		}
	case *EpochStartedEvent:
		for _, h := range r.handlers {
			if handler, ok := h.(EpochStartedHandler[B]); ok {
				handler.OnEpochStarted(e, ev)
			}
		}
	case *EpochCompletedEvent:
		for _, h := range r.handlers {
			if handler, ok := h.(EpochCompletedHandler[B]); ok {
				handler.OnEpochCompleted(e, ev)
			}
		}
	case *IterationStartedEvent:
		for _, h := range r.handlers {
			if handler, ok := h.(IterationStartedHandler[B]); ok {
				handler.OnIterationStarted(e, ev)
			}
		}
	case *IterationCompletedEvent:
		for _, h := range r.handlers {
			if handler, ok := h.(IterationCompletedHandler[B]); ok {
				handler.OnIterationCompleted(e, ev)
			}
		}
	case *ExceptionEvent:
		for _, h := range r.handlers {
			if handler, ok := h.(ExceptionHandler[B]); ok {
				handler.OnException(e, ev)
			}
		}
	case *CustomEvent:
		for _, h := range r.handlers {
			if handler, ok := h.(CustomHandler[B]); ok {
				handler.OnCustomEvent(e, ev)
			}
		}
	}
}
