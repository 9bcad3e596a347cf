package ember

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Sentinel errors returned by Engine methods.
var (
	// ErrEngineRunning is returned by Run when the engine is already running.
	ErrEngineRunning = errors.New("ember: engine is already running")

	// ErrNilDataset is returned by Run when no dataset is given.
	ErrNilDataset = errors.New("ember: dataset is nil")

	// ErrInvalidConfig is returned by Run when the RunConfig is invalid.
	ErrInvalidConfig = errors.New("ember: invalid run config")

	// ErrUnknownEvent is returned by Emit for event names that were not
	// declared with RegisterEvents.
	ErrUnknownEvent = errors.New("ember: event name not registered")
)

// Process is the user-supplied function the engine runs on every batch. For a
// trainer it performs the forward and backward pass; for an evaluator just the
// forward pass. The returned output is stored in State and carried on the
// IterationCompletedEvent.
//
// Returning heavy per-batch outputs for handlers to pick apart is usually a
// mistake when batches live on an accelerator; record summary scalars on
// engine.Metrics() inside the process function instead and return the loss.
type Process[B any] func(ctx context.Context, e *Engine[B], batch B) (any, error)

// RunConfig holds configuration options for a single Run.
type RunConfig struct {
	// MaxEpochs is the epoch count the run stops at. The run ends once the
	// epoch counter reaches MaxEpochs, so resuming a partially trained
	// engine with the same MaxEpochs runs only the remaining epochs.
	// Must be at least 1.
	MaxEpochs int

	// StartEpoch overrides the epoch counter before the run begins.
	// Leave at -1 to keep the engine's current counter (the default, and the
	// right choice when a Checkpointer restores counters).
	StartEpoch int64
}

// DefaultRunConfig returns a config that runs a single epoch from the
// engine's current position.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		MaxEpochs:  1,
		StartEpoch: -1,
	}
}

// Engine runs a Process function over each batch of a Dataset, firing
// lifecycle events as it goes.
//
// The Engine is responsible for:
//   - Iterating the dataset for the configured number of epochs
//   - Maintaining the epoch and iteration counters in State
//   - Dispatching lifecycle events to registered handlers
//   - Honoring Terminate and TerminateEpoch signals and context cancellation
//
// Handlers observe the run through the Registry; callbacks bundle related
// handlers and attach them in one AddCallbacks call. Models typically build
// their engines in CreateTrainer and CreateEvaluator rather than calling New
// directly in scripts.
type Engine[B any] struct {
	process  Process[B]
	registry *Registry[B]
	state    *State
	metrics  *Metrics
	logger   *slog.Logger
	clock    Clock

	customEvents  map[EventName]struct{}
	callbackCount int

	mu             sync.Mutex
	running        bool
	terminate      bool
	terminateEpoch bool
	runCtx         context.Context
}

// New creates an Engine that runs process on every batch.
// Panics if process is nil: an engine cannot run without a processing
// function.
func New[B any](process Process[B]) *Engine[B] {
	if process == nil {
		panic("ember: engine must be given a process function in order to run")
	}
	return &Engine[B]{
		process:      process,
		registry:     NewRegistry[B](),
		state:        NewState(),
		metrics:      NewMetrics(),
		logger:       slog.New(slog.DiscardHandler),
		clock:        NewSystemClock(),
		customEvents: make(map[EventName]struct{}),
	}
}

// WithLogger sets the engine's structured logger. The default logger
// discards everything. Returns the engine for chaining.
func (e *Engine[B]) WithLogger(logger *slog.Logger) *Engine[B] {
	e.logger = logger
	return e
}

// WithClock sets the engine's time source. Returns the engine for chaining.
func (e *Engine[B]) WithClock(clock Clock) *Engine[B] {
	e.clock = clock
	return e
}

// WithRegistry replaces the engine's handler registry with the provided one.
// Use this when trainer and evaluator engines should share handlers.
// Returns the engine for chaining.
func (e *Engine[B]) WithRegistry(r *Registry[B]) *Engine[B] {
	e.registry = r
	return e
}

// Registry returns the engine's handler registry.
func (e *Engine[B]) Registry() *Registry[B] {
	return e.registry
}

// Register adds a handler to the engine's registry. The handler can
// implement any combination of handler interfaces. Returns the engine for
// chaining.
func (e *Engine[B]) Register(handler any) *Engine[B] {
	e.registry.Register(handler)
	return e
}

// Remove removes a previously registered handler, comparing by identity.
func (e *Engine[B]) Remove(handler any) bool {
	return e.registry.Remove(handler)
}

// Has reports whether the handler is registered.
func (e *Engine[B]) Has(handler any) bool {
	return e.registry.Has(handler)
}

// AddCallbacks registers each callback's handlers with the engine, in order.
// A callback that fails to register aborts the remaining ones.
func (e *Engine[B]) AddCallbacks(callbacks ...Callback[B]) error {
	for _, cb := range callbacks {
		if err := cb.Register(e); err != nil {
			return fmt.Errorf("register callback: %w", err)
		}
		e.callbackCount++
	}
	return nil
}

// CallbackCount returns the number of callbacks registered so far. Callbacks
// that must run first (the Checkpointer restores engine counters when it
// registers) check this in Register.
func (e *Engine[B]) CallbackCount() int {
	return e.callbackCount
}

// State returns the engine's run state.
func (e *Engine[B]) State() *State {
	return e.state
}

// Metrics returns the engine's metrics.
func (e *Engine[B]) Metrics() *Metrics {
	return e.metrics
}

// Logger returns the engine's structured logger.
func (e *Engine[B]) Logger() *slog.Logger {
	return e.logger
}

// Clock returns the engine's time source.
func (e *Engine[B]) Clock() Clock {
	return e.clock
}

// Context returns the context of the run in progress, or context.Background
// when the engine is idle. Handlers use it for blocking side effects such as
// database writes.
func (e *Engine[B]) Context() context.Context {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.runCtx != nil {
		return e.runCtx
	}
	return context.Background()
}

// RestoreCounters sets the epoch and iteration counters, typically from a
// checkpoint. Call it before Run; restoring mid-run confuses the epoch loop.
func (e *Engine[B]) RestoreCounters(epoch, iteration int64) {
	e.state.restore(epoch, iteration)
}

// RegisterEvents declares custom event names so they can be emitted with
// Emit. Registering an event lets user code fire it at any point during the
// run, which opens the loop to domain-specific lifecycle points (e.g.
// "myapp:validation:done" fired from an epoch-completed handler).
func (e *Engine[B]) RegisterEvents(names ...EventName) {
	for _, name := range names {
		e.customEvents[name] = struct{}{}
	}
}

// Emit fires a custom event to all CustomHandler registrations. The name
// must have been declared with RegisterEvents; built-in lifecycle events are
// fired by the engine itself and cannot be emitted here.
func (e *Engine[B]) Emit(name EventName, payload any) error {
	if _, ok := e.customEvents[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEvent, name)
	}
	e.dispatch(&CustomEvent{
		EventName: name,
		Epoch:     e.state.Epoch(),
		Iteration: e.state.Iteration(),
		Payload:   payload,
	})
	return nil
}

// Terminate signals the engine to stop the run after the current iteration
// finishes. The CompletedEvent still fires.
func (e *Engine[B]) Terminate() {
	e.mu.Lock()
	e.terminate = true
	e.mu.Unlock()
	e.logger.Info("terminate signaled, engine will stop after current iteration")
}

// TerminateEpoch signals the engine to end the current epoch after the
// current iteration finishes. The run continues with the next epoch.
func (e *Engine[B]) TerminateEpoch() {
	e.mu.Lock()
	e.terminateEpoch = true
	e.mu.Unlock()
	e.logger.Info("terminate epoch signaled, current epoch will stop after current iteration")
}

// Terminating reports whether Terminate has been signaled for the run in
// progress.
func (e *Engine[B]) Terminating() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.terminate
}

// Run executes the process function over the dataset.
//
// The run flow:
//  1. Fire StartedEvent
//  2. For each epoch until MaxEpochs or Terminate: fire EpochStartedEvent,
//     iterate the dataset (IterationStartedEvent, process,
//     IterationCompletedEvent per batch), fire EpochCompletedEvent
//  3. Fire CompletedEvent
//
// Errors from the process function or the dataset are dispatched as
// ExceptionEvents when exception handlers are registered: the epoch ends
// early and the run continues (the handler decides whether to Terminate).
// With no exception handler, Run aborts and returns the error without firing
// CompletedEvent. Context cancellation always aborts the run and returns the
// context's error.
//
// Run is not reentrant; a second concurrent call returns ErrEngineRunning.
func (e *Engine[B]) Run(ctx context.Context, dataset Dataset[B], cfg RunConfig) error {
	if dataset == nil {
		return ErrNilDataset
	}
	if cfg.MaxEpochs < 1 {
		return fmt.Errorf("%w: MaxEpochs must be at least 1, got %d", ErrInvalidConfig, cfg.MaxEpochs)
	}

	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return ErrEngineRunning
	}
	e.running = true
	e.terminate = false
	e.terminateEpoch = false
	e.runCtx = ctx
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.runCtx = nil
		e.mu.Unlock()
	}()

	if cfg.StartEpoch >= 0 {
		e.state.restore(cfg.StartEpoch, e.state.Iteration())
	}

	runStart := e.clock.Now()
	e.logger.Info("engine run starting",
		"max_epochs", cfg.MaxEpochs,
		"epoch", e.state.Epoch(),
		"iteration", e.state.Iteration())

	e.dispatch(&StartedEvent{Epoch: e.state.Epoch(), MaxEpochs: cfg.MaxEpochs})

	terminated := false
	for e.state.Epoch() < int64(cfg.MaxEpochs) {
		if err := ctx.Err(); err != nil {
			e.logger.Error("engine run aborted", "error", err)
			return err
		}
		if e.Terminating() {
			terminated = true
			break
		}

		epoch := e.state.incrEpoch()
		epochStart := e.clock.Now()
		e.dispatch(&EpochStartedEvent{Epoch: epoch})

		if err := e.runEpoch(ctx, dataset); err != nil {
			e.logger.Error("engine run aborted", "epoch", epoch, "error", err)
			return err
		}

		if e.Terminating() {
			terminated = true
			break
		}

		e.dispatch(&EpochCompletedEvent{
			Epoch:     epoch,
			Iteration: e.state.Iteration(),
			Duration:  e.clock.Now().Sub(epochStart),
		})
	}

	e.dispatch(&CompletedEvent{
		Epoch:      e.state.Epoch(),
		Iteration:  e.state.Iteration(),
		Terminated: terminated,
		Duration:   e.clock.Now().Sub(runStart),
	})
	e.logger.Info("engine run completed",
		"epoch", e.state.Epoch(),
		"iteration", e.state.Iteration(),
		"terminated", terminated)
	return nil
}

// runEpoch runs a single pass over the dataset. A nil return means the epoch
// finished (normally, via TerminateEpoch, or with a handled exception); a
// non-nil return aborts the run.
func (e *Engine[B]) runEpoch(ctx context.Context, dataset Dataset[B]) error {
	it, err := dataset.Iterate(ctx)
	if err != nil {
		return e.raise(fmt.Errorf("iterate dataset: %w", err))
	}
	defer it.Close()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch, err := it.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return e.raise(fmt.Errorf("next batch: %w", err))
		}

		iteration := e.state.incrIteration()
		epoch := e.state.Epoch()
		e.dispatch(&IterationStartedEvent{Epoch: epoch, Iteration: iteration})

		stepStart := e.clock.Now()
		output, err := e.process(ctx, e, batch)
		if err != nil {
			return e.raise(fmt.Errorf("process iteration %d: %w", iteration, err))
		}
		e.state.setOutput(output)

		e.dispatch(&IterationCompletedEvent{
			Epoch:     epoch,
			Iteration: iteration,
			Output:    output,
			Duration:  e.clock.Now().Sub(stepStart),
		})

		if e.takeEpochBreak() {
			return nil
		}
	}
}

// raise routes an error to exception handlers when any are registered,
// mirroring how the loop would otherwise abort: with a handler the error is
// considered handled and the epoch simply ends, without one the error
// propagates out of Run.
func (e *Engine[B]) raise(err error) error {
	if !e.registry.HandlesException() {
		return err
	}
	e.logger.Error("current epoch is terminating due to handled exception", "error", err)
	e.dispatch(&ExceptionEvent{
		Epoch:     e.state.Epoch(),
		Iteration: e.state.Iteration(),
		Err:       err,
	})
	return nil
}

// takeEpochBreak reports whether the iteration loop should stop, consuming a
// pending TerminateEpoch signal.
func (e *Engine[B]) takeEpochBreak() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	stop := e.terminate || e.terminateEpoch
	e.terminateEpoch = false
	return stop
}

// dispatch fires an event to the registry.
func (e *Engine[B]) dispatch(event Event) {
	e.logger.Debug("firing handlers", "event", string(event.Name()))
	e.registry.Dispatch(e, event)
}
