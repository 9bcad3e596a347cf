package callbacks

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/emberml/ember"
)

// EventLoggerConfig holds configuration options for an EventLogger.
type EventLoggerConfig struct {
	// Out is where events are written. Defaults to os.Stdout.
	Out io.Writer

	// Clock supplies event timestamps. Defaults to the engine's clock.
	Clock ember.Clock
}

// EventLogger subscribes to every event and dumps each one as YAML with a
// timestamped header. Nothing is truncated: it is a debugging callback, not a
// progress display. For everyday runs use ProgressLogger instead.
type EventLogger[B any] struct {
	out   io.Writer
	clock ember.Clock
}

// NewEventLogger creates an EventLogger from the config.
func NewEventLogger[B any](cfg EventLoggerConfig) *EventLogger[B] {
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}
	return &EventLogger[B]{out: out, clock: cfg.Clock}
}

// Register implements ember.Callback.
func (l *EventLogger[B]) Register(e *ember.Engine[B]) error {
	if l.clock == nil {
		l.clock = e.Clock()
	}
	e.Register(l)
	return nil
}

// logEvent writes an event header with timestamp.
func (l *EventLogger[B]) logEvent(name ember.EventName) {
	timestamp := l.clock.Now().Format("2006-01-02 15:04:05.000")
	fmt.Fprintf(l.out, "\n>>> [%s]: %s\n", name, timestamp)
}

func (l *EventLogger[B]) logYAML(v any) {
	data, err := yaml.Marshal(v)
	if err != nil {
		fmt.Fprintf(l.out, "(failed to marshal: %v)\n", err)
		return
	}
	fmt.Fprint(l.out, string(data))
}

func (l *EventLogger[B]) OnStarted(e *ember.Engine[B], event *ember.StartedEvent) {
	l.logEvent(event.Name())
	l.logYAML(map[string]any{
		"epoch":      event.Epoch,
		"max_epochs": event.MaxEpochs,
	})
}

func (l *EventLogger[B]) OnCompleted(e *ember.Engine[B], event *ember.CompletedEvent) {
	l.logEvent(event.Name())
	l.logYAML(map[string]any{
		"epoch":      event.Epoch,
		"iteration":  event.Iteration,
		"terminated": event.Terminated,
		"duration":   event.Duration.String(),
	})
	l.logYAML(map[string]any{
		"counters": e.Metrics().Counters(),
		"gauges":   e.Metrics().Gauges(),
	})
}

func (l *EventLogger[B]) OnEpochStarted(e *ember.Engine[B], event *ember.EpochStartedEvent) {
	l.logEvent(event.Name())
	l.logYAML(map[string]any{"epoch": event.Epoch})
}

func (l *EventLogger[B]) OnEpochCompleted(e *ember.Engine[B], event *ember.EpochCompletedEvent) {
	l.logEvent(event.Name())
	l.logYAML(map[string]any{
		"epoch":     event.Epoch,
		"iteration": event.Iteration,
		"duration":  event.Duration.String(),
	})
}

func (l *EventLogger[B]) OnIterationStarted(
	e *ember.Engine[B],
	event *ember.IterationStartedEvent,
) {
	l.logEvent(event.Name())
	l.logYAML(map[string]any{
		"epoch":     event.Epoch,
		"iteration": event.Iteration,
	})
}

func (l *EventLogger[B]) OnIterationCompleted(
	e *ember.Engine[B],
	event *ember.IterationCompletedEvent,
) {
	l.logEvent(event.Name())
	payload := map[string]any{
		"epoch":     event.Epoch,
		"iteration": event.Iteration,
		"duration":  event.Duration.String(),
	}
	if event.Output != nil {
		payload["output"] = event.Output
	}
	l.logYAML(payload)
}

func (l *EventLogger[B]) OnException(e *ember.Engine[B], event *ember.ExceptionEvent) {
	l.logEvent(event.Name())
	l.logYAML(map[string]any{
		"epoch":     event.Epoch,
		"iteration": event.Iteration,
		"error":     event.Err.Error(),
	})
}

func (l *EventLogger[B]) OnCustomEvent(e *ember.Engine[B], event *ember.CustomEvent) {
	l.logEvent(event.Name())
	payload := map[string]any{
		"event":     string(event.EventName),
		"epoch":     event.Epoch,
		"iteration": event.Iteration,
	}
	if event.Payload != nil {
		payload["payload"] = event.Payload
	}
	l.logYAML(payload)
}

// Compile-time checks that EventLogger implements all handler interfaces.
var (
	_ ember.Callback[any]                  = (*EventLogger[any])(nil)
	_ ember.StartedHandler[any]            = (*EventLogger[any])(nil)
	_ ember.CompletedHandler[any]          = (*EventLogger[any])(nil)
	_ ember.EpochStartedHandler[any]       = (*EventLogger[any])(nil)
	_ ember.EpochCompletedHandler[any]     = (*EventLogger[any])(nil)
	_ ember.IterationStartedHandler[any]   = (*EventLogger[any])(nil)
	_ ember.IterationCompletedHandler[any] = (*EventLogger[any])(nil)
	_ ember.ExceptionHandler[any]          = (*EventLogger[any])(nil)
	_ ember.CustomHandler[any]             = (*EventLogger[any])(nil)
)
