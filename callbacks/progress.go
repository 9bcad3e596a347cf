package callbacks

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/emberml/ember"
)

// ProgressLoggerConfig holds configuration options for a ProgressLogger.
type ProgressLoggerConfig struct {
	// Out is where progress lines are written. Defaults to os.Stdout.
	Out io.Writer

	// LogInterval is the number of iterations between iteration lines.
	// Defaults to 10. Epoch lines are always written.
	LogInterval int64
}

// ProgressLogger writes plain-text progress lines as the run advances. It is
// the everyday companion callback for interactive runs; EventLogger is the
// verbose variant for debugging.
type ProgressLogger[B any] struct {
	cfg       ProgressLoggerConfig
	maxEpochs int
}

// NewProgressLogger creates a ProgressLogger from the config.
func NewProgressLogger[B any](cfg ProgressLoggerConfig) *ProgressLogger[B] {
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.LogInterval <= 0 {
		cfg.LogInterval = 10
	}
	return &ProgressLogger[B]{cfg: cfg}
}

// Register implements ember.Callback.
func (p *ProgressLogger[B]) Register(e *ember.Engine[B]) error {
	e.Register(p)
	return nil
}

func (p *ProgressLogger[B]) OnStarted(e *ember.Engine[B], event *ember.StartedEvent) {
	p.maxEpochs = event.MaxEpochs
	fmt.Fprintf(p.cfg.Out, "run started (max epochs: %d)\n", event.MaxEpochs)
}

func (p *ProgressLogger[B]) OnEpochStarted(e *ember.Engine[B], event *ember.EpochStartedEvent) {
	fmt.Fprintf(p.cfg.Out, "epoch %d/%d\n", event.Epoch, p.maxEpochs)
}

func (p *ProgressLogger[B]) OnIterationCompleted(
	e *ember.Engine[B],
	event *ember.IterationCompletedEvent,
) {
	if event.Iteration%p.cfg.LogInterval != 0 {
		return
	}
	if loss, ok := asFloat(event.Output); ok {
		fmt.Fprintf(p.cfg.Out, "  iter %d: output=%.6f\n", event.Iteration, loss)
		return
	}
	fmt.Fprintf(p.cfg.Out, "  iter %d\n", event.Iteration)
}

func (p *ProgressLogger[B]) OnEpochCompleted(e *ember.Engine[B], event *ember.EpochCompletedEvent) {
	fmt.Fprintf(p.cfg.Out, "epoch %d done in %s", event.Epoch, event.Duration)

	gauges := e.Metrics().Gauges()
	keys := make([]string, 0, len(gauges))
	for key := range gauges {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(p.cfg.Out, " %s=%.6f", key, gauges[key])
	}
	fmt.Fprintln(p.cfg.Out)
}

func (p *ProgressLogger[B]) OnCompleted(e *ember.Engine[B], event *ember.CompletedEvent) {
	if event.Terminated {
		fmt.Fprintf(p.cfg.Out, "run terminated at epoch %d, iteration %d (%s)\n",
			event.Epoch, event.Iteration, event.Duration)
		return
	}
	fmt.Fprintf(p.cfg.Out, "run completed: %d epochs, %d iterations (%s)\n",
		event.Epoch, event.Iteration, event.Duration)
}

// asFloat extracts a scalar from a process output or metric value.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}

var _ ember.Callback[any] = (*ProgressLogger[any])(nil)
