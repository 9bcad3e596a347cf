package callbacks

import (
	"errors"
	"fmt"

	"github.com/emberml/ember"
)

// Mode selects the improvement direction for EarlyStopping.
type Mode string

const (
	// ModeMin treats smaller metric values as better (losses).
	ModeMin Mode = "min"

	// ModeMax treats larger metric values as better (accuracies).
	ModeMax Mode = "max"
)

// EarlyStoppingConfig holds configuration options for EarlyStopping.
type EarlyStoppingConfig struct {
	// Metric is the gauge key watched on the engine's metrics, e.g.
	// "val:loss". The gauge must be set before EpochCompleted fires,
	// typically by an epoch-completed handler that runs an evaluator.
	Metric string

	// Patience is the number of consecutive epochs without improvement
	// tolerated before the run is terminated. Must be at least 1.
	Patience int

	// MinDelta is the minimum change that counts as an improvement.
	MinDelta float64

	// Mode is the improvement direction. Defaults to ModeMin.
	Mode Mode
}

// EarlyStopping terminates the run when the watched metric stops improving
// for Patience consecutive epochs.
type EarlyStopping[B any] struct {
	cfg EarlyStoppingConfig

	best    float64
	hasBest bool
	bad     int
}

// NewEarlyStopping creates an EarlyStopping callback from the config.
func NewEarlyStopping[B any](cfg EarlyStoppingConfig) *EarlyStopping[B] {
	if cfg.Mode == "" {
		cfg.Mode = ModeMin
	}
	return &EarlyStopping[B]{cfg: cfg}
}

// Register validates the config and attaches the handler. Implements
// ember.Callback.
func (s *EarlyStopping[B]) Register(e *ember.Engine[B]) error {
	if s.cfg.Metric == "" {
		return errors.New("callbacks: EarlyStopping requires a Metric")
	}
	if s.cfg.Patience < 1 {
		return errors.New("callbacks: EarlyStopping Patience must be at least 1")
	}
	if s.cfg.Mode != ModeMin && s.cfg.Mode != ModeMax {
		return fmt.Errorf("callbacks: EarlyStopping Mode must be %q or %q, got %q",
			ModeMin, ModeMax, s.cfg.Mode)
	}
	e.Register(s)
	return nil
}

func (s *EarlyStopping[B]) OnEpochCompleted(e *ember.Engine[B], event *ember.EpochCompletedEvent) {
	value, ok := e.Metrics().Gauge(s.cfg.Metric)
	if !ok {
		e.Logger().Warn("early stopping metric not set, skipping epoch",
			"metric", s.cfg.Metric, "epoch", event.Epoch)
		return
	}

	if s.improved(value) {
		s.best = value
		s.hasBest = true
		s.bad = 0
		return
	}

	s.bad++
	if s.bad >= s.cfg.Patience {
		e.Logger().Info("early stopping triggered",
			"metric", s.cfg.Metric,
			"best", s.best,
			"current", value,
			"epochs_without_improvement", s.bad)
		e.Terminate()
	}
}

func (s *EarlyStopping[B]) improved(value float64) bool {
	if !s.hasBest {
		return true
	}
	if s.cfg.Mode == ModeMax {
		return value > s.best+s.cfg.MinDelta
	}
	return value < s.best-s.cfg.MinDelta
}

var _ ember.Callback[any] = (*EarlyStopping[any])(nil)
