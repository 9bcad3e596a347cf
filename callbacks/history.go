package callbacks

import (
	"errors"

	"github.com/emberml/ember"
	"github.com/emberml/ember/history"
)

// HistoryRecorderConfig holds configuration options for a HistoryRecorder.
type HistoryRecorderConfig struct {
	// Store is the history database the scalars are written to.
	Store *history.Store

	// RunID is the run the scalars belong to, from Store.CreateRun.
	RunID string

	// OutputTag is the tag scalar process outputs are recorded under.
	// Defaults to "train:output".
	OutputTag string

	// LogInterval is the number of iterations between output samples.
	// Defaults to 10. Gauges are recorded every epoch regardless.
	LogInterval int64
}

// HistoryRecorder records the run's scalars into a history.Store: sampled
// process outputs per iteration, and every metric gauge per epoch. Write
// failures are logged and do not interrupt the run.
type HistoryRecorder[B any] struct {
	cfg HistoryRecorderConfig
}

// NewHistoryRecorder creates a HistoryRecorder from the config.
func NewHistoryRecorder[B any](cfg HistoryRecorderConfig) *HistoryRecorder[B] {
	if cfg.OutputTag == "" {
		cfg.OutputTag = "train:output"
	}
	if cfg.LogInterval <= 0 {
		cfg.LogInterval = 10
	}
	return &HistoryRecorder[B]{cfg: cfg}
}

// Register validates the config and attaches the handlers. Implements
// ember.Callback.
func (h *HistoryRecorder[B]) Register(e *ember.Engine[B]) error {
	if h.cfg.Store == nil {
		return errors.New("callbacks: HistoryRecorder requires a Store")
	}
	if h.cfg.RunID == "" {
		return errors.New("callbacks: HistoryRecorder requires a RunID")
	}
	e.Register(h)
	return nil
}

func (h *HistoryRecorder[B]) OnIterationCompleted(
	e *ember.Engine[B],
	event *ember.IterationCompletedEvent,
) {
	if event.Iteration%h.cfg.LogInterval != 0 {
		return
	}
	value, ok := asFloat(event.Output)
	if !ok {
		return
	}
	err := h.cfg.Store.RecordScalar(
		e.Context(), h.cfg.RunID, h.cfg.OutputTag, event.Iteration, event.Epoch, value)
	if err != nil {
		e.Logger().Error("history write failed",
			"tag", h.cfg.OutputTag, "iteration", event.Iteration, "error", err)
	}
}

func (h *HistoryRecorder[B]) OnEpochCompleted(
	e *ember.Engine[B],
	event *ember.EpochCompletedEvent,
) {
	for tag, value := range e.Metrics().Gauges() {
		err := h.cfg.Store.RecordScalar(
			e.Context(), h.cfg.RunID, tag, event.Iteration, event.Epoch, value)
		if err != nil {
			e.Logger().Error("history write failed",
				"tag", tag, "epoch", event.Epoch, "error", err)
		}
	}
}

var _ ember.Callback[any] = (*HistoryRecorder[any])(nil)
