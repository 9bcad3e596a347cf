package callbacks

import (
	"errors"
	"fmt"

	"github.com/emberml/ember"
	"github.com/emberml/ember/checkpoint"
)

// CheckpointerConfig holds configuration options for a Checkpointer.
type CheckpointerConfig struct {
	// Manager owns the checkpoint directory.
	Manager *checkpoint.Manager

	// Objects are the named stateful objects captured in each snapshot,
	// typically the model and its optimizer.
	Objects map[string]checkpoint.Saveable

	// SaveInterval is the number of epochs between saves. Defaults to 1.
	SaveInterval int64

	// Training enables saving and restores the engine counters alongside the
	// objects, so a resumed run continues from where it stopped. Evaluator
	// engines leave this false: the objects are restored but nothing is
	// saved and the counters stay at zero.
	Training bool
}

// Checkpointer restores the latest checkpoint when it registers and, on
// training engines, saves a new one as epochs complete.
//
// It must be the first callback passed to AddCallbacks: restoring engine
// counters after other callbacks have read them would leave those callbacks
// with a stale view of the run.
type Checkpointer[B any] struct {
	cfg       CheckpointerConfig
	lastSaved int64
}

// NewCheckpointer creates a Checkpointer from the config.
func NewCheckpointer[B any](cfg CheckpointerConfig) *Checkpointer[B] {
	if cfg.SaveInterval <= 0 {
		cfg.SaveInterval = 1
	}
	return &Checkpointer[B]{cfg: cfg}
}

// Register restores the latest checkpoint, if any, and attaches the save
// handlers. Implements ember.Callback.
func (c *Checkpointer[B]) Register(e *ember.Engine[B]) error {
	if c.cfg.Manager == nil {
		return errors.New("callbacks: Checkpointer requires a Manager")
	}
	if e.CallbackCount() != 0 {
		return errors.New("callbacks: Checkpointer must be the first callback registered")
	}

	snap, err := c.cfg.Manager.Latest()
	switch {
	case errors.Is(err, checkpoint.ErrNoCheckpoint):
		e.Logger().Info("no checkpoint found, starting fresh", "dir", c.cfg.Manager.Dir())
	case err != nil:
		return fmt.Errorf("load latest checkpoint: %w", err)
	default:
		if err := checkpoint.Restore(c.cfg.Objects, snap); err != nil {
			return err
		}
		c.lastSaved = snap.Epoch
		if c.cfg.Training {
			e.RestoreCounters(snap.Epoch, snap.Iteration)
		}
		e.Logger().Info("checkpoint restored",
			"dir", c.cfg.Manager.Dir(),
			"epoch", snap.Epoch,
			"iteration", snap.Iteration)
	}

	e.Register(c)
	return nil
}

// OnEpochCompleted saves a snapshot every SaveInterval epochs on training
// engines.
func (c *Checkpointer[B]) OnEpochCompleted(e *ember.Engine[B], event *ember.EpochCompletedEvent) {
	if !c.cfg.Training || event.Epoch%c.cfg.SaveInterval != 0 {
		return
	}
	c.save(e, event.Epoch, event.Iteration)
}

// OnCompleted saves a final snapshot when the run ends on an epoch the
// interval skipped, so a finished run is always resumable from its last
// epoch.
func (c *Checkpointer[B]) OnCompleted(e *ember.Engine[B], event *ember.CompletedEvent) {
	if !c.cfg.Training || event.Epoch <= c.lastSaved {
		return
	}
	c.save(e, event.Epoch, event.Iteration)
}

func (c *Checkpointer[B]) save(e *ember.Engine[B], epoch, iteration int64) {
	objects, err := checkpoint.Capture(c.cfg.Objects)
	if err != nil {
		e.Logger().Error("checkpoint save failed", "epoch", epoch, "error", err)
		return
	}
	err = c.cfg.Manager.Save(checkpoint.Snapshot{
		Epoch:     epoch,
		Iteration: iteration,
		Objects:   objects,
	})
	if err != nil {
		e.Logger().Error("checkpoint save failed", "epoch", epoch, "error", err)
		return
	}
	c.lastSaved = epoch
	e.Logger().Info("checkpoint saved", "epoch", epoch, "iteration", iteration)
}

var _ ember.Callback[any] = (*Checkpointer[any])(nil)
