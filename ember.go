// Package ember provides an event-driven training and evaluation loop for
// machine learning in Go.
//
// The library separates loop orchestration from model and dataset logic: an
// Engine iterates a Dataset for a number of epochs, invoking a user-supplied
// process function per batch and firing lifecycle events (run started, epoch
// started, iteration completed, ...) that registered handlers observe. Common
// side effects - checkpointing, progress reporting, early stopping, metric
// history - ship as callbacks that bundle the relevant handlers.
//
// # Quick Start: Training a Model
//
//	package main
//
//	import (
//	    "context"
//	    "os"
//
//	    "github.com/emberml/ember"
//	    "github.com/emberml/ember/callbacks"
//	    "github.com/emberml/ember/checkpoint"
//	    "github.com/emberml/ember/datasets"
//	)
//
//	func main() {
//	    // 1. Build a dataset: batches of examples, reshuffled every epoch
//	    train := datasets.NewMemory(examples, datasets.MemoryConfig{
//	        BatchSize: 128,
//	        Shuffle:   true,
//	    })
//
//	    // 2. The model builds the engine that runs its training step
//	    model := NewMLP(cfg)
//	    trainer := model.CreateTrainer()
//
//	    // 3. Attach callbacks for the boilerplate around the loop
//	    mgr, _ := checkpoint.NewManager(checkpoint.Config{Dir: "ckpt", MaxToKeep: 10})
//	    err := trainer.AddCallbacks(
//	        callbacks.NewCheckpointer[[]datasets.Example](callbacks.CheckpointerConfig{
//	            Manager:  mgr,
//	            Objects:  model.CheckpointObjects(),
//	            Training: true,
//	        }),
//	        callbacks.NewProgressLogger[[]datasets.Example](callbacks.ProgressLoggerConfig{
//	            Out:    os.Stderr,
//	            Epochs: 10,
//	        }),
//	    )
//	    if err != nil {
//	        panic(err)
//	    }
//
//	    // 4. Ad-hoc handlers hook single events
//	    trainer.Register(ember.OnEpochCompleted(func(
//	        e *ember.Engine[[]datasets.Example],
//	        ev *ember.EpochCompletedEvent,
//	    ) {
//	        // run an evaluator, log metrics, ...
//	    }))
//
//	    // 5. Run
//	    cfg := ember.RunConfig{MaxEpochs: 10, StartEpoch: -1}
//	    if err := trainer.Run(context.Background(), train, cfg); err != nil {
//	        panic(err)
//	    }
//	}
//
// # Architecture
//
// The core pieces:
//
//   - Engine: the loop. Fires typed events, owns State and Metrics.
//   - Event / handler interfaces: one interface per lifecycle point; a
//     handler struct implements the ones it cares about and receives nothing
//     else. Func adapters (OnStarted, OnEpochCompleted, ...) cover the
//     single-event case.
//   - Registry: ordered handler storage and type-switched dispatch.
//   - Callback: a named bundle of handlers registered in one call.
//   - Model / Dataset: the user-side interfaces; see the datasets,
//     checkpoint, history, and params subpackages for the batteries.
//
// # Event Ordering
//
// For a 2-epoch run over a 2-batch dataset the engine fires:
//
//	ember:run:started
//	ember:epoch:started        epoch=1
//	ember:iteration:started    iter=1
//	ember:iteration:completed  iter=1
//	ember:iteration:started    iter=2
//	ember:iteration:completed  iter=2
//	ember:epoch:completed      epoch=1
//	ember:epoch:started        epoch=2
//	ember:iteration:started    iter=3
//	ember:iteration:completed  iter=3
//	ember:iteration:started    iter=4
//	ember:iteration:completed  iter=4
//	ember:epoch:completed      epoch=2
//	ember:run:completed
//
// The iteration counter is global: it never resets between epochs, so it can
// serve directly as the step axis for metric history.
package ember
