// Package callbacks provides reusable engine callbacks for common training
// concerns.
//
// Each callback bundles one concern's handlers behind ember.Callback and is
// attached with Engine.AddCallbacks:
//
//	ckpt, _ := checkpoint.NewManager(checkpoint.Config{Dir: "ckpt", MaxToKeep: 3})
//	err := trainer.AddCallbacks(
//	    callbacks.NewCheckpointer[Batch](callbacks.CheckpointerConfig{
//	        Manager:  ckpt,
//	        Objects:  map[string]checkpoint.Saveable{"model": model},
//	        Training: true,
//	    }),
//	    callbacks.NewProgressLogger[Batch](callbacks.ProgressLoggerConfig{}),
//	    callbacks.NewEarlyStopping[Batch](callbacks.EarlyStoppingConfig{
//	        Metric:   "val:loss",
//	        Patience: 3,
//	    }),
//	)
//
// The provided callbacks:
//
//   - Checkpointer: restores the latest checkpoint on registration and saves
//     new ones as epochs complete
//   - ArgsGuard: persists run parameters and refuses to silently run with
//     different ones
//   - ProgressLogger: plain-text progress lines
//   - EventLogger: verbose YAML dump of every event, for debugging
//   - EarlyStopping: terminates the run when a metric stops improving
//   - TerminateOnNaN: terminates the run when the process output degenerates
//   - TimeLimit: terminates the run after a wall-clock budget
//   - MetricsExporter: mirrors engine activity into Prometheus collectors
//   - HistoryRecorder: records outputs and metric gauges into a history.Store
package callbacks
