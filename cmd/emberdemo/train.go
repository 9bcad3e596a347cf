package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/emberml/ember"
	"github.com/emberml/ember/callbacks"
	"github.com/emberml/ember/checkpoint"
	"github.com/emberml/ember/datasets"
	"github.com/emberml/ember/history"
	"github.com/emberml/ember/internal/mlp"
	"github.com/emberml/ember/params"
)

// trainOptions holds flags for the train command.
type trainOptions struct {
	*rootOptions

	Epochs    int
	BatchSize int
	Examples  int
	Noise     float64
	Seed      int64
	Patience  int
	TimeLimit time.Duration
}

func newTrainCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &trainOptions{rootOptions: rootOpts}
	model := mlp.New(mlp.Config{})

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the classifier, resuming from the run directory",
		Long: `Train the MLP on a generated two-moons dataset.

The run directory accumulates everything the run produces: checkpoints (the
latest one is restored on start, so rerunning the command resumes training),
the persisted parameter file, and the metrics history database. Changing a
parameter against a previous run in the same directory asks for confirmation
first.

Example:
  emberdemo train --run-dir ./moons --epochs 50 --lr 0.2
  emberdemo train --run-dir ./moons --epochs 100   # resume for 50 more`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrain(opts, model)
		},
	}

	fs := cmd.Flags()
	fs.IntVar(&opts.Epochs, "epochs", 30, "total epochs to train to")
	fs.IntVar(&opts.BatchSize, "batch-size", 32, "examples per batch")
	fs.IntVar(&opts.Examples, "examples", 2000, "dataset size to generate")
	fs.Float64Var(&opts.Noise, "noise", 0.1, "gaussian noise added to the dataset")
	fs.Int64Var(&opts.Seed, "seed", 42, "seed for data generation and shuffling")
	fs.IntVar(&opts.Patience, "patience", 5, "epochs without val:loss improvement before stopping")
	fs.DurationVar(&opts.TimeLimit, "time-limit", 0, "wall-clock budget for the run (0 = none)")
	model.RegisterFlags(fs)

	return cmd
}

// trainSpec describes every parameter the run persists, model and data
// alike. ArgsGuard validates the values against it before training starts.
func trainSpec(model *mlp.MLP) *params.Spec {
	return model.Spec().Merge(params.New(
		params.Int("epochs", 30, "total epochs to train to").Min(1),
		params.Int("batch-size", 32, "examples per batch").Min(1),
		params.Int("examples", 2000, "dataset size to generate").Min(2),
		params.Float("noise", 0.1, "gaussian noise added to the dataset").Min(0),
		params.Int("seed", 42, "seed for data generation and shuffling"),
	))
}

func runTrain(opts *trainOptions, model *mlp.MLP) error {
	if err := os.MkdirAll(opts.RunDir, 0o755); err != nil {
		return err
	}
	logger := newLogger(opts.Verbose)

	// Generated data, split 80/20 into train and validation.
	examples, meta := datasets.Moons(datasets.MoonsConfig{
		Examples: opts.Examples,
		Noise:    opts.Noise,
		Seed:     opts.Seed,
	})
	split := opts.Examples * 4 / 5
	train := datasets.NewPrefetch[[]datasets.Example](
		datasets.NewMemory(examples[:split], datasets.MemoryConfig{
			BatchSize: opts.BatchSize,
			Shuffle:   true,
			Seed:      opts.Seed,
		}), 2)
	val := datasets.NewMemory(examples[split:], datasets.MemoryConfig{
		BatchSize: opts.BatchSize,
	})

	if err := model.ApplyMetadata(meta); err != nil {
		return err
	}

	manager, err := checkpoint.NewManager(checkpoint.Config{
		Dir:       filepath.Join(opts.RunDir, "ckpt"),
		MaxToKeep: 3,
	})
	if err != nil {
		return err
	}

	store, err := history.Open(filepath.Join(opts.RunDir, "history.db"))
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	values, err := trainValues(opts, model)
	if err != nil {
		return err
	}
	runID, err := store.CreateRun(ctx, "train", values)
	if err != nil {
		return err
	}

	trainer := model.CreateTrainer().WithLogger(logger)

	// Validation runs after every epoch on a fresh evaluator; its gauges feed
	// early stopping and the history under val: keys.
	trainer.Register(ember.OnEpochCompleted(
		func(e *ember.Engine[[]datasets.Example], event *ember.EpochCompletedEvent) {
			evaluator := model.CreateEvaluator().WithLogger(logger)
			if err := evaluator.Run(e.Context(), val, ember.DefaultRunConfig()); err != nil {
				logger.Error("validation failed", "epoch", event.Epoch, "error", err)
				return
			}
			if loss, ok := evaluator.Metrics().Gauge("eval:loss"); ok {
				e.Metrics().SetGauge("val:loss", loss)
			}
			if acc, ok := evaluator.Metrics().Gauge("eval:accuracy"); ok {
				e.Metrics().SetGauge("val:accuracy", acc)
			}
		}))

	objects := map[string]checkpoint.Saveable{}
	for name, obj := range model.CheckpointObjects() {
		if s, ok := obj.(checkpoint.Saveable); ok {
			objects[name] = s
		}
	}

	cbs := []ember.Callback[[]datasets.Example]{
		callbacks.NewCheckpointer[[]datasets.Example](callbacks.CheckpointerConfig{
			Manager:  manager,
			Objects:  objects,
			Training: true,
		}),
		callbacks.NewArgsGuard[[]datasets.Example](callbacks.ArgsGuardConfig{
			Path:   filepath.Join(opts.RunDir, "args.json"),
			Spec:   trainSpec(model),
			Values: values,
		}),
		callbacks.NewProgressLogger[[]datasets.Example](callbacks.ProgressLoggerConfig{}),
		callbacks.NewTerminateOnNaN[[]datasets.Example](),
		callbacks.NewEarlyStopping[[]datasets.Example](callbacks.EarlyStoppingConfig{
			Metric:   "val:loss",
			Patience: opts.Patience,
		}),
		callbacks.NewHistoryRecorder[[]datasets.Example](callbacks.HistoryRecorderConfig{
			Store: store,
			RunID: runID,
		}),
	}
	if opts.TimeLimit > 0 {
		cbs = append(cbs, callbacks.NewTimeLimit[[]datasets.Example](callbacks.TimeLimitConfig{
			Limit: opts.TimeLimit,
		}))
	}
	if opts.Verbose {
		cbs = append(cbs, callbacks.NewEventLogger[[]datasets.Example](callbacks.EventLoggerConfig{
			Out: os.Stderr,
		}))
	}
	if err := trainer.AddCallbacks(cbs...); err != nil {
		return err
	}

	return trainer.Run(ctx, train, ember.RunConfig{
		MaxEpochs:  opts.Epochs,
		StartEpoch: -1,
	})
}

func trainValues(opts *trainOptions, model *mlp.MLP) (map[string]any, error) {
	spec := trainSpec(model)
	values := map[string]any{
		"epochs":     opts.Epochs,
		"batch-size": opts.BatchSize,
		"examples":   opts.Examples,
		"noise":      opts.Noise,
		"seed":       int(opts.Seed),
	}
	for name, v := range model.Values() {
		values[name] = v
	}
	schema, err := spec.Schema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(values); err != nil {
		return nil, err
	}
	return values, nil
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
