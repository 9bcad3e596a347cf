package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/emberml/ember"
	"github.com/emberml/ember/callbacks"
	"github.com/emberml/ember/checkpoint"
	"github.com/emberml/ember/datasets"
	"github.com/emberml/ember/internal/mlp"
)

// evalOptions holds flags for the eval command.
type evalOptions struct {
	*rootOptions

	BatchSize int
	Examples  int
	Noise     float64
	Seed      int64
}

func newEvalCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &evalOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate the latest checkpoint on a fresh dataset",
		Long: `Restore the latest checkpoint from the run directory and score it on a
newly generated two-moons dataset. Use a different --seed than training to
measure generalization rather than memorization.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(opts)
		},
	}

	fs := cmd.Flags()
	fs.IntVar(&opts.BatchSize, "batch-size", 32, "examples per batch")
	fs.IntVar(&opts.Examples, "examples", 500, "dataset size to generate")
	fs.Float64Var(&opts.Noise, "noise", 0.1, "gaussian noise added to the dataset")
	fs.Int64Var(&opts.Seed, "seed", 7, "seed for data generation")
	return cmd
}

func runEval(opts *evalOptions) error {
	examples, meta := datasets.Moons(datasets.MoonsConfig{
		Examples: opts.Examples,
		Noise:    opts.Noise,
		Seed:     opts.Seed,
	})
	dataset := datasets.NewMemory(examples, datasets.MemoryConfig{BatchSize: opts.BatchSize})

	model := mlp.New(mlp.Config{})
	if err := model.ApplyMetadata(meta); err != nil {
		return err
	}

	manager, err := checkpoint.NewManager(checkpoint.Config{
		Dir: filepath.Join(opts.RunDir, "ckpt"),
	})
	if err != nil {
		return err
	}

	objects := map[string]checkpoint.Saveable{}
	for name, obj := range model.CheckpointObjects() {
		if s, ok := obj.(checkpoint.Saveable); ok {
			objects[name] = s
		}
	}

	evaluator := model.CreateEvaluator().WithLogger(newLogger(opts.Verbose))
	cbs := []ember.Callback[[]datasets.Example]{
		callbacks.NewCheckpointer[[]datasets.Example](callbacks.CheckpointerConfig{
			Manager: manager,
			Objects: objects,
		}),
		callbacks.NewProgressLogger[[]datasets.Example](callbacks.ProgressLoggerConfig{}),
	}
	if err := evaluator.AddCallbacks(cbs...); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := evaluator.Run(ctx, dataset, ember.DefaultRunConfig()); err != nil {
		return err
	}

	accuracy, _ := evaluator.Metrics().Gauge("eval:accuracy")
	loss, _ := evaluator.Metrics().Gauge("eval:loss")
	fmt.Printf("examples: %d\naccuracy: %.4f\nloss:     %.4f\n",
		evaluator.Metrics().Counter("eval:examples"), accuracy, loss)
	return nil
}
