// Command emberdemo trains and evaluates a small classifier on the two-moons
// toy dataset. It is the reference wiring for the engine, callbacks, and
// history packages rather than a useful model.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootOptions holds global flags shared by all subcommands.
type rootOptions struct {
	RunDir  string
	Verbose bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "emberdemo",
		Short: "Train and evaluate a toy classifier on the two-moons dataset",
		Long: `emberdemo drives an ember training loop end to end: it trains a small
MLP on the two-moons dataset, checkpoints it into the run directory, records
metrics into a SQLite history database, and can resume or evaluate a saved
run.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.RunDir, "run-dir", defaultRunDir(),
		"directory holding checkpoints, parameters, and the history database (env: EMBER_RUN_DIR)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false,
		"verbose output (debug logs and a full event dump)")

	cmd.AddCommand(newTrainCommand(opts))
	cmd.AddCommand(newEvalCommand(opts))
	cmd.AddCommand(newRunsCommand(opts))
	return cmd
}

func defaultRunDir() string {
	if dir := os.Getenv("EMBER_RUN_DIR"); dir != "" {
		return dir
	}
	return "./run"
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
