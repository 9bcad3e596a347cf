package main

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/emberml/ember/history"
)

func newRunsCommand(rootOpts *rootOptions) *cobra.Command {
	var tag string

	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "Inspect the run history database",
		Long: `Without arguments, list every recorded run in the run directory's history
database. With a run id, show the run's parameters and recorded metric tags;
add --tag to dump one metric's values.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := history.Open(filepath.Join(rootOpts.RunDir, "history.db"))
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			if len(args) == 0 {
				return listRuns(ctx, store)
			}
			if tag != "" {
				return showScalars(ctx, store, args[0], tag)
			}
			return showRun(ctx, store, args[0])
		},
	}

	cmd.Flags().StringVar(&tag, "tag", "", "metric tag to dump (e.g. train:loss)")
	return cmd
}

func listRuns(ctx context.Context, store *history.Store) error {
	runs, err := store.ListRuns(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}
	for _, run := range runs {
		fmt.Printf("%s  %s  %s\n",
			run.ID, run.CreatedAt.Format("2006-01-02 15:04:05"), run.Name)
	}
	return nil
}

func showRun(ctx context.Context, store *history.Store, id string) error {
	run, err := store.GetRun(ctx, id)
	if err != nil {
		return err
	}
	params, err := json.MarshalIndent(run.Params, "", "  ")
	if err != nil {
		return err
	}
	fmt.Printf("run:     %s\nname:    %s\ncreated: %s\nparams:  %s\n",
		run.ID, run.Name, run.CreatedAt.Format("2006-01-02 15:04:05"), params)

	tags, err := store.Tags(ctx, id)
	if err != nil {
		return err
	}
	fmt.Println("tags:")
	for _, tag := range tags {
		fmt.Printf("  %s\n", tag)
	}
	return nil
}

func showScalars(ctx context.Context, store *history.Store, id, tag string) error {
	scalars, err := store.Scalars(ctx, id, tag)
	if err != nil {
		return err
	}
	for _, sc := range scalars {
		fmt.Printf("epoch %4d  step %8d  %g\n", sc.Epoch, sc.Step, sc.Value)
	}
	return nil
}
