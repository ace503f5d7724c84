package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"stratos/internal/api"
	"stratos/internal/pipeline"
	"stratos/internal/queue"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "run <task-id>",
		Short: "Run a task in the foreground",
		Long: "Run a task inline without the daemon. The task must exist; it is run\n" +
			"regardless of its current status unless another process holds its lock.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(false)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			return ctx.withStore(func(store *queue.Store) error {
				task, err := store.GetByID(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if task == nil {
					return fmt.Errorf("task %s not found", args[0])
				}

				rt, err := buildRuntime(cfg, store, logger)
				if err != nil {
					return err
				}
				defer rt.Close()

				outcome := rt.orchestrator.Run(cmd.Context(), task.ID, pipeline.ParseCommand(task.Command, task.Options))
				if jsonOut {
					refreshed, err := api.NewTaskService(store).Describe(cmd.Context(), task.ID)
					if err != nil {
						return err
					}
					if err := writeJSON(cmd, refreshed); err != nil {
						return err
					}
				}
				out := cmd.OutOrStdout()
				switch {
				case outcome.Err == nil:
					if !jsonOut {
						fmt.Fprintf(out, "Task %s completed: %s\n", task.ID, outcome.ResultPath)
					}
					return nil
				case outcome.Status == "":
					return fmt.Errorf("task %s not run: %w", task.ID, outcome.Err)
				default:
					return fmt.Errorf("task %s failed: %w", task.ID, outcome.Err)
				}
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the final task as JSON")
	return cmd
}
