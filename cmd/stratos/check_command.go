package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"stratos/internal/preflight"
	"stratos/internal/queue"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify ffmpeg, directories, the database, and the inference backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			results = append(results, checkDatabase(cmd, ctx))

			if jsonOut {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					state := "ok"
					if !r.Passed {
						state = "FAIL"
					}
					rows = append(rows, []string{r.Name, state, r.Detail})
				}
				out := cmd.OutOrStdout()
				fmt.Fprint(out, renderTable(out, []string{"Check", "Result", "Detail"}, rows, nil))
			}
			if preflight.Failed(results) {
				return errors.New("one or more checks failed")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print results as JSON")
	return cmd
}

func checkDatabase(cmd *cobra.Command, ctx *commandContext) preflight.Result {
	const name = "Database"
	var result preflight.Result
	err := ctx.withStore(func(store *queue.Store) error {
		health, err := store.CheckHealth(cmd.Context())
		if err != nil {
			return err
		}
		if !health.IntegrityCheck {
			result = preflight.Result{Name: name, Detail: fmt.Sprintf("%s (integrity check failed: %s)", health.DBPath, health.Error)}
			return nil
		}
		result = preflight.Result{
			Name:   name,
			Passed: true,
			Detail: fmt.Sprintf("%s (schema v%d, %d tasks)", health.DBPath, health.SchemaVersion, health.TotalTasks),
		}
		return nil
	})
	if err != nil {
		return preflight.Result{Name: name, Detail: err.Error()}
	}
	return result
}
