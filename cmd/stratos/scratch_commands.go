package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"stratos/internal/queue"
	"stratos/internal/staging"
)

func newScratchCommand(ctx *commandContext) *cobra.Command {
	scratchCmd := &cobra.Command{
		Use:   "scratch",
		Short: "Inspect and prune task scratch directories",
	}
	scratchCmd.AddCommand(newScratchListCommand(ctx))
	scratchCmd.AddCommand(newScratchCleanCommand(ctx))
	return scratchCmd
}

func newScratchListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List task scratch directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dirs, err := staging.ListDirectories(cfg.Paths.OutputDir)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, dirs)
			}
			out := cmd.OutOrStdout()
			if len(dirs) == 0 {
				fmt.Fprintln(out, "No scratch directories")
				return nil
			}
			rows := make([][]string, 0, len(dirs))
			for _, d := range dirs {
				rows = append(rows, []string{
					d.TaskID,
					strconv.Itoa(d.Files),
					formatBytes(d.Size),
					d.ModTime.Local().Format(time.DateTime),
				})
			}
			fmt.Fprint(out, renderTable(out, []string{"Task", "Files", "Size", "Modified"}, rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft}))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print directories as JSON")
	return cmd
}

func newScratchCleanCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove scratch directories of finished tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if olderThan <= 0 {
				olderThan = cfg.ScratchRetention()
			}
			if olderThan <= 0 {
				return fmt.Errorf("pass --older-than or set workflow.scratch_retention_days")
			}
			return ctx.withStore(func(store *queue.Store) error {
				ids, err := store.TerminalBefore(cmd.Context(), time.Now().Add(-olderThan))
				if err != nil {
					return err
				}
				result := staging.CleanStale(cmd.Context(), cfg.Paths.OutputDir, ids, olderThan, nil)
				out := cmd.OutOrStdout()
				for _, path := range result.Removed {
					fmt.Fprintf(out, "Removed %s\n", path)
				}
				for _, failure := range result.Errors {
					fmt.Fprintf(out, "Failed %s: %v\n", failure.Path, failure.Error)
				}
				fmt.Fprintf(out, "Removed %d scratch director(ies)\n", len(result.Removed))
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Minimum age of finished tasks (default: workflow.scratch_retention_days)")
	return cmd
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
