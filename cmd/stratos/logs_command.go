package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"stratos/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var taskID string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the daemon log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := cfg.LogFilePath()
			chunk, err := logs.Read(path, logs.Options{Offset: -1, Limit: lines, TaskID: taskID})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, line := range chunk.Lines {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}
			return logs.Follow(cmd.Context(), path, chunk.Offset, taskID, func(line string) {
				fmt.Fprintln(out, line)
			})
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing appended lines")
	cmd.Flags().StringVarP(&taskID, "task", "t", "", "Only show lines mentioning this task id")
	return cmd
}
