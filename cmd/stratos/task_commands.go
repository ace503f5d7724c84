package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"stratos/internal/api"
	"stratos/internal/queue"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var optionPairs []string
	var mimeType string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "submit <command> <file> [file...]",
		Short: "Queue a task for the daemon",
		Long: "Queue a task. Commands: transcribe, slowmotion, fpsboost, subtitle.\n" +
			"Options are passed as key=value, e.g. --option language=en --option format=srt.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			options, err := parseOptionPairs(optionPairs)
			if err != nil {
				return err
			}
			req := api.SubmitRequest{Command: args[0], Options: options}
			for _, path := range args[1:] {
				abs, err := filepath.Abs(path)
				if err != nil {
					return fmt.Errorf("resolve %q: %w", path, err)
				}
				req.Files = append(req.Files, api.SubmitFile{Path: abs, MimeType: mimeType})
			}

			return ctx.withTasks(func(svc *api.TaskService) error {
				task, err := svc.Submit(cmd.Context(), req)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, task)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued %s task %s\n", task.Command, task.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringArrayVarP(&optionPairs, "option", "o", nil, "Pipeline option as key=value (repeatable)")
	cmd.Flags().StringVar(&mimeType, "mime-type", "", "MIME type recorded for the input files")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the created task as JSON")
	return cmd
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var statusFlags []string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := parseStatuses(statusFlags)
			if err != nil {
				return err
			}
			return ctx.withTasks(func(svc *api.TaskService) error {
				tasks, err := svc.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, api.TaskListResponse{Tasks: tasks})
				}
				out := cmd.OutOrStdout()
				if len(tasks) == 0 {
					fmt.Fprintln(out, "No tasks")
					return nil
				}
				fmt.Fprint(out, renderTable(out, []string{"ID", "Command", "Status", "Progress", "Input", "Updated"},
					buildTaskRows(tasks),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft}))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&statusFlags, "status", "s", nil, "Filter by status (pending, processing, completed, failed)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print tasks as JSON")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show task details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withTasks(func(svc *api.TaskService) error {
				task, err := svc.Describe(cmd.Context(), args[0])
				if err != nil {
					if errors.Is(err, api.ErrTaskNotFound) {
						return fmt.Errorf("task %s not found", args[0])
					}
					return err
				}
				if jsonOut {
					return writeJSON(cmd, task)
				}
				printTaskDetails(cmd.OutOrStdout(), task)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the task as JSON")
	return cmd
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	var allFailed bool

	cmd := &cobra.Command{
		Use:   "retry [task-id...]",
		Short: "Move failed tasks back to pending",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !allFailed {
				return errors.New("pass task ids or --all-failed")
			}
			out := cmd.OutOrStdout()
			if allFailed {
				return ctx.withStore(func(store *queue.Store) error {
					count, err := store.RetryFailed(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Retried %d failed task(s)\n", count)
					return nil
				})
			}
			return ctx.withTasks(func(svc *api.TaskService) error {
				for _, id := range args {
					task, err := svc.Retry(cmd.Context(), id)
					if err != nil {
						return fmt.Errorf("retry %s: %w", id, err)
					}
					fmt.Fprintf(out, "Task %s is %s\n", task.ID, task.Status)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&allFailed, "all-failed", false, "Retry every failed task")
	return cmd
}

// parseOptionPairs turns key=value flags into pipeline options. Numeric values
// are kept as numbers so the pipelines see the same types as API submissions.
func parseOptionPairs(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	options := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid option %q (want key=value)", pair)
		}
		value = strings.TrimSpace(value)
		if n, err := strconv.ParseFloat(value, 64); err == nil {
			options[key] = n
			continue
		}
		options[key] = value
	}
	return options, nil
}

func parseStatuses(values []string) ([]queue.Status, error) {
	statuses := make([]queue.Status, 0, len(values))
	for _, value := range values {
		status, ok := queue.ParseStatus(value)
		if !ok {
			return nil, fmt.Errorf("unknown status %q", value)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func buildTaskRows(tasks []api.Task) [][]string {
	rows := make([][]string, 0, len(tasks))
	for _, task := range tasks {
		input := ""
		if len(task.Files) > 0 {
			input = task.Files[0].Name
			if len(task.Files) > 1 {
				input = fmt.Sprintf("%s (+%d)", input, len(task.Files)-1)
			}
		}
		rows = append(rows, []string{
			task.ID,
			titleLabel(task.Command),
			titleLabel(task.Status),
			formatPercent(task.Progress.Percent),
			input,
			task.UpdatedAt,
		})
	}
	return rows
}

func printTaskDetails(out io.Writer, task *api.Task) {
	fmt.Fprintf(out, "Task:     %s\n", task.ID)
	fmt.Fprintf(out, "Command:  %s\n", titleLabel(task.Command))
	fmt.Fprintf(out, "Status:   %s\n", titleLabel(task.Status))
	progress := formatPercent(task.Progress.Percent)
	if task.Progress.Message != "" {
		progress += " (" + task.Progress.Message + ")"
	}
	fmt.Fprintf(out, "Progress: %s\n", progress)
	if len(task.Options) > 0 {
		keys := make([]string, 0, len(task.Options))
		for k := range task.Options {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, task.Options[k]))
		}
		fmt.Fprintf(out, "Options:  %s\n", strings.Join(parts, ", "))
	}
	for i, f := range task.Files {
		fmt.Fprintf(out, "File %d:   %s\n", i+1, f.Path)
	}
	if task.ResultPath != "" {
		fmt.Fprintf(out, "Result:   %s\n", task.ResultPath)
	}
	if task.Error != "" {
		fmt.Fprintf(out, "Error:    %s\n", task.Error)
	}
	fmt.Fprintf(out, "Created:  %s\n", task.CreatedAt)
	fmt.Fprintf(out, "Updated:  %s\n", task.UpdatedAt)
}

func formatPercent(value float64) string {
	return strconv.FormatFloat(value*100, 'f', 0, 64) + "%"
}
