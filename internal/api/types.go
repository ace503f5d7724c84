package api

import (
	"sort"

	"stratos/internal/queue"
	"stratos/internal/workflow"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Task describes a task in a transport-friendly format.
type Task struct {
	ID         string         `json:"id"`
	Command    string         `json:"command"`
	Options    map[string]any `json:"options,omitempty"`
	Status     string         `json:"status"`
	Progress   TaskProgress   `json:"progress"`
	ResultPath string         `json:"resultPath,omitempty"`
	Error      string         `json:"error,omitempty"`
	Files      []TaskFile     `json:"files"`
	CreatedAt  string         `json:"createdAt,omitempty"`
	UpdatedAt  string         `json:"updatedAt,omitempty"`
}

// TaskProgress carries the last persisted checkpoint.
type TaskProgress struct {
	Percent float64 `json:"percent"`
	Message string  `json:"message,omitempty"`
}

// TaskFile is an input attached to a task.
type TaskFile struct {
	ID       string `json:"id,omitempty"`
	Path     string `json:"path"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType,omitempty"`
}

// SubmitFile references an already uploaded input.
type SubmitFile struct {
	Path     string `json:"path" zog:"path"`
	Name     string `json:"name" zog:"name"`
	MimeType string `json:"mimeType" zog:"mimeType"`
}

// SubmitRequest is the body of POST /api/tasks.
type SubmitRequest struct {
	Command string         `json:"command" zog:"command"`
	Options map[string]any `json:"options"`
	Files   []SubmitFile   `json:"files" zog:"files"`
}

// TaskResponse wraps a single task.
type TaskResponse struct {
	Task Task `json:"task"`
}

// TaskListResponse wraps a collection of tasks.
type TaskListResponse struct {
	Tasks []Task `json:"tasks"`
}

// ErrorResponse is returned for every non-2xx status.
type ErrorResponse struct {
	Error  string              `json:"error"`
	Issues map[string][]string `json:"issues,omitempty"`
}

// ActiveTask identifies a task a worker is running.
type ActiveTask struct {
	ID      string `json:"id"`
	Command string `json:"command"`
}

// WorkflowStatus summarizes worker pool state.
type WorkflowStatus struct {
	Running    bool           `json:"running"`
	Workers    int            `json:"workers"`
	Active     []ActiveTask   `json:"active"`
	QueueStats map[string]int `json:"queueStats"`
	LastError  string         `json:"lastError,omitempty"`
	LastTaskID string         `json:"lastTaskId,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	QueueDBPath  string         `json:"queueDbPath"`
	LockFilePath string         `json:"lockFilePath"`
	Workflow     WorkflowStatus `json:"workflow"`
}

// FromTask converts a queue record and its files to the API representation.
func FromTask(task *queue.Task, files []queue.File) Task {
	if task == nil {
		return Task{}
	}
	dto := Task{
		ID:      task.ID,
		Command: task.Command,
		Options: task.Options,
		Status:  string(task.Status),
		Progress: TaskProgress{
			Percent: task.Progress,
			Message: task.ProgressMessage,
		},
		ResultPath: task.ResultPath,
		Error:      task.ErrorMessage,
		Files:      make([]TaskFile, 0, len(files)),
	}
	for _, f := range files {
		dto.Files = append(dto.Files, TaskFile{ID: f.ID, Path: f.FilePath, Name: f.FileName, MimeType: f.MimeType})
	}
	if !task.CreatedAt.IsZero() {
		dto.CreatedAt = task.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !task.UpdatedAt.IsZero() {
		dto.UpdatedAt = task.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromStatusSummary converts workflow diagnostics to the API representation.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	out := WorkflowStatus{
		Running:    summary.Running,
		Workers:    summary.Workers,
		Active:     make([]ActiveTask, 0, len(summary.Active)),
		QueueStats: MergeQueueStats(summary.QueueStats),
		LastError:  summary.LastError,
		LastTaskID: summary.LastTaskID,
	}
	for _, a := range summary.Active {
		out.Active = append(out.Active, ActiveTask{ID: a.ID, Command: a.Command})
	}
	sort.Slice(out.Active, func(i, j int) bool { return out.Active[i].ID < out.Active[j].ID })
	return out
}

// MergeQueueStats reports a count for every known status, zero-filled.
func MergeQueueStats(stats map[queue.Status]int) map[string]int {
	out := make(map[string]int, len(queue.AllStatuses()))
	for _, status := range queue.AllStatuses() {
		out[string(status)] = stats[status]
	}
	return out
}
