package queue

import (
	"encoding/json"
	"strings"
	"time"
)

// Status represents the lifecycle of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// DaemonStopReason is recorded on tasks reset after an unclean shutdown.
const DaemonStopReason = "Reset after daemon restart"

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

// AllStatuses returns every known status in lifecycle order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus attempts to map a string into a known queue status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// IsTerminal reports whether no further transitions happen without a retry.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// HealthSummary describes aggregated task counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Failed     int
	Completed  int
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    int64
	IntegrityCheck   bool
	TotalTasks       int
	Error            string
}

// File is an uploaded input referenced by a task. Files are immutable once
// associated.
type File struct {
	ID        string    `json:"id"`
	FilePath  string    `json:"file_path"`
	FileName  string    `json:"file_name"`
	MimeType  string    `json:"mime_type,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Task is a unit of work persisted in SQLite.
type Task struct {
	ID              string         `json:"id"`
	Command         string         `json:"command"`
	Options         map[string]any `json:"options,omitempty"`
	Status          Status         `json:"status"`
	ResultPath      string         `json:"result_path,omitempty"`
	ErrorMessage    string         `json:"error,omitempty"`
	Progress        float64        `json:"progress"`
	ProgressMessage string         `json:"progress_message,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func encodeOptions(options map[string]any) (any, error) {
	if len(options) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(options)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func decodeOptions(raw string) map[string]any {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}
