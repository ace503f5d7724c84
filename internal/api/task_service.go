package api

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	z "github.com/Oudwins/zog"

	"stratos/internal/fileutil"
	"stratos/internal/queue"
)

var (
	// ErrTaskNotFound is returned when an id names no task.
	ErrTaskNotFound = errors.New("task not found")
	// ErrNotRetryable is returned when retry targets a task that has not failed.
	ErrNotRetryable = errors.New("only failed tasks can be retried")
)

// ValidationError carries per-field submission issues.
type ValidationError struct {
	Issues map[string][]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for field, msgs := range e.Issues {
		parts = append(parts, fmt.Sprintf("%s: %s", field, strings.Join(msgs, "; ")))
	}
	if len(parts) == 0 {
		return "invalid request"
	}
	return "invalid request: " + strings.Join(parts, ", ")
}

// TaskStore abstracts the queue persistence the service needs.
type TaskStore interface {
	NewTask(ctx context.Context, command string, options map[string]any, files []queue.File) (*queue.Task, error)
	GetByID(ctx context.Context, id string) (*queue.Task, error)
	FilesForTask(ctx context.Context, taskID string) ([]queue.File, error)
	List(ctx context.Context, statuses ...queue.Status) ([]*queue.Task, error)
	Stats(ctx context.Context) (map[queue.Status]int, error)
	RetryFailed(ctx context.Context, ids ...string) (int64, error)
}

// TaskService exposes task operations returning API DTOs.
type TaskService struct {
	store TaskStore
}

// NewTaskService constructs a TaskService around the provided store.
func NewTaskService(store TaskStore) *TaskService {
	if store == nil {
		return nil
	}
	return &TaskService{store: store}
}

// Submit validates req and persists a pending task.
func (s *TaskService) Submit(ctx context.Context, req SubmitRequest) (*Task, error) {
	if issues := submitSchema.Validate(&req); len(issues) > 0 {
		return nil, &ValidationError{Issues: z.Issues.Flatten(issues)}
	}
	opts := optionsForValidation(req.Options)
	if issues := submitOptionsSchema.Validate(&opts); len(issues) > 0 {
		flat := map[string][]string{}
		for field, msgs := range z.Issues.Flatten(issues) {
			flat["options."+strings.ToLower(field)] = msgs
		}
		return nil, &ValidationError{Issues: flat}
	}

	files := make([]queue.File, 0, len(req.Files))
	missing := map[string][]string{}
	for i, f := range req.Files {
		if !filepath.IsAbs(f.Path) {
			missing[fmt.Sprintf("files[%d].path", i)] = []string{"path must be absolute"}
			continue
		}
		if !fileutil.Exists(f.Path) {
			missing[fmt.Sprintf("files[%d].path", i)] = []string{"file does not exist"}
			continue
		}
		name := f.Name
		if name == "" {
			name = filepath.Base(f.Path)
		}
		files = append(files, queue.File{FilePath: f.Path, FileName: name, MimeType: f.MimeType})
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Issues: missing}
	}

	task, err := s.store.NewTask(ctx, req.Command, req.Options, files)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return s.describe(ctx, task)
}

// List returns tasks filtered by status, oldest first.
func (s *TaskService) List(ctx context.Context, statuses ...queue.Status) ([]Task, error) {
	tasks, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	out := make([]Task, 0, len(tasks))
	for _, task := range tasks {
		dto, err := s.describe(ctx, task)
		if err != nil {
			return nil, err
		}
		out = append(out, *dto)
	}
	return out, nil
}

// Describe fetches a single task with its files.
func (s *TaskService) Describe(ctx context.Context, id string) (*Task, error) {
	task, err := s.store.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}
	return s.describe(ctx, task)
}

// Retry moves a failed task back to pending.
func (s *TaskService) Retry(ctx context.Context, id string) (*Task, error) {
	task, err := s.store.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}
	if task.Status != queue.StatusFailed {
		return nil, fmt.Errorf("task %s is %s: %w", task.ID, task.Status, ErrNotRetryable)
	}
	if _, err := s.store.RetryFailed(ctx, task.ID); err != nil {
		return nil, err
	}
	return s.Describe(ctx, task.ID)
}

// Stats returns task counts keyed by status string.
func (s *TaskService) Stats(ctx context.Context) (map[string]int, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return MergeQueueStats(stats), nil
}

func (s *TaskService) describe(ctx context.Context, task *queue.Task) (*Task, error) {
	files, err := s.store.FilesForTask(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	dto := FromTask(task, files)
	return &dto, nil
}
