package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"stratos/internal/logging"
	"stratos/internal/notifications"
)

// ProgressStore records the latest checkpoint of a task.
type ProgressStore interface {
	UpdateProgress(ctx context.Context, id string, progress float64, message string) error
}

// Reporter emits progress checkpoints for one task run. Emit never fails the
// caller; store and transport errors are logged and dropped.
type Reporter struct {
	taskID    string
	command   string
	store     ProgressStore
	publisher notifications.Publisher
	logger    *slog.Logger

	mu      sync.Mutex
	last    float64
	emitted bool
}

// NewReporter returns a reporter for taskID. store and publisher may be nil.
func NewReporter(taskID, command string, store ProgressStore, publisher notifications.Publisher, logger *slog.Logger) *Reporter {
	if publisher == nil {
		publisher = notifications.Noop{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Reporter{
		taskID:    taskID,
		command:   command,
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

// Emit publishes progress clamped to [0,1]. A value that does not exceed the
// last emitted checkpoint is dropped.
func (r *Reporter) Emit(ctx context.Context, progress float64, message string) {
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}

	r.mu.Lock()
	if r.emitted && progress <= r.last {
		last := r.last
		r.mu.Unlock()
		r.logger.DebugContext(ctx, "dropping non-increasing progress",
			logging.Float64("progress", progress),
			logging.Float64("last_progress", last),
		)
		return
	}
	r.last = progress
	r.emitted = true
	r.mu.Unlock()

	r.logger.InfoContext(ctx, "task progress",
		logging.String(logging.FieldEventType, "task_progress"),
		logging.Float64("progress", progress),
		logging.String("message", message),
	)

	if r.store != nil {
		if err := r.store.UpdateProgress(ctx, r.taskID, progress, message); err != nil {
			r.logger.DebugContext(ctx, "progress not persisted", logging.Error(err))
		}
	}
	if err := r.publisher.Publish(ctx, notifications.Progress(r.taskID, r.command, progress, message)); err != nil {
		logging.WarnWithContext(r.logger, "progress notification failed", "progress_notify_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check event transport configuration"),
			logging.String(logging.FieldImpact, "subscribers miss this progress update"),
		)
	}
}

// Last returns the highest checkpoint emitted so far.
func (r *Reporter) Last() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Finish emits the closing 1.0 checkpoint unless a pipeline already did.
func (r *Reporter) Finish(ctx context.Context, message string) {
	if r.Last() >= 1 {
		return
	}
	r.Emit(ctx, 1, message)
}
