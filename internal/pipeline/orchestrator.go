package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"stratos/internal/fileutil"
	"stratos/internal/logging"
	"stratos/internal/notifications"
	"stratos/internal/queue"
	"stratos/internal/services"
	"stratos/internal/services/inference"
	"stratos/internal/staging"
)

// TaskStore is the subset of the task store the orchestrator writes to.
type TaskStore interface {
	ProgressStore
	MarkProcessing(ctx context.Context, id string) error
	FilesForTask(ctx context.Context, taskID string) ([]queue.File, error)
	MarkCompleted(ctx context.Context, id, resultPath string) error
	MarkFailed(ctx context.Context, id, message string) error
}

// Transcoder runs local ffmpeg stages.
type Transcoder interface {
	ExtractAudio(ctx context.Context, source, dest string) error
	Normalize(ctx context.Context, source, dest string) error
	SubtitleToASS(ctx context.Context, source, dest string) error
	BurnSubtitles(ctx context.Context, video, overlay, dest string) error
}

// InferenceRunner issues one backend request.
type InferenceRunner interface {
	Run(ctx context.Context, req inference.Request) (inference.Result, error)
}

// Deps wires the orchestrator's collaborators. Publisher and Locker are optional.
type Deps struct {
	Store      TaskStore
	Workspace  *staging.Workspace
	Transcoder Transcoder
	Inference  InferenceRunner
	Publisher  notifications.Publisher
	Locker     *Locker
	Logger     *slog.Logger
}

// Orchestrator drives task runs.
type Orchestrator struct {
	store      TaskStore
	workspace  *staging.Workspace
	transcoder Transcoder
	inference  InferenceRunner
	publisher  notifications.Publisher
	locker     *Locker
	logger     *slog.Logger
}

// Outcome summarizes a finished run for callers that want to report it.
// Status is empty when the run never took ownership of the task.
type Outcome struct {
	Status     queue.Status
	ResultPath string
	Err        error
}

// NewOrchestrator validates deps and returns an orchestrator.
func NewOrchestrator(deps Deps) (*Orchestrator, error) {
	if deps.Store == nil || deps.Workspace == nil || deps.Transcoder == nil || deps.Inference == nil {
		return nil, errors.New("orchestrator requires store, workspace, transcoder, and inference client")
	}
	publisher := deps.Publisher
	if publisher == nil {
		publisher = notifications.Noop{}
	}
	locker := deps.Locker
	if locker == nil {
		locker = NewLocker("")
	}
	return &Orchestrator{
		store:      deps.Store,
		workspace:  deps.Workspace,
		transcoder: deps.Transcoder,
		inference:  deps.Inference,
		publisher:  publisher,
		locker:     locker,
		logger:     logging.NewComponentLogger(deps.Logger, "orchestrator"),
	}, nil
}

// run carries the per-run state shared by pipeline stages.
type run struct {
	taskID   string
	cmd      ParsedCommand
	input    queue.File
	baseName string
	dir      string
	progress *Reporter
	logger   *slog.Logger
	// doneMessage, when set by a pipeline, replaces the generic final
	// progress message.
	doneMessage string
}

func (r *run) completion() string {
	if r.doneMessage != "" {
		return r.doneMessage
	}
	return "Completed"
}

// Run executes cmd for taskID and records the terminal status. It never
// returns an error; the Outcome mirrors what was persisted.
func (o *Orchestrator) Run(ctx context.Context, taskID string, cmd ParsedCommand) Outcome {
	ctx = services.WithTaskID(ctx, taskID)
	ctx = services.WithCommand(ctx, string(cmd.Command))
	if _, ok := services.RequestIDFromContext(ctx); !ok {
		ctx = services.WithRequestID(ctx, uuid.NewString())
	}
	logger := logging.WithContext(ctx, o.logger)

	unlock, err := o.locker.TryLock(taskID)
	if err != nil {
		if errors.Is(err, services.ErrTaskBusy) {
			logging.WarnWithContext(logger, "task run skipped", "task_busy",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "wait for the active run to finish"),
				logging.String(logging.FieldImpact, "duplicate run refused; task status unchanged"),
			)
			return Outcome{Err: err}
		}
		return o.fail(ctx, logger, taskID, cmd, err)
	}
	defer unlock()

	start := time.Now()
	logger.Info("task started", logging.String(logging.FieldEventType, "task_start"))

	if err := o.store.MarkProcessing(ctx, taskID); err != nil {
		return o.fail(ctx, logger, taskID, cmd, fmt.Errorf("persist processing status: %w", err))
	}

	files, err := o.store.FilesForTask(ctx, taskID)
	if err != nil {
		return o.fail(ctx, logger, taskID, cmd, fmt.Errorf("load task files: %w", err))
	}
	if len(files) == 0 {
		return o.fail(ctx, logger, taskID, cmd, services.Wrap(services.ErrNoInputFiles, "load", "files", "no files found for task", nil))
	}
	input := files[0]
	if len(files) > 1 {
		logger.Info("task has multiple files; processing the first only",
			logging.Int("file_count", len(files)),
			logging.String("input_file", input.FilePath),
		)
	}

	dir, err := o.workspace.Ensure(taskID)
	if err != nil {
		return o.fail(ctx, logger, taskID, cmd, services.Wrap(services.ErrPreparationFailed, "scratch", "create", "", err))
	}

	r := &run{
		taskID:   taskID,
		cmd:      cmd,
		input:    input,
		baseName: inputBaseName(input),
		dir:      dir,
		progress: NewReporter(taskID, string(cmd.Command), o.store, o.publisher, logger),
		logger:   logger,
	}

	resultPath, err := o.dispatch(ctx, r)
	if err != nil {
		return o.fail(ctx, logger, taskID, cmd, err)
	}

	if err := o.store.MarkCompleted(ctx, taskID, resultPath); err != nil {
		return o.fail(ctx, logger, taskID, cmd, fmt.Errorf("persist completed status: %w", err))
	}
	r.progress.Finish(ctx, r.completion())
	o.publish(ctx, logger, notifications.Complete(taskID, string(cmd.Command), resultPath))

	logger.Info("task completed",
		logging.String(logging.FieldEventType, "task_complete"),
		logging.String("result_path", resultPath),
		logging.Duration("task_duration", time.Since(start)),
	)
	return Outcome{Status: queue.StatusCompleted, ResultPath: resultPath}
}

func (o *Orchestrator) dispatch(ctx context.Context, r *run) (string, error) {
	ctx = services.WithStage(ctx, string(r.cmd.Command))
	switch r.cmd.Command {
	case CommandTranscribe:
		format, err := r.cmd.Format("txt")
		if err != nil {
			return "", services.Wrap(services.ErrPreparationFailed, string(r.cmd.Command), "options", "invalid option", err)
		}
		return o.runTranscription(ctx, r, r.cmd.String("language", "auto"), format, standaloneTranscription)
	case CommandSlowmotion:
		return o.runRetime(ctx, r, slowmotionPipeline)
	case CommandFPSBoost:
		return o.runRetime(ctx, r, fpsboostPipeline)
	case CommandSubtitle:
		return o.runSubtitle(ctx, r)
	default:
		return "", services.Wrap(services.ErrUnsupportedCommand, "dispatch", "", fmt.Sprintf("unsupported command %q", r.cmd.Command), nil)
	}
}

// artifact names a file for this run inside its scratch directory.
func (r *run) artifact(suffix, ext string) (string, error) {
	path := staging.ArtifactPath(r.dir, r.baseName, suffix, ext)
	if !fileutil.Within(r.dir, path) {
		return "", fmt.Errorf("artifact %s is outside scratch directory %s", path, r.dir)
	}
	return path, nil
}

func (o *Orchestrator) fail(ctx context.Context, logger *slog.Logger, taskID string, cmd ParsedCommand, runErr error) Outcome {
	message := strings.TrimSpace(runErr.Error())
	if message == "" {
		message = "task failed"
	}

	attrs := append(logging.FailureAttrs(runErr),
		logging.String(logging.FieldEventType, "task_failed"),
		logging.String(logging.FieldErrorHint, failureHint(runErr)),
		logging.Alert("task_failure"),
	)
	logger.Error("task failed", logging.Args(attrs...)...)

	if err := o.store.MarkFailed(ctx, taskID, message); err != nil {
		logging.ErrorWithContext(logger, "failed to persist task failure", "task_persist_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check database health with `stratos check`"),
		)
	}
	o.publish(ctx, logger, notifications.Failed(taskID, string(cmd.Command), message))
	return Outcome{Status: queue.StatusFailed, Err: runErr}
}

func (o *Orchestrator) publish(ctx context.Context, logger *slog.Logger, event notifications.Event) {
	if err := o.publisher.Publish(ctx, event); err != nil {
		logging.WarnWithContext(logger, "task notification failed", "notify_failed",
			logging.String("notification_type", string(event.Type)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check event transport configuration"),
			logging.String(logging.FieldImpact, "subscribers miss the terminal event"),
		)
	}
}

func failureHint(err error) string {
	switch {
	case errors.Is(err, services.ErrNoInputFiles):
		return "attach at least one file when submitting the task"
	case errors.Is(err, services.ErrUnsupportedCommand):
		return "use one of transcribe, slowmotion, fpsboost, subtitle"
	case errors.Is(err, services.ErrPreparationFailed):
		return "verify the input file is readable media and ffmpeg is installed"
	case errors.Is(err, services.ErrInferenceFailed):
		return "check the inference backend logs and inference.base_url"
	case errors.Is(err, services.ErrSubtitleApplicationFailed):
		return "inspect the subtitle track and ffmpeg libass support"
	default:
		return "check logs for details"
	}
}

func inputBaseName(f queue.File) string {
	name := strings.TrimSpace(f.FileName)
	if name == "" {
		name = filepath.Base(f.FilePath)
	}
	return staging.BaseName(name)
}
