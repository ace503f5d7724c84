package main

import (
	"fmt"
	"log/slog"

	"stratos/internal/config"
	"stratos/internal/media/ffmpeg"
	"stratos/internal/notifications"
	"stratos/internal/pipeline"
	"stratos/internal/queue"
	"stratos/internal/services/inference"
	"stratos/internal/staging"
)

// taskRuntime bundles the collaborators shared by `run` and `daemon`.
type taskRuntime struct {
	orchestrator *pipeline.Orchestrator
	publisher    notifications.Publisher
}

func (r *taskRuntime) Close() error {
	if r == nil || r.publisher == nil {
		return nil
	}
	return r.publisher.Close()
}

func buildRuntime(cfg *config.Config, store *queue.Store, logger *slog.Logger) (*taskRuntime, error) {
	publisher, err := notifications.NewFromConfig(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init notifications: %w", err)
	}

	client := inference.NewClient(cfg.Inference.BaseURL,
		inference.WithTimeout(cfg.InferenceTimeout()),
		inference.WithRetryMaxAttempts(cfg.Inference.MaxAttempts),
		inference.WithPathPlaceholder(cfg.Inference.PathPlaceholder),
	)

	orch, err := pipeline.NewOrchestrator(pipeline.Deps{
		Store:      store,
		Workspace:  staging.New(cfg.Paths.OutputDir, logger),
		Transcoder: ffmpeg.New(cfg.FFmpegBinary(), ffmpeg.WithLogger(logger)),
		Inference:  client,
		Publisher:  publisher,
		Locker:     pipeline.NewLocker(cfg.TaskLockDir()),
		Logger:     logger,
	})
	if err != nil {
		_ = publisher.Close()
		return nil, err
	}
	return &taskRuntime{orchestrator: orch, publisher: publisher}, nil
}
