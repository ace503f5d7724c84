package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"stratos/internal/config"
	"stratos/internal/logging"
	"stratos/internal/pipeline"
	"stratos/internal/queue"
)

// TaskRunner executes a claimed task to a terminal status.
type TaskRunner interface {
	Run(ctx context.Context, taskID string, cmd pipeline.ParsedCommand) pipeline.Outcome
}

// Manager coordinates queue workers and the scratch sweeper.
type Manager struct {
	cfg          *config.Config
	store        *queue.Store
	runner       TaskRunner
	logger       *slog.Logger
	workers      int
	pollInterval time.Duration
	retryDelay   time.Duration

	sweeper *Sweeper

	mu         sync.RWMutex
	running    bool
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	lastErr    error
	lastTaskID string
	active     map[string]string
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithPollInterval overrides the idle wait between queue polls.
func WithPollInterval(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.pollInterval = d
	}
}

// WithErrorRetryInterval overrides the wait after a queue error.
func WithErrorRetryInterval(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.retryDelay = d
	}
}

// WithSweeper replaces the default scratch sweeper. A nil sweeper disables it.
func WithSweeper(s *Sweeper) ManagerOption {
	return func(m *Manager) {
		m.sweeper = s
	}
}

// NewManager constructs a workflow manager from configuration.
func NewManager(cfg *config.Config, store *queue.Store, runner TaskRunner, logger *slog.Logger, opts ...ManagerOption) (*Manager, error) {
	if cfg == nil || store == nil || runner == nil {
		return nil, errors.New("workflow manager requires config, store, and task runner")
	}
	logger = logging.NewComponentLogger(logger, "workflow")
	workers := cfg.Workflow.Workers
	if workers <= 0 {
		workers = 1
	}
	m := &Manager{
		cfg:          cfg,
		store:        store,
		runner:       runner,
		logger:       logger,
		workers:      workers,
		pollInterval: cfg.PollInterval(),
		retryDelay:   cfg.ErrorRetryInterval(),
		active:       make(map[string]string),
	}
	if retention := cfg.ScratchRetention(); retention > 0 {
		m.sweeper = NewSweeper(store, cfg.Paths.OutputDir, retention, sweepInterval, logger)
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}
