package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"stratos/internal/logging"
	"stratos/internal/pipeline"
	"stratos/internal/queue"
	"stratos/internal/services"
)

// Start resets interrupted tasks and begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	m.mu.Unlock()

	reset, err := m.store.ResetProcessing(ctx)
	if err != nil {
		return fmt.Errorf("reset interrupted tasks: %w", err)
	}
	if reset > 0 {
		m.logger.Info("reset interrupted tasks to pending",
			logging.Int("task_count", int(reset)),
			logging.String(logging.FieldEventType, "queue_reset"),
		)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	m.wg.Add(m.workers)
	for i := 0; i < m.workers; i++ {
		logger := m.logger.With(logging.Int("worker", i+1))
		go m.runWorker(runCtx, logger)
	}
	if m.sweeper != nil {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.sweeper.Run(runCtx)
		}()
	}

	m.logger.Info("workflow started",
		logging.Int("workers", m.workers),
		logging.Duration("poll_interval", m.pollInterval),
		logging.Bool("scratch_sweep", m.sweeper != nil),
	)
	return nil
}

// Stop cancels workers and waits for in-flight runs to return.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	m.logger.Info("workflow stopped")
}

func (m *Manager) runWorker(ctx context.Context, logger *slog.Logger) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		task, err := m.store.ClaimNextPending(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.handleClaimError(ctx, logger, err)
			continue
		}
		if task == nil {
			m.wait(ctx, m.pollInterval)
			continue
		}
		m.process(ctx, logger, task)
	}
}

func (m *Manager) process(ctx context.Context, logger *slog.Logger, task *queue.Task) {
	m.trackActive(task.ID, task.Command)
	defer m.untrackActive(task.ID)

	logger.Debug("task claimed",
		logging.String(logging.FieldTaskID, task.ID),
		logging.String("command", task.Command),
	)
	outcome := m.runner.Run(ctx, task.ID, pipeline.ParseCommand(task.Command, task.Options))
	m.setLastTask(task.ID)

	switch {
	case outcome.Err == nil:
	case errors.Is(outcome.Err, services.ErrTaskBusy):
		logger.Info("claimed task is running elsewhere",
			logging.String(logging.FieldTaskID, task.ID),
			logging.String(logging.FieldEventType, "task_busy"),
		)
	default:
		m.setLastError(outcome.Err)
	}
}

func (m *Manager) handleClaimError(ctx context.Context, logger *slog.Logger, err error) {
	m.setLastError(err)
	logger.Error("failed to claim next task",
		logging.Error(err),
		logging.String(logging.FieldEventType, "queue_claim_failed"),
		logging.String(logging.FieldErrorHint, "check queue database access"),
	)
	m.wait(ctx, m.retryDelay)
}

func (m *Manager) wait(ctx context.Context, d time.Duration) {
	if d <= 0 {
		d = 10 * time.Millisecond
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
