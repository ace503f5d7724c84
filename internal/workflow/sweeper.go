package workflow

import (
	"context"
	"log/slog"
	"time"

	"stratos/internal/logging"
	"stratos/internal/staging"
)

const sweepInterval = time.Hour

// TerminalLister reports task ids that finished before a cutoff.
type TerminalLister interface {
	TerminalBefore(ctx context.Context, cutoff time.Time) ([]string, error)
}

// Sweeper periodically removes scratch directories of long-finished tasks.
type Sweeper struct {
	store     TerminalLister
	root      string
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger
}

// NewSweeper creates a sweeper for scratch directories under root.
func NewSweeper(store TerminalLister, root string, retention, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = sweepInterval
	}
	return &Sweeper{
		store:     store,
		root:      root,
		retention: retention,
		interval:  interval,
		logger:    logging.NewComponentLogger(logger, "scratch-sweeper"),
	}
}

// Run sweeps once immediately and then on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	s.Sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep performs a single pass and returns the removed directories.
func (s *Sweeper) Sweep(ctx context.Context) []string {
	if s.retention <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-s.retention)
	ids, err := s.store.TerminalBefore(ctx, cutoff)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("scratch sweep skipped",
				logging.Error(err),
				logging.String(logging.FieldEventType, "scratch_sweep_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
		}
		return nil
	}
	if len(ids) == 0 {
		return nil
	}
	result := staging.CleanStale(ctx, s.root, ids, s.retention, s.logger)
	if len(result.Removed) > 0 || len(result.Errors) > 0 {
		s.logger.Info("scratch sweep finished",
			logging.Int("removed", len(result.Removed)),
			logging.Int("failed", len(result.Errors)),
			logging.String(logging.FieldEventType, "scratch_sweep"),
		)
	}
	return result.Removed
}
