package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// MarkProcessing records that a run has started. Result and error from a
// previous run are cleared.
func (s *Store) MarkProcessing(ctx context.Context, id string) error {
	return s.updateOne(ctx, "mark processing",
		`UPDATE tasks
         SET status = ?, result_path = NULL, error_message = NULL,
             progress = 0, progress_message = NULL, updated_at = ?
         WHERE id = ?`,
		StatusProcessing, timestamp(time.Now()), id,
	)
}

// MarkCompleted records a successful run and its result path.
func (s *Store) MarkCompleted(ctx context.Context, id, resultPath string) error {
	return s.updateOne(ctx, "mark completed",
		`UPDATE tasks
         SET status = ?, result_path = ?, error_message = NULL, progress = 1, updated_at = ?
         WHERE id = ?`,
		StatusCompleted, nullableString(resultPath), timestamp(time.Now()), id,
	)
}

// MarkFailed records a failed run. Any result path is removed so a failed task
// never advertises an artifact.
func (s *Store) MarkFailed(ctx context.Context, id, message string) error {
	return s.updateOne(ctx, "mark failed",
		`UPDATE tasks
         SET status = ?, result_path = NULL, error_message = ?, updated_at = ?
         WHERE id = ?`,
		StatusFailed, nullableString(message), timestamp(time.Now()), id,
	)
}

// UpdateProgress stores the latest advisory progress checkpoint.
func (s *Store) UpdateProgress(ctx context.Context, id string, progress float64, message string) error {
	return s.updateOne(ctx, "update progress",
		`UPDATE tasks SET progress = ?, progress_message = ?, updated_at = ? WHERE id = ?`,
		progress, nullableString(message), timestamp(time.Now()), id,
	)
}

// ClaimNextPending atomically moves the oldest pending task to processing and
// returns it. It returns (nil, nil) when nothing is pending.
func (s *Store) ClaimNextPending(ctx context.Context) (*Task, error) {
	ctx = ensureContext(ctx)
	var claimed string
	err := retryOnBusy(ctx, func() error {
		row := s.db.QueryRowContext(ctx,
			`UPDATE tasks
             SET status = ?, progress_message = 'Claimed by worker', updated_at = ?
             WHERE id = (SELECT id FROM tasks WHERE status = ? ORDER BY created_at, id LIMIT 1)
               AND status = ?
             RETURNING id`,
			StatusProcessing, timestamp(time.Now()), StatusPending, StatusPending,
		)
		return row.Scan(&claimed)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim pending task: %w", err)
	}
	return s.GetByID(ctx, claimed)
}

// ResetProcessing returns tasks left in processing by an interrupted daemon
// back to pending.
func (s *Store) ResetProcessing(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE tasks
         SET status = ?, progress = 0, progress_message = ?, updated_at = ?
         WHERE status = ?`,
		StatusPending, DaemonStopReason, timestamp(time.Now()), StatusProcessing,
	)
	if err != nil {
		return 0, fmt.Errorf("reset processing tasks: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed moves failed tasks back to pending. With no ids every failed
// task is retried.
func (s *Store) RetryFailed(ctx context.Context, ids ...string) (int64, error) {
	query := `UPDATE tasks
        SET status = ?, progress = 0, progress_message = 'Retry requested',
            error_message = NULL, result_path = NULL, updated_at = ?
        WHERE status = ?`
	args := []any{StatusPending, timestamp(time.Now()), StatusFailed}
	if len(ids) > 0 {
		query += ` AND id IN (` + makePlaceholders(len(ids)) + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry failed tasks: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) updateOne(ctx context.Context, op, query string, args ...any) error {
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}
