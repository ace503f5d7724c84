package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by mutations addressed at an unknown task.
var ErrNotFound = errors.New("task not found")

// NewTask persists a pending task and links files in the given order. Files
// without an ID receive one; a blank FileName defaults to the path base name.
func (s *Store) NewTask(ctx context.Context, command string, options map[string]any, files []File) (*Task, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return nil, errors.New("command is required")
	}
	optionsJSON, err := encodeOptions(options)
	if err != nil {
		return nil, fmt.Errorf("marshal options: %w", err)
	}

	ctx = ensureContext(ctx)
	id := uuid.NewString()
	now := timestamp(time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin task tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO tasks (id, command, options_json, status, progress, created_at, updated_at)
         VALUES (?, ?, ?, ?, 0, ?, ?)`,
		id, command, optionsJSON, StatusPending, now, now,
	); err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}

	for ordinal, file := range files {
		if strings.TrimSpace(file.FilePath) == "" {
			return nil, fmt.Errorf("file %d: path is required", ordinal)
		}
		if file.ID == "" {
			file.ID = uuid.NewString()
		}
		if file.FileName == "" {
			file.FileName = filepath.Base(file.FilePath)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO files (id, file_path, file_name, mime_type, created_at)
             VALUES (?, ?, ?, ?, ?)
             ON CONFLICT(id) DO NOTHING`,
			file.ID, file.FilePath, file.FileName, nullableString(file.MimeType), now,
		); err != nil {
			return nil, fmt.Errorf("insert file %s: %w", file.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO task_files (task_id, file_id, ordinal) VALUES (?, ?, ?)`,
			id, file.ID, ordinal,
		); err != nil {
			return nil, fmt.Errorf("link file %s: %w", file.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit task: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a task by identifier. A missing task yields (nil, nil).
func (s *Store) GetByID(ctx context.Context, id string) (*Task, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// FilesForTask returns the files linked to a task in submission order.
// Pipelines consume only the first entry.
func (s *Store) FilesForTask(ctx context.Context, taskID string) ([]File, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+fileColumns+`
         FROM task_files tf JOIN files f ON f.id = tf.file_id
         WHERE tf.task_id = ?
         ORDER BY tf.ordinal`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("list task files: %w", err)
	}
	defer rows.Close()

	var files []File
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task file: %w", err)
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

// List returns tasks filtered by status, oldest first. No statuses lists all.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// TerminalBefore returns ids of completed or failed tasks last updated before cutoff.
func (s *Store) TerminalBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT id FROM tasks WHERE status IN (?, ?) AND updated_at < ?`,
		StatusCompleted, StatusFailed, timestamp(cutoff),
	)
	if err != nil {
		return nil, fmt.Errorf("list terminal tasks: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
