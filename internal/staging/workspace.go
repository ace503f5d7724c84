package staging

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"stratos/internal/logging"
	"stratos/internal/services"
)

// LockDirName is the reserved directory under the output root holding per-task
// lock files. It is never treated as a scratch directory.
const LockDirName = ".locks"

// Workspace manages per-task scratch directories under a single output root.
type Workspace struct {
	root   string
	logger *slog.Logger
}

// New returns a workspace rooted at root.
func New(root string, logger *slog.Logger) *Workspace {
	return &Workspace{
		root:   filepath.Clean(strings.TrimSpace(root)),
		logger: logging.NewComponentLogger(logger, "staging"),
	}
}

// Root returns the output root.
func (w *Workspace) Root() string { return w.root }

// Dir returns the scratch directory for taskID without creating it.
func (w *Workspace) Dir(taskID string) string {
	return filepath.Join(w.root, taskID)
}

// Ensure creates the scratch directory for taskID. Calling it again for the
// same task is a no-op and leaves existing contents untouched.
func (w *Workspace) Ensure(taskID string) (string, error) {
	if err := validateTaskID(taskID); err != nil {
		return "", err
	}
	dir := w.Dir(taskID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create scratch directory %s: %w", dir, err)
	}
	return dir, nil
}

// Remove deletes one intermediate artifact. A missing file is not an error.
// Any other failure is logged and returned tagged with services.ErrCleanupFailed;
// callers treat it as advisory.
func (w *Workspace) Remove(ctx context.Context, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	err := os.Remove(path)
	if err == nil {
		w.logger.DebugContext(ctx, "removed intermediate artifact", logging.String("path", path))
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		w.logger.DebugContext(ctx, "intermediate artifact already gone", logging.String("path", path))
		return nil
	}
	wrapped := services.Wrap(services.ErrCleanupFailed, "cleanup", "remove", filepath.Base(path), err)
	logging.WarnWithContext(logging.WithContext(ctx, w.logger), "failed to remove intermediate artifact", "artifact_cleanup_failed",
		logging.String("path", path),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check output_dir permissions"),
		logging.String(logging.FieldImpact, "intermediate file left in scratch directory"),
	)
	return wrapped
}

// RemoveAll attempts every path independently and joins the failures.
func (w *Workspace) RemoveAll(ctx context.Context, paths ...string) error {
	var errs []error
	for _, p := range paths {
		if err := w.Remove(ctx, p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// BaseName returns the file name of path without its extension.
func BaseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// ArtifactPath names an artifact inside dir as <base><suffix>.<ext>.
func ArtifactPath(dir, base, suffix, ext string) string {
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	name := base + suffix
	if ext != "" {
		name += "." + ext
	}
	return filepath.Join(dir, name)
}

func validateTaskID(taskID string) error {
	trimmed := strings.TrimSpace(taskID)
	switch {
	case trimmed == "":
		return errors.New("task id is empty")
	case trimmed != taskID:
		return fmt.Errorf("task id %q has surrounding whitespace", taskID)
	case strings.ContainsAny(taskID, `/\`), taskID == ".", taskID == "..", taskID == LockDirName:
		return fmt.Errorf("task id %q is not a valid directory name", taskID)
	}
	return nil
}
