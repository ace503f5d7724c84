package testsupport

import (
	"context"
	"path/filepath"
	"testing"

	"stratos/internal/config"
	"stratos/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewTask creates a pending task referencing the given input paths.
func NewTask(t testing.TB, store *queue.Store, command string, options map[string]any, paths ...string) *queue.Task {
	t.Helper()

	files := make([]queue.File, 0, len(paths))
	for _, p := range paths {
		files = append(files, queue.File{FilePath: p, FileName: filepath.Base(p)})
	}
	task, err := store.NewTask(context.Background(), command, options, files)
	if err != nil {
		t.Fatalf("store.NewTask: %v", err)
	}
	return task
}
