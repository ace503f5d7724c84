package staging

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"stratos/internal/logging"
)

func makeAgedDir(t *testing.T, root, name string, age time.Duration) string {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	stamp := time.Now().Add(-age)
	if err := os.Chtimes(dir, stamp, stamp); err != nil {
		t.Fatalf("chtimes %s: %v", dir, err)
	}
	return dir
}

func TestCleanStaleInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := CleanStale(context.Background(), dir, []string{"t1"}, time.Hour, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanStaleRemovesOnlyOldTerminalDirectories(t *testing.T) {
	root := t.TempDir()

	oldDone := makeAgedDir(t, root, "done-old", 2*time.Hour)
	recentDone := makeAgedDir(t, root, "done-recent", 0)
	oldActive := makeAgedDir(t, root, "active-old", 2*time.Hour)
	locks := makeAgedDir(t, root, LockDirName, 2*time.Hour)

	result := CleanStale(context.Background(), root, []string{"done-old", "done-recent", LockDirName}, time.Hour, logging.NewNop())

	if len(result.Removed) != 1 || result.Removed[0] != oldDone {
		t.Fatalf("expected only %s removed, got %v", oldDone, result.Removed)
	}
	for _, keep := range []string{recentDone, oldActive, locks} {
		if _, err := os.Stat(keep); err != nil {
			t.Errorf("%s should still exist: %v", keep, err)
		}
	}
}

func TestCleanStaleIgnoresFiles(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "t1")
	if err := os.WriteFile(file, []byte("test"), 0o644); err != nil {
		t.Fatalf("create file: %v", err)
	}
	old := time.Now().Add(-2 * time.Hour)
	_ = os.Chtimes(file, old, old)

	result := CleanStale(context.Background(), root, []string{"t1"}, time.Hour, logging.NewNop())
	if len(result.Removed) != 0 {
		t.Fatalf("expected no removals for files, got %v", result.Removed)
	}
}

func TestCleanStaleNoTerminalTasks(t *testing.T) {
	root := t.TempDir()
	makeAgedDir(t, root, "t1", 48*time.Hour)

	result := CleanStale(context.Background(), root, nil, time.Hour, logging.NewNop())
	if len(result.Removed) != 0 {
		t.Fatalf("expected nothing removed, got %v", result.Removed)
	}
}

func TestListDirectories(t *testing.T) {
	root := t.TempDir()
	dir := makeAgedDir(t, root, "t1", 0)
	makeAgedDir(t, root, LockDirName, 0)
	if err := os.WriteFile(filepath.Join(dir, "clip-transcription.srt"), []byte("12345"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	dirs, err := ListDirectories(root)
	if err != nil {
		t.Fatalf("ListDirectories: %v", err)
	}
	if len(dirs) != 1 {
		t.Fatalf("expected 1 directory, got %d", len(dirs))
	}
	if dirs[0].TaskID != "t1" || dirs[0].Size != 5 || dirs[0].Files != 1 {
		t.Fatalf("unexpected dir info %+v", dirs[0])
	}

	missing, err := ListDirectories(filepath.Join(root, "missing"))
	if err != nil || missing != nil {
		t.Fatalf("expected nil for missing root, got %v, %v", missing, err)
	}
}
