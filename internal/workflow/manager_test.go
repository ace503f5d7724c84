package workflow_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"stratos/internal/logging"
	"stratos/internal/pipeline"
	"stratos/internal/queue"
	"stratos/internal/services"
	"stratos/internal/testsupport"
	"stratos/internal/workflow"
)

// stubRunner completes every task it is handed and records the commands.
type stubRunner struct {
	store *queue.Store
	err   error

	mu    sync.Mutex
	seen  map[string]pipeline.ParsedCommand
	block chan struct{}
}

func newStubRunner(store *queue.Store) *stubRunner {
	return &stubRunner{store: store, seen: make(map[string]pipeline.ParsedCommand)}
}

func (s *stubRunner) Run(ctx context.Context, taskID string, cmd pipeline.ParsedCommand) pipeline.Outcome {
	s.mu.Lock()
	s.seen[taskID] = cmd
	block := s.block
	s.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
		}
	}
	if s.err != nil {
		_ = s.store.MarkFailed(context.Background(), taskID, s.err.Error())
		return pipeline.Outcome{Status: queue.StatusFailed, Err: s.err}
	}
	_ = s.store.MarkCompleted(context.Background(), taskID, "/out/"+taskID)
	return pipeline.Outcome{Status: queue.StatusCompleted, ResultPath: "/out/" + taskID}
}

func (s *stubRunner) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

func (s *stubRunner) command(id string) pipeline.ParsedCommand {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen[id]
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestManagerProcessesPendingTasks(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWorkers(2))
	store := testsupport.MustOpenStore(t, cfg)
	runner := newStubRunner(store)

	first := testsupport.NewTask(t, store, "Transcribe", map[string]any{"language": "en"}, "/uploads/a.mov")
	second := testsupport.NewTask(t, store, "slowmotion", nil, "/uploads/b.mov")

	mgr, err := workflow.NewManager(cfg, store, runner, logging.NewNop(), workflow.WithPollInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer mgr.Stop()

	waitFor(t, "both tasks", func() bool { return runner.count() == 2 })

	if got := runner.command(first.ID); got.Command != pipeline.CommandTranscribe || got.String("language", "") != "en" {
		t.Fatalf("unexpected parsed command %+v", got)
	}
	for _, id := range []string{first.ID, second.ID} {
		task, err := store.GetByID(context.Background(), id)
		if err != nil || task.Status != queue.StatusCompleted {
			t.Fatalf("task %s not completed: %+v, %v", id, task, err)
		}
	}

	status := mgr.Status(context.Background())
	if !status.Running || status.Workers != 2 {
		t.Fatalf("unexpected status %+v", status)
	}
	if status.QueueStats[queue.StatusCompleted] != 2 {
		t.Fatalf("unexpected queue stats %+v", status.QueueStats)
	}
}

func TestManagerStartResetsInterruptedTasks(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWorkers(1))
	store := testsupport.MustOpenStore(t, cfg)
	task := testsupport.NewTask(t, store, "fpsboost", nil, "/uploads/a.mov")
	if err := store.MarkProcessing(context.Background(), task.ID); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}

	runner := newStubRunner(store)
	mgr, err := workflow.NewManager(cfg, store, runner, logging.NewNop(), workflow.WithPollInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer mgr.Stop()

	waitFor(t, "reset task to run", func() bool { return runner.count() == 1 })
}

func TestManagerRecordsLastError(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWorkers(1))
	store := testsupport.MustOpenStore(t, cfg)
	runner := newStubRunner(store)
	runner.err = services.Wrap(services.ErrInferenceFailed, "inference", "transcribe", "backend unavailable", nil)
	task := testsupport.NewTask(t, store, "transcribe", nil, "/uploads/a.mov")

	mgr, err := workflow.NewManager(cfg, store, runner, logging.NewNop(), workflow.WithPollInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer mgr.Stop()

	waitFor(t, "last error", func() bool { return mgr.Status(context.Background()).LastError != "" })
	status := mgr.Status(context.Background())
	if status.LastTaskID != task.ID {
		t.Fatalf("LastTaskID = %q, want %q", status.LastTaskID, task.ID)
	}
}

func TestManagerStopWaitsForWorkers(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWorkers(1))
	store := testsupport.MustOpenStore(t, cfg)
	runner := newStubRunner(store)
	runner.block = make(chan struct{})
	task := testsupport.NewTask(t, store, "subtitle", nil, "/uploads/a.mov")

	mgr, err := workflow.NewManager(cfg, store, runner, logging.NewNop(), workflow.WithPollInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := mgr.Start(context.Background()); err == nil {
		t.Fatal("expected second Start to fail")
	}

	waitFor(t, "active task", func() bool {
		active := mgr.Status(context.Background()).Active
		return len(active) == 1 && active[0].ID == task.ID && active[0].Command == "subtitle"
	})

	done := make(chan struct{})
	go func() {
		mgr.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return after cancellation")
	}
	if mgr.Status(context.Background()).Running {
		t.Fatal("expected manager to report stopped")
	}
}

func TestNewManagerRequiresRunner(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	if _, err := workflow.NewManager(cfg, store, nil, nil); err == nil {
		t.Fatal("expected error without runner")
	}
}

type failingLister struct{}

func (failingLister) TerminalBefore(context.Context, time.Time) ([]string, error) {
	return nil, errors.New("database is locked")
}

func TestSweeperRemovesOnlyOldTerminalScratch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	done := testsupport.NewTask(t, store, "transcribe", nil, "/uploads/a.mov")
	pending := testsupport.NewTask(t, store, "transcribe", nil, "/uploads/b.mov")
	if err := store.MarkCompleted(ctx, done.ID, "/out/a.txt"); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}

	old := time.Now().Add(-72 * time.Hour)
	for _, id := range []string{done.ID, pending.ID} {
		dir := filepath.Join(cfg.Paths.OutputDir, id)
		testsupport.WriteFile(t, filepath.Join(dir, "artifact.txt"), 8)
		if err := os.Chtimes(dir, old, old); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	// Retention is measured against the task's updated_at, which is now, so
	// a zero-length window is needed for the completed task to qualify.
	sweeper := workflow.NewSweeper(store, cfg.Paths.OutputDir, time.Nanosecond, time.Hour, logging.NewNop())
	time.Sleep(5 * time.Millisecond)
	removed := sweeper.Sweep(ctx)
	if len(removed) != 1 {
		t.Fatalf("expected one removal, got %v", removed)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.OutputDir, done.ID)); !os.IsNotExist(err) {
		t.Fatalf("completed task scratch should be gone: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.OutputDir, pending.ID)); err != nil {
		t.Fatalf("pending task scratch should remain: %v", err)
	}

	if got := workflow.NewSweeper(failingLister{}, cfg.Paths.OutputDir, time.Hour, 0, nil).Sweep(ctx); got != nil {
		t.Fatalf("expected nil on store error, got %v", got)
	}
}
