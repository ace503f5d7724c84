package api

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"stratos/internal/queue"
	"stratos/internal/testsupport"
)

func newService(t *testing.T) (*TaskService, *queue.Store, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	uploads := filepath.Join(testsupport.BaseDir(cfg), "uploads")
	return NewTaskService(store), store, uploads
}

func TestSubmitNormalizesAndPersists(t *testing.T) {
	svc, store, uploads := newService(t)
	input := filepath.Join(uploads, "clip.mov")
	testsupport.WriteFile(t, input, 32)

	task, err := svc.Submit(context.Background(), SubmitRequest{
		Command: "  Transcribe ",
		Options: map[string]any{"language": "en", "format": "srt"},
		Files:   []SubmitFile{{Path: input + "/.", MimeType: "video/quicktime"}},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if task.Command != "transcribe" || task.Status != string(queue.StatusPending) {
		t.Fatalf("unexpected task %+v", task)
	}
	if len(task.Files) != 1 || task.Files[0].Path != input || task.Files[0].Name != "clip.mov" {
		t.Fatalf("unexpected files %+v", task.Files)
	}

	stored, err := store.GetByID(context.Background(), task.ID)
	if err != nil || stored == nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Options["format"] != "srt" {
		t.Fatalf("options not persisted: %+v", stored.Options)
	}
}

func TestSubmitValidation(t *testing.T) {
	svc, _, uploads := newService(t)
	existing := filepath.Join(uploads, "a.mp4")
	testsupport.WriteFile(t, existing, 8)

	tests := []struct {
		name  string
		req   SubmitRequest
		field string
	}{
		{"missing command", SubmitRequest{Files: []SubmitFile{{Path: existing}}}, "command"},
		{"unknown command", SubmitRequest{Command: "colorize", Files: []SubmitFile{{Path: existing}}}, "command"},
		{"no files", SubmitRequest{Command: "subtitle"}, "files"},
		{"relative path", SubmitRequest{Command: "subtitle", Files: []SubmitFile{{Path: "a.mp4"}}}, "files[0].path"},
		{"missing file", SubmitRequest{Command: "subtitle", Files: []SubmitFile{{Path: filepath.Join(uploads, "nope.mp4")}}}, "files[0].path"},
		{"format with path", SubmitRequest{Command: "subtitle", Options: map[string]any{"format": "mp4/../../../burned"}, Files: []SubmitFile{{Path: existing}}}, "options.format"},
		{"format with dot", SubmitRequest{Command: "transcribe", Options: map[string]any{"format": ".."}, Files: []SubmitFile{{Path: existing}}}, "options.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Submit(context.Background(), tt.req)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if _, ok := verr.Issues[tt.field]; !ok {
				t.Fatalf("expected issue for %q, got %v", tt.field, verr.Issues)
			}
		})
	}
}

func TestRetryOnlyFailedTasks(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()
	task := testsupport.NewTask(t, store, "slowmotion", nil, "/uploads/a.mov")

	if _, err := svc.Retry(ctx, task.ID); !errors.Is(err, ErrNotRetryable) {
		t.Fatalf("expected ErrNotRetryable for pending task, got %v", err)
	}
	if _, err := svc.Retry(ctx, "missing"); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}

	if err := store.MarkFailed(ctx, task.ID, "inference backend unavailable"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	retried, err := svc.Retry(ctx, task.ID)
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if retried.Status != string(queue.StatusPending) || retried.Error != "" {
		t.Fatalf("unexpected retried task %+v", retried)
	}
}

func TestStatsZeroFilled(t *testing.T) {
	svc, store, _ := newService(t)
	testsupport.NewTask(t, store, "fpsboost", nil, "/uploads/a.mov")

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats["pending"] != 1 || stats["failed"] != 0 || len(stats) != len(queue.AllStatuses()) {
		t.Fatalf("unexpected stats %v", stats)
	}
}
