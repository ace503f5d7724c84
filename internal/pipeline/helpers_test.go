package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"stratos/internal/config"
	"stratos/internal/logging"
	"stratos/internal/queue"
	"stratos/internal/services/inference"
	"stratos/internal/staging"
	"stratos/internal/testsupport"
)

// fakeTranscoder writes a small file to every destination unless the stage is
// configured to fail.
type fakeTranscoder struct {
	mu    sync.Mutex
	fail  map[string]error
	calls []string
	// after runs once a stage has written its output.
	after func(stage, dest string)
}

func (f *fakeTranscoder) stage(name, dest string) error {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	err := f.fail[name]
	f.mu.Unlock()
	if err != nil {
		return err
	}
	if err := os.WriteFile(dest, []byte(name), 0o644); err != nil {
		return err
	}
	if f.after != nil {
		f.after(name, dest)
	}
	return nil
}

func (f *fakeTranscoder) ExtractAudio(_ context.Context, _, dest string) error {
	return f.stage("extract_audio", dest)
}

func (f *fakeTranscoder) Normalize(_ context.Context, _, dest string) error {
	return f.stage("normalize", dest)
}

func (f *fakeTranscoder) SubtitleToASS(_ context.Context, _, dest string) error {
	return f.stage("subtitle_to_ass", dest)
}

func (f *fakeTranscoder) BurnSubtitles(_ context.Context, _, _, dest string) error {
	return f.stage("burn_subtitles", dest)
}

// fakeInference writes the expected output and records requests. hook runs
// before the output is written.
type fakeInference struct {
	mu       sync.Mutex
	requests []inference.Request
	err      error
	hook     func(req inference.Request)
}

func (f *fakeInference) Run(_ context.Context, req inference.Request) (inference.Result, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.hook != nil {
		f.hook(req)
	}
	if f.err != nil {
		return inference.Result{}, f.err
	}
	if err := os.WriteFile(req.ExpectedOutput, []byte(req.Operation), 0o644); err != nil {
		return inference.Result{}, err
	}
	return inference.Result{OutputPath: req.ExpectedOutput}, nil
}

type harness struct {
	cfg        *config.Config
	store      *queue.Store
	transcoder *fakeTranscoder
	inference  *fakeInference
	publisher  *testsupport.RecordingPublisher
	locker     *Locker
	orch       *Orchestrator
	uploads    string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	h := &harness{
		cfg:        cfg,
		store:      testsupport.MustOpenStore(t, cfg),
		transcoder: &fakeTranscoder{fail: map[string]error{}},
		inference:  &fakeInference{},
		publisher:  &testsupport.RecordingPublisher{},
		locker:     NewLocker(cfg.TaskLockDir()),
		uploads:    filepath.Join(testsupport.BaseDir(cfg), "uploads"),
	}
	if err := os.MkdirAll(h.uploads, 0o755); err != nil {
		t.Fatalf("mkdir uploads: %v", err)
	}
	orch, err := NewOrchestrator(Deps{
		Store:      h.store,
		Workspace:  staging.New(cfg.Paths.OutputDir, logging.NewNop()),
		Transcoder: h.transcoder,
		Inference:  h.inference,
		Publisher:  h.publisher,
		Locker:     h.locker,
		Logger:     logging.NewNop(),
	})
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	h.orch = orch
	return h
}

// submit creates a task whose single input is an upload named fileName.
func (h *harness) submit(t *testing.T, command, fileName string, options map[string]any) *queue.Task {
	t.Helper()
	input := filepath.Join(h.uploads, fileName)
	testsupport.WriteFile(t, input, 16)
	return testsupport.NewTask(t, h.store, command, options, input)
}

func (h *harness) run(t *testing.T, task *queue.Task) (Outcome, *queue.Task) {
	t.Helper()
	outcome := h.orch.Run(context.Background(), task.ID, ParseCommand(task.Command, task.Options))
	got, err := h.store.GetByID(context.Background(), task.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: %v", err)
	}
	return outcome, got
}

func (h *harness) scratchDir(task *queue.Task) string {
	return filepath.Join(h.cfg.Paths.OutputDir, task.ID)
}

func assertIncreasing(t *testing.T, values []float64) {
	t.Helper()
	for i := 1; i < len(values); i++ {
		if values[i] <= values[i-1] {
			t.Fatalf("progress not strictly increasing: %v", values)
		}
	}
}

var errBoom = errors.New("boom")
