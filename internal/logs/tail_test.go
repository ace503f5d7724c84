package logs

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"
)

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stratos.log")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func TestReadLastLines(t *testing.T) {
	path := writeLog(t, "a\nb\nc\n")

	chunk, err := Read(path, Options{Offset: -1, Limit: 2})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !slices.Equal(chunk.Lines, []string{"b", "c"}) {
		t.Fatalf("lines = %#v", chunk.Lines)
	}
	if chunk.Offset != 6 {
		t.Fatalf("offset = %d, want 6", chunk.Offset)
	}
}

func TestReadFiltersByTask(t *testing.T) {
	path := writeLog(t, "task_id=t1 start\ntask_id=t2 start\ntask_id=t1 done\n")

	chunk, err := Read(path, Options{Offset: -1, Limit: 10, TaskID: "t1"})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !slices.Equal(chunk.Lines, []string{"task_id=t1 start", "task_id=t1 done"}) {
		t.Fatalf("lines = %#v", chunk.Lines)
	}
}

func TestReadHoldsPartialLine(t *testing.T) {
	path := writeLog(t, "one\ntw")

	chunk, err := Read(path, Options{Offset: 0})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !slices.Equal(chunk.Lines, []string{"one"}) || chunk.Offset != 4 {
		t.Fatalf("chunk = %+v", chunk)
	}
}

func TestReadMissingFile(t *testing.T) {
	chunk, err := Read(filepath.Join(t.TempDir(), "absent.log"), Options{Offset: -1, Limit: 5})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(chunk.Lines) != 0 || chunk.Offset != 0 {
		t.Fatalf("chunk = %+v", chunk)
	}
}

func TestFollowEmitsAppendedLines(t *testing.T) {
	path := writeLog(t, "start\n")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []string
	done := make(chan error, 1)
	go func() {
		done <- Follow(ctx, path, 6, "", func(line string) {
			mu.Lock()
			got = append(got, line)
			mu.Unlock()
		})
	}()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := f.WriteString("next\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	f.Close()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Follow: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if !slices.Equal(got, []string{"next"}) {
		t.Fatalf("got %#v", got)
	}
}
