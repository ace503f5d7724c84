package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"

	"stratos/internal/services"
)

// Locker grants exclusive ownership of a task id. The in-process guard covers
// workers sharing one Orchestrator; the file lock covers separate processes
// such as the daemon and a manual `stratos run`.
type Locker struct {
	dir string

	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocker stores lock files under dir. An empty dir disables file locking.
func NewLocker(dir string) *Locker {
	return &Locker{
		dir:  strings.TrimSpace(dir),
		held: make(map[string]struct{}),
	}
}

// TryLock acquires the lock for taskID without blocking. A held lock yields an
// error tagged with services.ErrTaskBusy.
func (l *Locker) TryLock(taskID string) (func(), error) {
	if strings.TrimSpace(taskID) == "" || strings.ContainsAny(taskID, `/\`) || strings.HasPrefix(taskID, ".") {
		return nil, fmt.Errorf("invalid task id %q", taskID)
	}
	l.mu.Lock()
	if _, busy := l.held[taskID]; busy {
		l.mu.Unlock()
		return nil, services.Wrap(services.ErrTaskBusy, "lock", "acquire", "task is already running in this process", nil)
	}
	l.held[taskID] = struct{}{}
	l.mu.Unlock()

	release := func() {
		l.mu.Lock()
		delete(l.held, taskID)
		l.mu.Unlock()
	}

	if l.dir == "" {
		return release, nil
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		release()
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	fileLock := flock.New(filepath.Join(l.dir, taskID+".lock"))
	ok, err := fileLock.TryLock()
	if err != nil {
		release()
		return nil, fmt.Errorf("acquire task lock: %w", err)
	}
	if !ok {
		release()
		return nil, services.Wrap(services.ErrTaskBusy, "lock", "acquire", "task is already running in another process", nil)
	}
	return func() {
		_ = fileLock.Unlock()
		release()
	}, nil
}
