package workflow

import (
	"context"
	"sort"

	"stratos/internal/logging"
	"stratos/internal/queue"
)

// ActiveTask identifies a task a worker is currently running.
type ActiveTask struct {
	ID      string `json:"id"`
	Command string `json:"command"`
}

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running    bool                 `json:"running"`
	Workers    int                  `json:"workers"`
	Active     []ActiveTask         `json:"active"`
	LastError  string               `json:"last_error,omitempty"`
	LastTaskID string               `json:"last_task_id,omitempty"`
	QueueStats map[queue.Status]int `json:"queue_stats"`
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	summary := StatusSummary{
		Running:    m.running,
		Workers:    m.workers,
		LastTaskID: m.lastTaskID,
		Active:     make([]ActiveTask, 0, len(m.active)),
	}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	for id, command := range m.active {
		summary.Active = append(summary.Active, ActiveTask{ID: id, Command: command})
	}
	m.mu.RUnlock()

	sort.Slice(summary.Active, func(i, j int) bool { return summary.Active[i].ID < summary.Active[j].ID })

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read queue stats",
			logging.Error(err),
			logging.String(logging.FieldEventType, "queue_stats_failed"),
		)
	}
	summary.QueueStats = stats
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastTask(id string) {
	m.mu.Lock()
	m.lastTaskID = id
	m.mu.Unlock()
}

func (m *Manager) trackActive(id, command string) {
	m.mu.Lock()
	m.active[id] = command
	m.mu.Unlock()
}

func (m *Manager) untrackActive(id string) {
	m.mu.Lock()
	delete(m.active, id)
	m.mu.Unlock()
}
