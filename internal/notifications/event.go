package notifications

import (
	"context"
	"errors"
	"time"
)

// EventType identifies a task lifecycle notification.
type EventType string

const (
	EventProgress EventType = "progress"
	EventComplete EventType = "complete"
	EventFailed   EventType = "failed"
)

// Event is the payload shared by every transport. Terminal events carry Status
// plus either ResultPath or Error.
type Event struct {
	Type       EventType `json:"type"`
	TaskID     string    `json:"task_id"`
	Command    string    `json:"command,omitempty"`
	Progress   float64   `json:"progress,omitempty"`
	Message    string    `json:"message,omitempty"`
	Status     string    `json:"status,omitempty"`
	ResultPath string    `json:"result_path,omitempty"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Publisher delivers events to one transport.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Progress builds a progress event.
func Progress(taskID, command string, progress float64, message string) Event {
	return Event{Type: EventProgress, TaskID: taskID, Command: command, Progress: progress, Message: message, Timestamp: time.Now().UTC()}
}

// Complete builds a terminal success event.
func Complete(taskID, command, resultPath string) Event {
	return Event{Type: EventComplete, TaskID: taskID, Command: command, Status: "completed", Progress: 1, ResultPath: resultPath, Timestamp: time.Now().UTC()}
}

// Failed builds a terminal failure event.
func Failed(taskID, command, errText string) Event {
	return Event{Type: EventFailed, TaskID: taskID, Command: command, Status: "failed", Error: errText, Timestamp: time.Now().UTC()}
}

// Noop discards every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }

func (Noop) Close() error { return nil }

// Fanout delivers each event to all publishers and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) Close() error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
