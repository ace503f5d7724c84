package testsupport

import (
	"context"
	"sync"

	"stratos/internal/notifications"
)

// RecordingPublisher captures published events. Err, when set, is returned from
// every Publish after the event is recorded.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []notifications.Event
	Err    error
}

func (r *RecordingPublisher) Publish(_ context.Context, event notifications.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.Err
}

func (r *RecordingPublisher) Close() error { return nil }

// Events returns a copy of everything published so far.
func (r *RecordingPublisher) Events() []notifications.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notifications.Event(nil), r.events...)
}

// OfType filters recorded events by type.
func (r *RecordingPublisher) OfType(kind notifications.EventType) []notifications.Event {
	var out []notifications.Event
	for _, e := range r.Events() {
		if e.Type == kind {
			out = append(out, e)
		}
	}
	return out
}

// ProgressValues returns the progress checkpoints in publish order.
func (r *RecordingPublisher) ProgressValues() []float64 {
	var out []float64
	for _, e := range r.OfType(notifications.EventProgress) {
		out = append(out, e.Progress)
	}
	return out
}
