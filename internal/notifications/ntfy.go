package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"
)

const userAgent = "stratos/0.1.0"

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyPublisher struct {
	endpoint string
	client   *http.Client
	progress bool
}

// NewNtfy publishes human-readable messages to an ntfy topic URL. Progress
// events are dropped unless includeProgress is set.
func NewNtfy(endpoint string, timeout time.Duration, includeProgress bool) Publisher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyPublisher{
		endpoint: strings.TrimSpace(endpoint),
		client:   &http.Client{Timeout: timeout},
		progress: includeProgress,
	}
}

func (n *ntfyPublisher) Publish(ctx context.Context, event Event) error {
	data, ok := n.format(event)
	if !ok {
		return nil
	}
	return n.send(ctx, data)
}

func (n *ntfyPublisher) Close() error { return nil }

func (n *ntfyPublisher) format(event Event) (payload, bool) {
	label := strings.TrimSpace(event.Command)
	if label == "" {
		label = "task"
	}
	switch event.Type {
	case EventComplete:
		message := fmt.Sprintf("✅ %s finished: %s", label, event.TaskID)
		if event.ResultPath != "" {
			message = fmt.Sprintf("%s\nFile: %s", message, filepath.Base(event.ResultPath))
		}
		return payload{
			title:   "stratos - Task Complete",
			message: message,
			tags:    []string{"stratos", label, "completed"},
		}, true
	case EventFailed:
		errText := strings.TrimSpace(event.Error)
		if errText == "" {
			errText = "unknown"
		}
		return payload{
			title:    "stratos - Task Failed",
			message:  fmt.Sprintf("❌ %s failed (%s): %s", label, event.TaskID, errText),
			tags:     []string{"stratos", label, "error"},
			priority: "high",
		}, true
	case EventProgress:
		if !n.progress {
			return payload{}, false
		}
		message := fmt.Sprintf("%s %s: %.0f%%", label, event.TaskID, event.Progress*100)
		if msg := strings.TrimSpace(event.Message); msg != "" {
			message = fmt.Sprintf("%s - %s", message, msg)
		}
		return payload{
			title:    "stratos - Progress",
			message:  message,
			tags:     []string{"stratos", label, "progress"},
			priority: "low",
		}, true
	default:
		return payload{}, false
	}
}

func (n *ntfyPublisher) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil || n.endpoint == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
