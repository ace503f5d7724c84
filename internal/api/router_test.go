package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"stratos/internal/logging"
	"stratos/internal/queue"
	"stratos/internal/testsupport"
)

type fixedStatus struct{ status DaemonStatus }

func (f fixedStatus) APIStatus(context.Context) DaemonStatus { return f.status }

func newTestServer(t *testing.T) (*httptest.Server, *queue.Store, string) {
	t.Helper()
	svc, store, uploads := newService(t)
	srv := NewServer(svc, fixedStatus{DaemonStatus{Running: true, PID: 42}}, logging.NewNop())
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, store, uploads
}

func doJSON(t *testing.T, method, url string, body any, out any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	return resp
}

func TestSubmitAndFetchTask(t *testing.T) {
	ts, _, uploads := newTestServer(t)
	input := filepath.Join(uploads, "clip.mp4")
	testsupport.WriteFile(t, input, 64)

	var created TaskResponse
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/tasks", map[string]any{
		"command": "subtitle",
		"options": map[string]any{"language": "en"},
		"files":   []map[string]any{{"path": input}},
	}, &created)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get(RequestIDHeader) == "" {
		t.Fatal("expected request id header")
	}

	var fetched TaskResponse
	resp = doJSON(t, http.MethodGet, ts.URL+"/api/tasks/"+created.Task.ID, nil, &fetched)
	if resp.StatusCode != http.StatusOK || fetched.Task.ID != created.Task.ID {
		t.Fatalf("unexpected fetch %d %+v", resp.StatusCode, fetched)
	}

	var list TaskListResponse
	resp = doJSON(t, http.MethodGet, ts.URL+"/api/tasks?status=pending", nil, &list)
	if resp.StatusCode != http.StatusOK || len(list.Tasks) != 1 {
		t.Fatalf("unexpected list %d %+v", resp.StatusCode, list)
	}
	resp = doJSON(t, http.MethodGet, ts.URL+"/api/tasks?status=completed,failed", nil, &list)
	if resp.StatusCode != http.StatusOK || len(list.Tasks) != 0 {
		t.Fatalf("expected empty terminal list, got %d %+v", resp.StatusCode, list)
	}
}

func TestRequestIDPropagates(t *testing.T) {
	ts, _, _ := newTestServer(t)
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/status", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get(RequestIDHeader); got != "req-123" {
		t.Fatalf("request id = %q", got)
	}
	var status DaemonStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !status.Running || status.PID != 42 {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestErrorResponses(t *testing.T) {
	ts, store, _ := newTestServer(t)
	pending := testsupport.NewTask(t, store, "transcribe", nil, "/uploads/a.mov")

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"unknown task", http.MethodGet, "/api/tasks/missing", nil, http.StatusNotFound},
		{"bad status filter", http.MethodGet, "/api/tasks?status=running", nil, http.StatusBadRequest},
		{"invalid submission", http.MethodPost, "/api/tasks", map[string]any{"command": "colorize"}, http.StatusBadRequest},
		{"retry missing", http.MethodPost, "/api/tasks/missing/retry", nil, http.StatusNotFound},
		{"retry pending", http.MethodPost, "/api/tasks/" + pending.ID + "/retry", nil, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var payload ErrorResponse
			resp := doJSON(t, tt.method, ts.URL+tt.path, tt.body, &payload)
			if resp.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.want)
			}
			if payload.Error == "" {
				t.Fatal("expected error message")
			}
		})
	}
}

func TestSubmitRejectsMalformedJSON(t *testing.T) {
	ts, _, _ := newTestServer(t)
	resp, err := http.Post(ts.URL+"/api/tasks", "application/json", bytes.NewBufferString("{"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestRetryFailedTask(t *testing.T) {
	ts, store, _ := newTestServer(t)
	task := testsupport.NewTask(t, store, "fpsboost", nil, "/uploads/a.mov")
	if err := store.MarkFailed(context.Background(), task.ID, "boom"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	var retried TaskResponse
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/tasks/"+task.ID+"/retry", nil, &retried)
	if resp.StatusCode != http.StatusOK || retried.Task.Status != "pending" {
		t.Fatalf("unexpected retry %d %+v", resp.StatusCode, retried)
	}
}
