package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"stratos/internal/logging"
	"stratos/internal/queue"
)

const maxSubmitBody = 1 << 20

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.status == nil {
		writeJSON(w, http.StatusOK, DaemonStatus{})
		return
	}
	writeJSON(w, http.StatusOK, s.status.APIStatus(r.Context()))
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	var statuses []queue.Status
	for _, value := range r.URL.Query()["status"] {
		for _, part := range strings.Split(value, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			status, ok := queue.ParseStatus(part)
			if !ok {
				writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("unknown status %q", part)})
				return
			}
			statuses = append(statuses, status)
		}
	}
	tasks, err := s.tasks.List(r.Context(), statuses...)
	if err != nil {
		s.internalError(w, r, "list tasks", err)
		return
	}
	writeJSON(w, http.StatusOK, TaskListResponse{Tasks: tasks})
}

func (s *Server) handleSubmitTask(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSubmitBody))
	if err := decoder.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON"})
		return
	}
	task, err := s.tasks.Submit(r.Context(), req)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation failed", Issues: verr.Issues})
			return
		}
		s.internalError(w, r, "submit task", err)
		return
	}
	logging.WithContext(r.Context(), s.logger).Info("task submitted",
		logging.String(logging.FieldTaskID, task.ID),
		logging.String("command", task.Command),
		logging.Int("file_count", len(task.Files)),
		logging.String(logging.FieldEventType, "task_submitted"),
	)
	writeJSON(w, http.StatusCreated, TaskResponse{Task: *task})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.tasks.Describe(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "task not found"})
			return
		}
		s.internalError(w, r, "get task", err)
		return
	}
	writeJSON(w, http.StatusOK, TaskResponse{Task: *task})
}

func (s *Server) handleRetryTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.tasks.Retry(r.Context(), chi.URLParam(r, "id"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, TaskResponse{Task: *task})
	case errors.Is(err, ErrTaskNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "task not found"})
	case errors.Is(err, ErrNotRetryable):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error()})
	default:
		s.internalError(w, r, "retry task", err)
	}
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	logging.ErrorWithContext(logging.WithContext(r.Context(), s.logger), "api request failed", "api_error",
		logging.String("operation", op),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check database health with `stratos check`"),
	)
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
