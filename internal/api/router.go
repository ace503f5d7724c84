package api

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"stratos/internal/logging"
	"stratos/internal/services"
)

// RequestIDHeader carries the correlation id in both directions.
const RequestIDHeader = "X-Request-Id"

// StatusProvider reports daemon runtime state.
type StatusProvider interface {
	APIStatus(ctx context.Context) DaemonStatus
}

// Server holds the HTTP handlers.
type Server struct {
	tasks  *TaskService
	status StatusProvider
	logger *slog.Logger
}

// NewServer builds handlers around svc. status may be nil.
func NewServer(svc *TaskService, status StatusProvider, logger *slog.Logger) *Server {
	return &Server{
		tasks:  svc,
		status: status,
		logger: logging.NewComponentLogger(logger, "api"),
	}
}

// Router returns the chi router for the API.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.middlewareRequestLog)
	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/tasks", s.handleListTasks)
		r.Post("/tasks", s.handleSubmitTask)
		r.Get("/tasks/{id}", s.handleGetTask)
		r.Post("/tasks/{id}/retry", s.handleRetryTask)
	})
	return r
}

func (s *Server) middlewareRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)
		ctx := services.WithRequestID(r.Context(), requestID)
		logger := logging.WithContext(ctx, s.logger).With(
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
		)
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()

		defer func() {
			if recovered := recover(); recovered != nil {
				logger.Error("panic in handler",
					logging.Any("panic", recovered),
					logging.String("stack", string(debug.Stack())),
					logging.String(logging.FieldEventType, "api_panic"),
				)
				if recorder.status == 0 {
					writeJSON(recorder, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
				}
			}
			status := recorder.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debug("request",
				logging.Int("status", status),
				logging.Duration("duration", time.Since(start)),
			)
		}()

		next.ServeHTTP(recorder, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(p)
}
