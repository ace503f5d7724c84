package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"stratos/internal/config"
	"stratos/internal/logging"
	"stratos/internal/services"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Format = "json"

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello", logging.String("k", "v"))

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "stratos.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &entry); err != nil {
		t.Fatalf("decode json log %q: %v", content, err)
	}
	if entry["msg"] != "hello" || entry["k"] != "v" || entry["level"] != "info" {
		t.Fatalf("unexpected entry %v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", entry)
	}
}

func TestConsoleLoggerSourceDependsOnLevel(t *testing.T) {
	cases := []struct {
		level      string
		wantSource bool
	}{
		{"info", false},
		{"debug", true},
	}
	for _, tc := range cases {
		t.Run(tc.level, func(t *testing.T) {
			logPath := filepath.Join(t.TempDir(), "console.log")
			logger, err := logging.New(logging.Options{Format: "console", Level: tc.level, OutputPaths: []string{logPath}})
			if err != nil {
				t.Fatalf("New returned error: %v", err)
			}
			logger.Info("message")

			content, err := os.ReadFile(logPath)
			if err != nil {
				t.Fatalf("read log file: %v", err)
			}
			if got := strings.Contains(string(content), ".go:"); got != tc.wantSource {
				t.Fatalf("source present = %v, want %v: %q", got, tc.wantSource, content)
			}
			if strings.Contains(string(content), "\x1b[") {
				t.Fatalf("expected no colour codes in file output: %q", content)
			}
		})
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithTaskID(ctx, "t1")
	ctx = services.WithCommand(ctx, "subtitle")
	ctx = services.WithStage(ctx, "burn_subtitles")
	ctx = services.WithRequestID(ctx, "req-xyz")

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logging.WithContext(ctx, logger).Info("contextual log")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := map[string]string{
		logging.FieldTaskID:        "t1",
		logging.FieldCommand:       "subtitle",
		logging.FieldStage:         "burn_subtitles",
		logging.FieldCorrelationID: "req-xyz",
	}
	for key, value := range want {
		if entry[key] != value {
			t.Fatalf("field %s = %v, want %q", key, entry[key], value)
		}
	}
}

func TestFailureAttrs(t *testing.T) {
	err := services.Wrap(services.ErrPreparationFailed, "fpsboost", "normalize", "", errors.New("exit 1"))
	attrs := logging.FailureAttrs(err)
	got := map[string]string{}
	for _, a := range attrs {
		got[a.Key] = a.Value.String()
	}
	if got[logging.FieldErrorKind] != "preparation_failed" {
		t.Fatalf("unexpected kind %q", got[logging.FieldErrorKind])
	}
	if got["failed_stage"] != "fpsboost" || got["failed_operation"] != "normalize" {
		t.Fatalf("unexpected attrs %v", got)
	}
	if logging.FailureAttrs(nil) != nil {
		t.Fatal("expected nil attrs for nil error")
	}
}
