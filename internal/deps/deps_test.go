package deps

import (
	"os"
	"path/filepath"
	"testing"
)

func writeStub(t *testing.T, path string, mode os.FileMode) {
	t.Helper()
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), mode); err != nil {
		t.Fatalf("write stub: %v", err)
	}
}

func TestResolveBinaryBlank(t *testing.T) {
	if _, err := resolveBinary("  "); err == nil || err.Error() != "command not configured" {
		t.Fatalf("unexpected error %v", err)
	}
	dir := t.TempDir()
	if _, err := resolveBinary(dir); err == nil {
		t.Fatal("directory should not resolve")
	}
}

func TestCheckFFmpeg(t *testing.T) {
	dir := t.TempDir()
	executable := filepath.Join(dir, "ffmpeg")
	writeStub(t, executable, 0o755)
	plain := filepath.Join(dir, "ffmpeg-noexec")
	writeStub(t, plain, 0o644)

	t.Setenv("PATH", dir)

	tests := []struct {
		name       string
		configured string
		available  bool
		command    string
	}{
		{"default from PATH", "", true, executable},
		{"absolute executable", executable, true, executable},
		{"not executable", plain, false, plain},
		{"missing absolute", filepath.Join(dir, "nope"), false, filepath.Join(dir, "nope")},
		{"missing on PATH", "ffmpeg7", false, "ffmpeg7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := CheckFFmpeg(tt.configured)
			if status.Available != tt.available {
				t.Fatalf("Available = %v (%s)", status.Available, status.Detail)
			}
			if status.Command != tt.command {
				t.Fatalf("Command = %q, want %q", status.Command, tt.command)
			}
			if !tt.available && status.Detail == "" {
				t.Fatal("expected detail for unavailable binary")
			}
		})
	}
}
