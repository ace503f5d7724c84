package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"stratos/internal/config"
	"stratos/internal/deps"
	"stratos/internal/services/inference"
)

// CheckInference verifies that the inference backend answers HTTP requests.
// It uses a 10-second timeout and a single attempt.
func CheckInference(ctx context.Context, baseURL string) Result {
	const name = "Inference backend"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client := inference.NewClient(base, inference.WithTimeout(10*time.Second), inference.WithRetryMaxAttempts(1))
	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeInferenceError(base, err)}
	}
	return Result{Name: name, Passed: true, Detail: base + " (reachable)"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the binaries required by the configured pipelines.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return []deps.Status{deps.CheckFFmpeg(cfg.FFmpegBinary())}
}

func summarizeInferenceError(base string, err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return base + " (health check timed out)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return base + " (health check timed out)"
	}
	return fmt.Sprintf("%s (unreachable: %v)", base, err)
}
