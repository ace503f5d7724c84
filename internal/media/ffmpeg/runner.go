package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"stratos/internal/logging"
)

// DefaultBinary is used when no binary is configured.
const DefaultBinary = "ffmpeg"

// CommandRunner executes name with args and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Runner invokes ffmpeg stages.
type Runner struct {
	binary string
	run    CommandRunner
	logger *slog.Logger
}

// Option customizes a Runner.
type Option func(*Runner)

// WithCommandRunner replaces process execution (for testing).
func WithCommandRunner(run CommandRunner) Option {
	return func(r *Runner) {
		if run != nil {
			r.run = run
		}
	}
}

// WithLogger attaches a logger for stage timing.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// New returns a Runner for the given ffmpeg binary.
func New(binary string, opts ...Option) *Runner {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = DefaultBinary
	}
	r := &Runner{
		binary: binary,
		run:    execCombined,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "ffmpeg")
	return r
}

// Binary returns the executable the runner invokes.
func (r *Runner) Binary() string { return r.binary }

func execCombined(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	return cmd.CombinedOutput()
}

// ExtractAudio writes a mono 16 kHz signed 16-bit PCM track of source to dest.
func (r *Runner) ExtractAudio(ctx context.Context, source, dest string) error {
	return r.invoke(ctx, "extract_audio", source, dest,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
	)
}

// Normalize re-encodes source into an H.264/AAC container at dest.
func (r *Runner) Normalize(ctx context.Context, source, dest string) error {
	return r.invoke(ctx, "normalize", source, dest,
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "23",
		"-c:a", "aac",
		"-b:a", "128k",
	)
}

// SubtitleToASS converts a subtitle track into the styled ASS overlay format.
func (r *Runner) SubtitleToASS(ctx context.Context, source, dest string) error {
	return r.invoke(ctx, "subtitle_to_ass", source, dest)
}

// BurnSubtitles renders the ASS overlay into video, copying the audio stream.
func (r *Runner) BurnSubtitles(ctx context.Context, video, overlay, dest string) error {
	if strings.TrimSpace(overlay) == "" {
		return errors.New("burn subtitles: overlay path required")
	}
	return r.invoke(ctx, "burn_subtitles", video, dest,
		"-vf", "ass="+escapeFilterPath(overlay),
		"-c:v", "libx264",
		"-crf", "23",
		"-preset", "fast",
		"-c:a", "copy",
	)
}

func (r *Runner) invoke(ctx context.Context, op, source, dest string, codecArgs ...string) error {
	source = strings.TrimSpace(source)
	dest = strings.TrimSpace(dest)
	if source == "" || dest == "" {
		return fmt.Errorf("ffmpeg %s: source and destination required", op)
	}
	if source == dest {
		return fmt.Errorf("ffmpeg %s: destination would overwrite source %s", op, source)
	}

	args := make([]string, 0, len(codecArgs)+8)
	args = append(args, "-y", "-hide_banner", "-loglevel", "error", "-i", source)
	args = append(args, codecArgs...)
	args = append(args, dest)

	start := time.Now()
	output, err := r.run(ctx, r.binary, args...)
	if err != nil {
		detail := strings.TrimSpace(string(output))
		if detail == "" {
			return fmt.Errorf("ffmpeg %s: %w", op, err)
		}
		return fmt.Errorf("ffmpeg %s: %w: %s", op, err, detail)
	}
	r.logger.DebugContext(ctx, "ffmpeg stage complete",
		logging.String("operation", op),
		logging.String("output", dest),
		logging.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// escapeFilterPath quotes a path for use as a filtergraph option value.
func escapeFilterPath(path string) string {
	return "'" + strings.ReplaceAll(path, "'", `'\''`) + "'"
}
