package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const (
	maxLineBytes = 1024 * 1024
	pollInterval = 250 * time.Millisecond
)

// Options controls a read. A negative Offset reads the last Limit lines.
type Options struct {
	Offset int64
	Limit  int
	TaskID string
}

// Chunk holds the lines read and the offset to resume from.
type Chunk struct {
	Lines  []string
	Offset int64
}

// Read returns lines from path according to opts. A missing file yields an
// empty chunk at offset zero.
func Read(path string, opts Options) (Chunk, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Chunk{}, nil
		}
		return Chunk{Offset: opts.Offset}, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return Chunk{Offset: opts.Offset}, fmt.Errorf("log path %q is a directory", path)
	}

	match := matcher(opts.TaskID)
	if opts.Offset < 0 {
		return readLast(path, opts.Limit, match)
	}
	offset := opts.Offset
	if offset > info.Size() {
		// Truncated or rotated; start over.
		offset = 0
	}
	return readFrom(path, offset, match)
}

// Follow emits new lines appended after offset until ctx is cancelled.
func Follow(ctx context.Context, path string, offset int64, taskID string, emit func(string)) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		chunk, err := Read(path, Options{Offset: offset, TaskID: taskID})
		if err != nil {
			return err
		}
		for _, line := range chunk.Lines {
			emit(line)
		}
		offset = chunk.Offset

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func matcher(taskID string) func(string) bool {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return func(string) bool { return true }
	}
	return func(line string) bool { return strings.Contains(line, taskID) }
}

func readLast(path string, limit int, match func(string) bool) (Chunk, error) {
	file, err := os.Open(path)
	if err != nil {
		return Chunk{}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if limit <= 0 {
		end, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return Chunk{}, fmt.Errorf("seek log file: %w", err)
		}
		return Chunk{Offset: end}, nil
	}

	ring := make([]string, 0, limit)
	end, err := scan(file, func(line string) {
		if !match(line) {
			return
		}
		if len(ring) == limit {
			ring = append(ring[:0], ring[1:]...)
		}
		ring = append(ring, line)
	})
	if err != nil {
		return Chunk{}, err
	}
	return Chunk{Lines: ring, Offset: end}, nil
}

func readFrom(path string, offset int64, match func(string) bool) (Chunk, error) {
	file, err := os.Open(path)
	if err != nil {
		return Chunk{Offset: offset}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return Chunk{Offset: offset}, fmt.Errorf("seek log file: %w", err)
	}
	var lines []string
	end, err := scan(file, func(line string) {
		if match(line) {
			lines = append(lines, line)
		}
	})
	if err != nil {
		return Chunk{Offset: offset}, err
	}
	return Chunk{Lines: lines, Offset: end}, nil
}

// scan feeds complete lines to fn and returns the offset just past the last
// complete line, so a partially written record is re-read on the next poll.
func scan(file *os.File, fn func(string)) (int64, error) {
	start, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("determine log offset: %w", err)
	}
	reader := bufio.NewReaderSize(file, 64*1024)
	consumed := start
	for {
		line, err := reader.ReadString('\n')
		if errors.Is(err, io.EOF) {
			return consumed, nil
		}
		if err != nil {
			return consumed, fmt.Errorf("read log file: %w", err)
		}
		consumed += int64(len(line))
		if len(line) > maxLineBytes {
			continue
		}
		fn(strings.TrimRight(line, "\r\n"))
	}
}
