package services

import (
	"errors"
	"strings"
)

// Failure kinds raised by pipeline stages. Every kind except ErrCleanupFailed
// aborts the current task run.
var (
	ErrNoInputFiles              = errors.New("no input files")
	ErrUnsupportedCommand        = errors.New("unsupported command")
	ErrPreparationFailed         = errors.New("preparation failed")
	ErrInferenceFailed           = errors.New("inference failed")
	ErrSubtitleApplicationFailed = errors.New("subtitle application failed")
	ErrCleanupFailed             = errors.New("cleanup failed")
	ErrTaskBusy                  = errors.New("task busy")
)

var kindNames = []struct {
	marker error
	name   string
}{
	{ErrNoInputFiles, "no_input_files"},
	{ErrUnsupportedCommand, "unsupported_command"},
	{ErrPreparationFailed, "preparation_failed"},
	{ErrInferenceFailed, "inference_failed"},
	{ErrSubtitleApplicationFailed, "subtitle_application_failed"},
	{ErrCleanupFailed, "cleanup_failed"},
	{ErrTaskBusy, "task_busy"},
}

// StageError carries the failure kind together with the stage context that
// produced it. Its message is the human-readable text persisted on the task.
type StageError struct {
	Kind      error
	Stage     string
	Operation string
	Message   string
	Cause     error
}

func (e *StageError) Error() string {
	var b strings.Builder
	if e.Kind != nil {
		b.WriteString(e.Kind.Error())
	} else {
		b.WriteString("stage failure")
	}
	b.WriteString(": ")
	b.WriteString(buildDetail(e.Stage, e.Operation, e.Message))
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(strings.TrimSpace(e.Cause.Error()))
	}
	return b.String()
}

// Unwrap exposes both the kind marker and the underlying cause to errors.Is.
func (e *StageError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Cause != nil {
		out = append(out, e.Cause)
	}
	return out
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided kind marker. The marker should be one of the exported sentinel
// errors above.
func Wrap(kind error, stage, operation, message string, err error) error {
	return &StageError{
		Kind:      kind,
		Stage:     strings.TrimSpace(stage),
		Operation: strings.TrimSpace(operation),
		Message:   strings.TrimSpace(message),
		Cause:     err,
	}
}

// ErrorDetails is the structured view of a stage failure used for logging.
type ErrorDetails struct {
	Kind      string
	Stage     string
	Operation string
	Message   string
	Cause     error
}

// Details extracts structured failure information. Errors that were not built
// with Wrap report kind "unknown" and their own message.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return ErrorDetails{
			Kind:      KindName(stageErr.Kind),
			Stage:     stageErr.Stage,
			Operation: stageErr.Operation,
			Message:   stageErr.Message,
			Cause:     stageErr.Cause,
		}
	}
	return ErrorDetails{Kind: "unknown", Message: err.Error(), Cause: err}
}

// KindName returns the snake_case label for err's failure kind.
func KindName(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kindNames {
		if errors.Is(err, k.marker) {
			return k.name
		}
	}
	return "unknown"
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
