package pipeline

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Command names a pipeline.
type Command string

const (
	CommandTranscribe Command = "transcribe"
	CommandSlowmotion Command = "slowmotion"
	CommandFPSBoost   Command = "fpsboost"
	CommandSubtitle   Command = "subtitle"
)

// FormatPattern matches the output format options accepted as file extensions.
const FormatPattern = `^[A-Za-z0-9]{1,10}$`

var formatRegex = regexp.MustCompile(FormatPattern)

// Commands lists every supported command.
func Commands() []Command {
	return []Command{CommandTranscribe, CommandSlowmotion, CommandFPSBoost, CommandSubtitle}
}

// Valid reports whether c names a supported pipeline.
func (c Command) Valid() bool {
	for _, known := range Commands() {
		if c == known {
			return true
		}
	}
	return false
}

// ParsedCommand is the immutable input to one pipeline run. Options carry raw
// caller values; defaults are applied by the pipeline that reads them.
type ParsedCommand struct {
	Command Command
	Options map[string]any
}

// ParseCommand normalizes the command name and copies options. Unknown names
// are preserved so the orchestrator can reject them.
func ParseCommand(name string, options map[string]any) ParsedCommand {
	copied := make(map[string]any, len(options))
	for k, v := range options {
		copied[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return ParsedCommand{
		Command: Command(strings.ToLower(strings.TrimSpace(name))),
		Options: copied,
	}
}

// String returns the option as text, or def when absent or blank.
func (p ParsedCommand) String(key, def string) string {
	raw, ok := p.Options[key]
	if !ok || raw == nil {
		return def
	}
	var value string
	if s, ok := raw.(string); ok {
		value = s
	} else {
		value = fmt.Sprint(raw)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return def
	}
	return value
}

// Float returns the first present key as a positive number. Absent, blank, or
// zero values fall through to the next key and finally to def.
func (p ParsedCommand) Float(def float64, keys ...string) (float64, error) {
	for _, key := range keys {
		raw, ok := p.Options[key]
		if !ok || raw == nil {
			continue
		}
		value, err := toFloat(raw)
		if err != nil {
			return 0, fmt.Errorf("option %s: %w", key, err)
		}
		if value == 0 {
			continue
		}
		if value < 0 || math.IsNaN(value) || math.IsInf(value, 0) {
			return 0, fmt.Errorf("option %s: must be a positive number, got %v", key, raw)
		}
		return value, nil
	}
	return def, nil
}

func toFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, nil
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("unsupported type %T", raw)
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Format returns the "format" option, or def when absent or blank. The value
// becomes a file extension, so only short alphanumeric tokens are accepted.
func (p ParsedCommand) Format(def string) (string, error) {
	value := p.String("format", def)
	if !formatRegex.MatchString(value) {
		return "", fmt.Errorf("option format: %q must be 1-10 letters or digits", value)
	}
	return value, nil
}
