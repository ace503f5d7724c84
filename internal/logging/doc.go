// Package logging assembles structured slog loggers and formatting helpers used
// across stratos.
//
// Console output goes through tint so terminals get colour while log files stay
// plain; JSON output uses the standard handler with short keys. Context-aware
// helpers tag log lines with task IDs, commands, stages, and correlation IDs
// stamped by the services package. NewNop provides a discard logger for tests
// and wiring code that cannot fail.
package logging
