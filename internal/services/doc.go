// Package services defines shared utilities consumed by the pipeline stages and
// external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp task IDs, commands, stage names, and correlation
//     identifiers for logging.
//   - The failure taxonomy (no input files, unsupported command, preparation,
//     inference, subtitle application, cleanup) plus the Wrap helper that turns a
//     stage failure into the human-readable text persisted on the task.
//
// Use these helpers when wiring new stage logic so failures and log lines keep
// the same shape across every pipeline.
package services
