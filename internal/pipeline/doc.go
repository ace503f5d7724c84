// Package pipeline runs one task from processing to a terminal status.
//
// The Orchestrator resolves a task's command to one of four pipelines
// (transcribe, slowmotion, fpsboost, subtitle), executes the stages strictly in
// sequence, and records the outcome. Run never returns an error: any failure is
// persisted as a failed status with a human-readable message and announced
// with a single failure event.
//
// Each pipeline emits advisory progress checkpoints through a Reporter. Values
// only ever increase and a successful run always ends at 1.0. Intermediate
// artifacts are removed best-effort once the next stage has consumed them; a
// removal failure is logged and never changes the task outcome.
//
// Only the first input file of a task is processed. Additional files stay
// attached to the task record but are ignored by every pipeline.
//
// Concurrent runs of the same task id are refused by a per-task lock that
// combines an in-process guard with a file lock under the output root.
package pipeline
