// Package workflow runs the daemon's worker pool.
//
// The Manager resets tasks left in processing by an interrupted daemon, then
// starts a fixed number of workers. Each worker claims the oldest pending task
// from the queue store and hands it to the pipeline orchestrator, which owns
// the per-task lock, progress reporting, and the terminal status write. A
// separate sweeper periodically removes scratch directories of tasks that
// reached a terminal status longer ago than the configured retention.
package workflow
