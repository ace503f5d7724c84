// Package daemon coordinates the long-running stratos process.
//
// It wires the queue store, the workflow worker pool, and the HTTP API into a
// single lifecycle guarded by a flock-based lock so only one daemon runs per
// data directory. Task execution lives in the pipeline and workflow packages;
// the daemon focuses on startup, shutdown, and status reporting.
package daemon
