// Command stratos submits, runs, and inspects media tasks.
//
// Task commands (submit, list, show, retry, run) open the SQLite store
// directly, so they work whether or not the daemon is running. `stratos
// daemon` runs the worker pool and HTTP API in the foreground until SIGINT or
// SIGTERM.
package main
