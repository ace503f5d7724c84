// Package queue persists tasks and their input files in SQLite.
//
// The Store opens the database with WAL and busy-timeout pragmas, applies the
// embedded goose migrations, and exposes the status transitions the pipeline
// orchestrator drives (pending, processing, completed, failed). Files are
// linked to tasks through task_files with an insertion ordinal so callers see
// them in submission order. Updates are last-write-wins; SQLITE_BUSY errors are
// retried with a short backoff.
//
// Add schema changes as new numbered files under migrations/.
package queue
