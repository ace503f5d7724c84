// Package logs reads the daemon log file for `stratos logs`.
//
// Reads are offset based so callers can show the last N lines and then poll
// for appended lines without holding the file open. An optional task filter
// keeps only records that mention a given task id.
package logs
