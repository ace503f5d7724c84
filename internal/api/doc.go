// Package api exposes task submission and inspection over HTTP and provides
// the transport DTOs shared with the CLI.
//
// TaskService validates submissions with zog schemas and translates queue
// records into camelCase JSON DTOs. Router mounts the service on a chi router
// under /api, tags every request with a correlation id, and logs one line per
// request. The daemon hosts the router; CLI commands call TaskService
// directly against the same SQLite store.
package api
