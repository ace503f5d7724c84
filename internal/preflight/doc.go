// Package preflight provides readiness checks for the external tools, paths,
// and services stratos depends on.
//
// `stratos check` runs RunAll and prints every result; the daemon logs the
// same results at startup but keeps running, since a backend that is down at
// boot may recover before the first task arrives.
package preflight
