// Package notifications delivers task lifecycle events (progress, complete,
// failed) to the configured transports.
//
// ntfy receives short human-readable pushes, Redis receives JSON on a pub/sub
// channel plus a per-task hash holding the latest state, and AMQP receives JSON
// on a fanout exchange. NewFromConfig combines whichever transports are
// configured and degrades to a no-op when none are. Callers depend only on the
// Publisher interface.
package notifications
