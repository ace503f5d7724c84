// Package config loads, normalizes, and validates stratos configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// STRATOS_AI_URL, NTFY_TOPIC, and REDIS_URL. The Config type centralizes every
// knob the daemon and CLI need so the scratch root, the queue database, and the
// inference backend address are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
