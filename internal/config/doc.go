// Package config loads, normalizes, and validates sieve configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SIEVE_TARGETS_FILE. The Config type centralizes every knob the pipeline and
// CLI need so the targets file, match sink, and batch tuning are discovered in
// one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, clamped tuning values, and clear validation errors.
package config
