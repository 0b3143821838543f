// Package history records runs and their persisted matches in SQLite.
//
// The found file stays the authoritative match sink; the history database is
// an index over it for the `sieve history` command. Recorder decorates the
// engine's match sink so every batch that reaches the found file is also
// recorded here, and history failures are logged without stopping the run.
//
// The schema is versioned in schema.go. A database with a different version
// is rejected; delete it to adopt the new schema.
package history
