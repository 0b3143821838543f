// Package runner assembles a pipeline run from configuration: it loads the
// targets file, opens the match sink, trace log, and history store, wires
// metrics and signal handling, drives the engine to completion, and records
// the outcome.
package runner
