// Package preflight provides readiness checks for the filesystem paths and
// host resources a run depends on.
//
// These checks run in two contexts:
//   - The runner calls RunAll before starting the pipeline. If any check
//     fails, the run is refused before the targets file is loaded.
//   - The CLI "sieve check" command prints every result as a table.
//
// Each check is gated by its config toggle; disabled features are skipped.
package preflight
