// Package main hosts the sieve CLI entrypoint and command graph.
//
// The Cobra-based command tree wires configuration resolution and structured
// logging in front of the internal runner, and exposes the supporting
// utilities: configuration scaffolding, startup checks, target index
// inspection, and run history.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
