// Package generator defines the candidate generator capability consumed by
// the matching pipeline and ships a hash-based implementation.
//
// A Generator turns a requested batch size into an ordered batch of
// identifier/secret pairs. The pipeline treats the derivation as opaque: it
// only relies on GenerateBatch returning at most n candidates and honouring
// context cancellation.
package generator
