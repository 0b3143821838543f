// Package index loads the immutable set of target fingerprints that every
// generated candidate is tested against.
//
// An Index is built once at startup and never mutated afterwards, so any
// number of worker goroutines may call Contains concurrently without locking.
package index
