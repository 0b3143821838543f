// Package sink writes run output to disk.
//
// Found is the durable match sink: an append-only text file of
// "identifier:secret" lines guarded by an advisory lock so two runs never
// interleave writes. Each batch is written with a single write call and
// rolled back to its previous size on failure, so a retried batch never
// duplicates a line. Trace is the optional buffered log of every generated
// candidate.
package sink
