// Package engine runs the batch generation and matching pipeline.
//
// An Orchestrator keeps a bounded number of batch tasks in flight on a fixed
// pool of worker goroutines. Each task reserves part of the remaining target,
// asks the candidate generator for a batch, tests every identifier against the
// membership index, and offers a sample of the batch to the Reporter through a
// drop-on-full queue. Completed tasks are drained by the Orchestrator, which
// alone persists matches so storage latency never stalls the workers.
//
// All shared counters live in RunState and are updated atomically. The
// ShutdownController turns operator interrupts into a two-stage protocol: the
// first interrupt drains in-flight work within a grace window, the second
// abandons it. RenderStats produces the final summary from a Snapshot.
package engine
