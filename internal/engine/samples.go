package engine

import (
	"context"
	"sync/atomic"
	"time"

	"sieve/internal/generator"
)

// Sample is a candidate forwarded to the Reporter for display only.
type Sample struct {
	generator.Candidate
	At time.Time
}

// SampleQueue is a bounded channel with drop-on-full sends. Producers never
// block; the single consumer receives with a timeout.
type SampleQueue struct {
	ch      chan Sample
	offered atomic.Int64
	dropped atomic.Int64
}

// NewSampleQueue creates a queue holding at most capacity samples.
func NewSampleQueue(capacity int) *SampleQueue {
	if capacity <= 0 {
		capacity = 1
	}
	return &SampleQueue{ch: make(chan Sample, capacity)}
}

// Offer enqueues s unless the queue is full. It reports whether s was kept.
func (q *SampleQueue) Offer(s Sample) bool {
	q.offered.Add(1)
	select {
	case q.ch <- s:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Receive waits up to timeout for a sample. ok is false on timeout; err is
// set when ctx ends first.
func (q *SampleQueue) Receive(ctx context.Context, timeout time.Duration) (Sample, bool, error) {
	select {
	case s := <-q.ch:
		return s, true, nil
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case s := <-q.ch:
		return s, true, nil
	case <-timer.C:
		return Sample{}, false, nil
	case <-ctx.Done():
		return Sample{}, false, ctx.Err()
	}
}

// Len returns the number of queued samples.
func (q *SampleQueue) Len() int { return len(q.ch) }

// Cap returns the queue capacity.
func (q *SampleQueue) Cap() int { return cap(q.ch) }

// Offered returns the number of Offer calls.
func (q *SampleQueue) Offered() int64 { return q.offered.Load() }

// Dropped returns the number of samples discarded because the queue was full.
func (q *SampleQueue) Dropped() int64 { return q.dropped.Load() }
