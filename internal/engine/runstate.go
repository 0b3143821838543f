package engine

import (
	"math"
	"sync/atomic"
)

// RunState holds the counters and flags shared by every task, the Reporter,
// the Orchestrator, and the ShutdownController.
//
// Attempts are reserved with Claim before a batch is generated, so the sum of
// completed attempts can never pass the target no matter how many tasks run
// concurrently.
type RunState struct {
	target  int64
	minMult float64
	maxMult float64

	claimed    atomic.Int64
	attempts   atomic.Int64
	matches    atomic.Int64
	genErrors  atomic.Int64
	running    atomic.Bool
	shutdown   atomic.Bool
	multiplier atomic.Uint64
}

// NewRunState creates a running state. initial is clamped into [minMult, maxMult].
func NewRunState(target int64, initial, minMult, maxMult float64) *RunState {
	if minMult <= 0 {
		minMult = 1
	}
	if maxMult < minMult {
		maxMult = minMult
	}
	s := &RunState{target: target, minMult: minMult, maxMult: maxMult}
	s.running.Store(target > 0)
	s.SetMultiplier(initial)
	return s
}

// Target returns the fixed number of attempts the run aims for.
func (s *RunState) Target() int64 { return s.target }

// Attempts returns the number of candidates generated and checked so far.
func (s *RunState) Attempts() int64 { return s.attempts.Load() }

// Remaining returns the attempts not yet reserved by any task.
func (s *RunState) Remaining() int64 { return max(0, s.target-s.claimed.Load()) }

// Claim reserves up to n attempts and returns the amount granted.
func (s *RunState) Claim(n int64) int64 {
	if n <= 0 {
		return 0
	}
	for {
		claimed := s.claimed.Load()
		grant := min(n, s.target-claimed)
		if grant <= 0 {
			return 0
		}
		if s.claimed.CompareAndSwap(claimed, claimed+grant) {
			return grant
		}
	}
}

// Release returns an unused reservation.
func (s *RunState) Release(n int64) {
	if n > 0 {
		s.claimed.Add(-n)
	}
}

// Complete records n generated candidates and stops the run once the target
// is reached. It returns the new total.
func (s *RunState) Complete(n int64) int64 {
	total := s.attempts.Add(n)
	if total >= s.target {
		s.running.Store(false)
	}
	return total
}

// Running reports whether new batches may still be requested.
func (s *RunState) Running() bool { return s.running.Load() }

// Stop clears the running flag.
func (s *RunState) Stop() { s.running.Store(false) }

// RequestShutdown marks an operator shutdown and stops the run. It reports
// whether this call was the first request.
func (s *RunState) RequestShutdown() bool {
	first := s.shutdown.CompareAndSwap(false, true)
	s.running.Store(false)
	return first
}

// ShutdownRequested reports whether an operator shutdown is in progress.
func (s *RunState) ShutdownRequested() bool { return s.shutdown.Load() }

// Multiplier returns the current batch size multiplier.
func (s *RunState) Multiplier() float64 {
	return math.Float64frombits(s.multiplier.Load())
}

// SetMultiplier stores v clamped into the configured bounds. NaN falls back
// to the lower bound.
func (s *RunState) SetMultiplier(v float64) float64 {
	v = clamp(v, s.minMult, s.maxMult)
	s.multiplier.Store(math.Float64bits(v))
	return v
}

// Bounds returns the multiplier bounds.
func (s *RunState) Bounds() (float64, float64) { return s.minMult, s.maxMult }

func (s *RunState) addMatches(n int) { s.matches.Add(int64(n)) }

func (s *RunState) addGenerationError() { s.genErrors.Add(1) }

// Matches returns the number of persisted matches.
func (s *RunState) Matches() int64 { return s.matches.Load() }

// GenerationErrors returns the number of failed batch requests.
func (s *RunState) GenerationErrors() int64 { return s.genErrors.Load() }

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
