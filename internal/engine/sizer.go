package engine

import (
	"math"
	"time"
)

// SizerConfig describes the adaptive batch sizing policy.
type SizerConfig struct {
	Warmup    time.Duration
	LowWater  float64
	HighWater float64
	Grow      float64
	Shrink    float64
}

// DefaultSizerConfig returns the stock policy: wait 10s, grow by half below
// 10k candidates/s, shrink by a fifth above 50k candidates/s.
func DefaultSizerConfig() SizerConfig {
	return SizerConfig{
		Warmup:    10 * time.Second,
		LowWater:  10000,
		HighWater: 50000,
		Grow:      1.5,
		Shrink:    0.8,
	}
}

// Sizer tunes the batch multiplier from observed throughput. Only tasks
// submitted after an adjustment see the new value.
type Sizer struct {
	cfg   SizerConfig
	state *RunState
}

// NewSizer binds a policy to the run state it adjusts.
func NewSizer(cfg SizerConfig, state *RunState) *Sizer {
	return &Sizer{cfg: cfg, state: state}
}

// Adjust computes the next multiplier for the given elapsed run time and
// throughput (candidates per second), stores it, and returns it.
func (s *Sizer) Adjust(elapsed time.Duration, throughput float64) float64 {
	lo, hi := s.state.Bounds()
	next := s.Next(s.state.Multiplier(), elapsed, throughput, lo, hi)
	return s.state.SetMultiplier(next)
}

// Next is the pure policy behind Adjust. The result always lies in [lo, hi].
func (s *Sizer) Next(current float64, elapsed time.Duration, throughput, lo, hi float64) float64 {
	current = clamp(current, lo, hi)
	if elapsed <= s.cfg.Warmup || math.IsNaN(throughput) {
		return current
	}
	switch {
	case throughput < s.cfg.LowWater:
		return clamp(current*s.cfg.Grow, lo, hi)
	case throughput > s.cfg.HighWater:
		return clamp(current*s.cfg.Shrink, lo, hi)
	default:
		return current
	}
}
