package logging

// ProgressSampler suppresses repetitive progress output while preserving
// signal when a monotonically increasing counter crosses interval boundaries.
type ProgressSampler struct {
	interval   int64
	lastBucket int64
}

// NewProgressSampler constructs a sampler that emits each time the counter
// crosses a multiple of interval. Non-positive intervals fall back to 5000.
func NewProgressSampler(interval int64) *ProgressSampler {
	if interval <= 0 {
		interval = 5000
	}
	return &ProgressSampler{interval: interval, lastBucket: 0}
}

// ShouldLog reports whether count has crossed into a new interval bucket
// since the last emission. Counters that skip several buckets at once emit a
// single time. A nil sampler always emits.
func (s *ProgressSampler) ShouldLog(count int64) bool {
	if s == nil {
		return true
	}
	if count <= 0 {
		return false
	}
	bucket := count / s.interval
	if bucket > s.lastBucket {
		s.lastBucket = bucket
		return true
	}
	return false
}
