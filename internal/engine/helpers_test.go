package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"sieve/internal/generator"
)

// sequenceGenerator emits "id-N" candidates from a global counter and
// replaces the counter positions in plant with the given identifiers.
type sequenceGenerator struct {
	next  atomic.Int64
	plant map[int64]string
	delay time.Duration
	calls atomic.Int64
	// failEvery makes every n-th call fail when positive.
	failEvery int64
}

func (g *sequenceGenerator) Name() string { return "sequence" }

func (g *sequenceGenerator) GenerateBatch(ctx context.Context, n int) ([]generator.Candidate, error) {
	call := g.calls.Add(1)
	if g.failEvery > 0 && call%g.failEvery == 0 {
		return nil, errors.New("entropy unavailable")
	}
	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	start := g.next.Add(int64(n)) - int64(n)
	out := make([]generator.Candidate, n)
	for i := range out {
		pos := start + int64(i)
		id := fmt.Sprintf("id-%d", pos)
		if planted, ok := g.plant[pos]; ok {
			id = planted
		}
		out[i] = generator.Candidate{Identifier: id, Secret: fmt.Sprintf("secret-%d", pos)}
	}
	return out, nil
}

// memorySink records persisted lines and can fail the first failures calls.
type memorySink struct {
	mu        sync.Mutex
	lines     []string
	batches   map[uint64]int
	calls     int
	failures  int
	alwaysErr error
}

func newMemorySink() *memorySink {
	return &memorySink{batches: make(map[uint64]int)}
}

func (s *memorySink) Persist(_ context.Context, batchID uint64, matches []generator.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.alwaysErr != nil {
		return s.alwaysErr
	}
	if s.calls <= s.failures {
		return errors.New("disk full")
	}
	for _, m := range matches {
		s.lines = append(s.lines, m.String())
	}
	s.batches[batchID]++
	return nil
}

func (s *memorySink) snapshot() ([]string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...), s.calls
}

type memoryTrace struct {
	mu      sync.Mutex
	records int
	flushes int
}

func (t *memoryTrace) Write(batch []generator.Candidate) error {
	t.mu.Lock()
	t.records += len(batch)
	t.mu.Unlock()
	return nil
}

func (t *memoryTrace) Flush() error {
	t.mu.Lock()
	t.flushes++
	t.mu.Unlock()
	return nil
}

type setIndex map[string]struct{}

func newSetIndex(ids ...string) setIndex {
	s := make(setIndex, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s setIndex) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

func testOptions() Options {
	return Options{
		Workers:       2,
		FanOut:        4,
		BaseSize:      100,
		SampleEvery:   10,
		QueueCapacity: 64,
		Grace:         2 * time.Second,
		MaxRetries:    3,
		RetryDelay:    time.Millisecond,
		Sizer:         DefaultSizerConfig(),
		Reporter: ReporterConfig{
			SampleInterval: time.Millisecond,
			ReceiveTimeout: 5 * time.Millisecond,
			ProgressEvery:  500,
		},
	}
}

// blockingGenerator blocks every call until its context is cancelled.
type blockingGenerator struct {
	started chan struct{}
}

func (g *blockingGenerator) Name() string { return "blocking" }

func (g *blockingGenerator) GenerateBatch(ctx context.Context, _ int) ([]generator.Candidate, error) {
	select {
	case g.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

// stubbornGenerator ignores cancellation and holds every call for hold.
type stubbornGenerator struct {
	hold    time.Duration
	started chan struct{}
}

func (g *stubbornGenerator) Name() string { return "stubborn" }

func (g *stubbornGenerator) GenerateBatch(_ context.Context, n int) ([]generator.Candidate, error) {
	select {
	case g.started <- struct{}{}:
	default:
	}
	time.Sleep(g.hold)
	return make([]generator.Candidate, n), nil
}

// concurrencyGenerator records the peak number of overlapping calls.
type concurrencyGenerator struct {
	active atomic.Int64
	peak   atomic.Int64
}

func (g *concurrencyGenerator) Name() string { return "concurrency" }

func (g *concurrencyGenerator) GenerateBatch(_ context.Context, n int) ([]generator.Candidate, error) {
	now := g.active.Add(1)
	defer g.active.Add(-1)
	for {
		peak := g.peak.Load()
		if now <= peak || g.peak.CompareAndSwap(peak, now) {
			break
		}
	}
	time.Sleep(200 * time.Microsecond)
	out := make([]generator.Candidate, n)
	for i := range out {
		out[i] = generator.Candidate{Identifier: "c", Secret: "s"}
	}
	return out, nil
}
