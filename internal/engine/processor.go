package engine

import (
	"context"
	"time"

	"sieve/internal/generator"
)

// Membership is the read-only lookup a batch is tested against.
type Membership interface {
	Contains(id string) bool
}

// Task is one planned batch: its identifier and the attempts it reserved.
type Task struct {
	ID   uint64
	Size int
}

// Result is the outcome of a task.
type Result struct {
	BatchID  uint64
	Attempts int
	// Matches preserves the batch's generation order.
	Matches []generator.Candidate
	// Batch is the full generated batch, kept only when tracing is enabled.
	Batch []generator.Candidate
}

// ProcessorConfig holds the per-task tunables.
type ProcessorConfig struct {
	BaseSize    int
	SampleEvery int
	KeepBatch   bool
}

// Processor is the unit of work executed by pool workers. It holds no
// per-task state and is safe for concurrent use.
type Processor struct {
	cfg     ProcessorConfig
	gen     generator.Generator
	index   Membership
	state   *RunState
	samples *SampleQueue
	now     func() time.Time
}

// NewProcessor wires a processor. samples may be nil to disable sampling.
func NewProcessor(cfg ProcessorConfig, gen generator.Generator, index Membership, state *RunState, samples *SampleQueue) *Processor {
	if cfg.BaseSize <= 0 {
		cfg.BaseSize = 1
	}
	if cfg.SampleEvery <= 0 {
		cfg.SampleEvery = 10
	}
	return &Processor{cfg: cfg, gen: gen, index: index, state: state, samples: samples, now: time.Now}
}

// BatchSize returns the size requested for the next task at the current
// multiplier.
func (p *Processor) BatchSize() int {
	return max(1, int(float64(p.cfg.BaseSize)*p.state.Multiplier()))
}

// Plan reserves the attempts for a new task. It returns false when the run
// is no longer accepting work or the whole target is already reserved.
func (p *Processor) Plan(id uint64) (Task, bool) {
	if !p.state.Running() || p.state.ShutdownRequested() {
		return Task{}, false
	}
	n := p.state.Claim(int64(p.BatchSize()))
	if n <= 0 {
		if p.state.Attempts() >= p.state.Target() {
			p.state.Stop()
		}
		return Task{}, false
	}
	return Task{ID: id, Size: int(n)}, true
}

// Execute generates the planned batch, collects matches, and samples the
// batch for the Reporter. A failed request releases its reservation and
// contributes no progress.
func (p *Processor) Execute(ctx context.Context, task Task) (Result, error) {
	res := Result{BatchID: task.ID}
	if !p.state.Running() || p.state.ShutdownRequested() {
		p.state.Release(int64(task.Size))
		return res, nil
	}

	batch, err := p.gen.GenerateBatch(ctx, task.Size)
	if err != nil {
		p.state.Release(int64(task.Size))
		return res, &GenerationError{BatchID: task.ID, Size: task.Size, Err: err}
	}
	if len(batch) > task.Size {
		batch = batch[:task.Size]
	}

	for _, c := range batch {
		if p.index.Contains(c.Identifier) {
			res.Matches = append(res.Matches, c)
		}
	}

	if p.samples != nil && !p.state.ShutdownRequested() {
		at := p.now()
		for i := 0; i < len(batch); i += p.cfg.SampleEvery {
			p.samples.Offer(Sample{Candidate: batch[i], At: at})
		}
	}

	if short := task.Size - len(batch); short > 0 {
		p.state.Release(int64(short))
	}
	p.state.Complete(int64(len(batch)))

	res.Attempts = len(batch)
	if p.cfg.KeepBatch {
		res.Batch = batch
	}
	return res, nil
}

// Process plans and executes one task.
func (p *Processor) Process(ctx context.Context, id uint64) (Result, error) {
	task, ok := p.Plan(id)
	if !ok {
		return Result{BatchID: id}, nil
	}
	return p.Execute(ctx, task)
}
