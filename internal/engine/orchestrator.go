package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go"
	"golang.org/x/sync/semaphore"

	"sieve/internal/generator"
	"sieve/internal/logging"
)

// Phase is the Orchestrator lifecycle state.
type Phase int32

const (
	PhaseStarting Phase = iota
	PhaseRunning
	PhaseDraining
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseStarting:
		return "starting"
	case PhaseRunning:
		return "running"
	case PhaseDraining:
		return "draining"
	case PhaseStopped:
		return "stopped"
	default:
		return fmt.Sprintf("phase(%d)", int32(p))
	}
}

// MatchSink persists the matches of one batch. Implementations must write
// all of them or none so a retry never duplicates lines.
type MatchSink interface {
	Persist(ctx context.Context, batchID uint64, matches []generator.Candidate) error
}

// TraceWriter records every generated candidate when tracing is enabled.
type TraceWriter interface {
	Write(batch []generator.Candidate) error
	Flush() error
}

// Options is the fixed run configuration handed to the Orchestrator.
type Options struct {
	Workers                int
	FanOut                 int
	BaseSize               int
	SampleEvery            int
	QueueCapacity          int
	Grace                  time.Duration
	MaxRetries             int
	RetryDelay             time.Duration
	MaxConsecutiveFailures int
	Sizer                  SizerConfig
	Reporter               ReporterConfig
}

// Deps are the collaborators of a run.
type Deps struct {
	Generator generator.Generator
	Index     Membership
	Sink      MatchSink
	// Trace is optional.
	Trace TraceWriter
	// Out receives the live progress display.
	Out    io.Writer
	Logger *slog.Logger
	// AfterPersist runs on the Orchestrator goroutine after each persisted
	// batch; the runner uses it for memory pressure checks.
	AfterPersist func()
}

// Orchestrator owns the run lifecycle.
type Orchestrator struct {
	opts   Options
	deps   Deps
	state  *RunState
	queue  *SampleQueue
	proc   *Processor
	sizer  *Sizer
	logger *slog.Logger
	sem    *semaphore.Weighted
	maxIn  int
	now    func() time.Time
	phase  atomic.Int32
	inFl   atomic.Int64
	nextID uint64
	// started holds the run start in UnixNano; Snapshot reads it from
	// metrics scrapes while Run is starting.
	started atomic.Int64

	consecutiveFailures int
	pendingFatal        error
}

// New validates the options and builds an Orchestrator for state.
func New(opts Options, deps Deps, state *RunState) (*Orchestrator, error) {
	if deps.Generator == nil || deps.Index == nil || deps.Sink == nil {
		return nil, errors.New("orchestrator requires generator, index, and sink")
	}
	if state == nil {
		return nil, errors.New("orchestrator requires run state")
	}
	if opts.Workers <= 0 {
		return nil, errors.New("workers must be positive")
	}
	if opts.FanOut <= 0 {
		opts.FanOut = 8
	}
	if opts.Grace <= 0 {
		opts.Grace = 500 * time.Millisecond
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.QueueCapacity <= 0 {
		opts.QueueCapacity = 5000
	}
	if opts.SampleEvery <= 0 {
		if hinter, ok := deps.Generator.(generator.SampleHinter); ok {
			opts.SampleEvery = hinter.SampleEvery()
		}
	}
	if opts.Reporter.BaseSize <= 0 {
		opts.Reporter.BaseSize = opts.BaseSize
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}

	queue := NewSampleQueue(opts.QueueCapacity)
	proc := NewProcessor(ProcessorConfig{
		BaseSize:    opts.BaseSize,
		SampleEvery: opts.SampleEvery,
		KeepBatch:   deps.Trace != nil,
	}, deps.Generator, deps.Index, state, queue)

	maxIn := opts.Workers * opts.FanOut
	o := &Orchestrator{
		opts:   opts,
		deps:   deps,
		state:  state,
		queue:  queue,
		proc:   proc,
		sizer:  NewSizer(opts.Sizer, state),
		logger: logging.NewComponentLogger(deps.Logger, "orchestrator"),
		sem:    semaphore.NewWeighted(int64(maxIn)),
		maxIn:  maxIn,
		now:    time.Now,
	}
	return o, nil
}

// Phase returns the current lifecycle state.
func (o *Orchestrator) Phase() Phase { return Phase(o.phase.Load()) }

// InFlight returns the number of submitted tasks not yet drained.
func (o *Orchestrator) InFlight() int64 { return o.inFl.Load() }

// MaxInFlight returns the in-flight bound.
func (o *Orchestrator) MaxInFlight() int { return o.maxIn }

// Queue exposes the sample queue for metrics.
func (o *Orchestrator) Queue() *SampleQueue { return o.queue }

func (o *Orchestrator) setPhase(p Phase) {
	if Phase(o.phase.Swap(int32(p))) != p {
		o.logger.Debug("phase change", logging.String("phase", p.String()))
	}
}

// Run executes the pipeline until the target is reached, a shutdown is
// requested through sc or ctx, or a fatal error occurs. It always returns the
// final snapshot. A forced stop returns ErrForcedShutdown; fatal conditions
// return a *PersistenceError or ErrGeneratorFailing.
func (o *Orchestrator) Run(ctx context.Context, sc *ShutdownController) (Snapshot, error) {
	if sc == nil {
		sc = NewShutdownController(o.state, nil)
	}
	o.setPhase(PhaseStarting)
	started := o.now()
	o.started.Store(started.UnixNano())

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()
	// Persistence survives a graceful shutdown so drained matches are written;
	// only a forced stop cancels it.
	persistCtx, cancelPersist := context.WithCancel(context.Background())
	defer cancelPersist()
	reporterCtx, cancelReporter := context.WithCancel(context.Background())
	defer cancelReporter()

	workers := newPool(workerCtx, o.opts.Workers, o.maxIn, o.proc)
	reporter := NewReporter(o.opts.Reporter, o.deps.Out, o.state, o.queue, o.sizer)
	reporterDone := make(chan struct{})
	go func() {
		defer close(reporterDone)
		reporter.Run(reporterCtx, started)
	}()

	o.logger.Info("run started",
		logging.Int64("target", o.state.Target()),
		logging.Int("workers", o.opts.Workers),
		logging.Int("max_in_flight", o.maxIn),
		logging.String("generator", o.deps.Generator.Name()),
	)

	o.setPhase(PhaseRunning)
	fatal := o.running(ctx, sc, workers, persistCtx)
	if errors.Is(fatal, ErrForcedShutdown) {
		return o.forceStop(cancelWorkers, cancelPersist, cancelReporter, reporterDone)
	}

	o.setPhase(PhaseDraining)
	o.state.Stop()
	workers.close()
	if err := o.drain(sc, workers, persistCtx); err != nil {
		return o.forceStop(cancelWorkers, cancelPersist, cancelReporter, reporterDone)
	}
	if fatal == nil {
		fatal = o.pendingFatal
	}
	cancelWorkers()

	select {
	case <-reporterDone:
	case <-time.After(o.opts.Grace):
		cancelReporter()
		<-reporterDone
	case <-sc.Forced():
		return o.forceStop(cancelWorkers, cancelPersist, cancelReporter, reporterDone)
	}

	o.flushTrace()
	o.setPhase(PhaseStopped)
	snap := o.Snapshot()
	if fatal != nil {
		logging.ErrorWithContext(o.logger, "run stopped on fatal error", "run_fatal", logging.Error(fatal))
	} else {
		o.logger.Info("run finished",
			logging.Int64("attempts", snap.Attempts),
			logging.Int64("matches", snap.Matches),
			logging.Bool("interrupted", o.state.ShutdownRequested()),
		)
	}
	return snap, fatal
}

// running is the Running phase loop. It returns nil when the run should
// drain normally, ErrForcedShutdown on a forced stop, or a fatal error.
func (o *Orchestrator) running(ctx context.Context, sc *ShutdownController, workers *pool, persistCtx context.Context) error {
	o.fill(workers)
	for {
		if o.pendingFatal != nil {
			return o.pendingFatal
		}
		if !o.state.Running() || o.state.ShutdownRequested() {
			return nil
		}
		if o.inFl.Load() == 0 && !o.fill(workers) {
			// Nothing in flight and nothing left to reserve.
			return nil
		}
		select {
		case res := <-workers.results:
			o.complete(persistCtx, res)
			o.fill(workers)
		case <-sc.Draining():
		case <-sc.Forced():
			return ErrForcedShutdown
		case <-ctx.Done():
			sc.Trigger()
		}
	}
}

// fill submits tasks until the in-flight bound is reached or no attempts
// remain. It reports whether anything was submitted.
func (o *Orchestrator) fill(workers *pool) bool {
	submitted := false
	for o.state.Running() && !o.state.ShutdownRequested() {
		if !o.sem.TryAcquire(1) {
			break
		}
		task, ok := o.proc.Plan(o.nextID + 1)
		if !ok {
			o.sem.Release(1)
			break
		}
		o.nextID = task.ID
		o.inFl.Add(1)
		workers.submit(task)
		submitted = true
	}
	return submitted
}

// drain awaits in-flight tasks for at most the grace window, persisting any
// matches they deliver. Tasks still running afterwards are abandoned.
func (o *Orchestrator) drain(sc *ShutdownController, workers *pool, persistCtx context.Context) error {
	deadline := time.NewTimer(o.opts.Grace)
	defer deadline.Stop()
	for o.inFl.Load() > 0 {
		select {
		case res := <-workers.results:
			o.complete(persistCtx, res)
		case <-deadline.C:
			o.logger.Warn("grace window elapsed; abandoning in-flight batches",
				logging.Int64("in_flight", o.inFl.Load()),
				logging.Duration("grace", o.opts.Grace),
			)
			return nil
		case <-sc.Forced():
			return ErrForcedShutdown
		}
	}
	return nil
}

// complete accounts a finished task on the Orchestrator goroutine.
func (o *Orchestrator) complete(ctx context.Context, res taskResult) {
	o.inFl.Add(-1)
	o.sem.Release(1)

	if res.err != nil {
		o.state.addGenerationError()
		o.consecutiveFailures++
		o.logger.Warn("batch generation failed",
			logging.Uint64(logging.FieldBatchID, res.BatchID),
			logging.Error(res.err),
			logging.String(logging.FieldEventType, "generation_failed"),
			logging.String(logging.FieldImpact, "batch contributes no progress"),
		)
		if limit := o.opts.MaxConsecutiveFailures; limit > 0 && o.consecutiveFailures >= limit && o.pendingFatal == nil {
			o.pendingFatal = fmt.Errorf("%w: %d consecutive failures: %w", ErrGeneratorFailing, o.consecutiveFailures, res.err)
		}
		return
	}
	if res.Attempts > 0 {
		o.consecutiveFailures = 0
	}

	if o.deps.Trace != nil && len(res.Batch) > 0 {
		if err := o.deps.Trace.Write(res.Batch); err != nil {
			logging.WarnWithContext(o.logger, "trace write failed", "trace_write_failed",
				logging.Uint64(logging.FieldBatchID, res.BatchID),
				logging.Error(err),
				logging.String(logging.FieldImpact, "trace log is incomplete"),
			)
		}
	}

	if len(res.Matches) == 0 {
		return
	}
	if err := o.persist(ctx, res.BatchID, res.Matches); err != nil {
		if o.pendingFatal == nil {
			o.pendingFatal = err
		}
		return
	}
	o.state.addMatches(len(res.Matches))
	o.logger.Info("matches persisted",
		logging.Uint64(logging.FieldBatchID, res.BatchID),
		logging.Int("matches", len(res.Matches)),
	)
	if o.deps.AfterPersist != nil {
		o.deps.AfterPersist()
	}
}

func (o *Orchestrator) persist(ctx context.Context, batchID uint64, matches []generator.Candidate) error {
	attempts := 0
	err := retry.Do(
		func() error {
			attempts++
			return o.deps.Sink.Persist(ctx, batchID, matches)
		},
		retry.Context(ctx),
		retry.Attempts(uint(o.opts.MaxRetries)),
		retry.Delay(o.opts.RetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			o.logger.Warn("persist matches failed; retrying",
				logging.Uint64(logging.FieldBatchID, batchID),
				logging.Int("attempt", int(n)+1),
				logging.Int("max_attempts", o.opts.MaxRetries),
				logging.Error(err),
			)
		}),
	)
	if err != nil {
		return &PersistenceError{BatchID: batchID, Matches: len(matches), Attempts: attempts, Err: err}
	}
	return nil
}

func (o *Orchestrator) forceStop(cancelWorkers, cancelPersist, cancelReporter context.CancelFunc, reporterDone <-chan struct{}) (Snapshot, error) {
	cancelWorkers()
	cancelPersist()
	cancelReporter()
	select {
	case <-reporterDone:
	case <-time.After(o.opts.Grace):
	}
	o.flushTrace()
	o.setPhase(PhaseStopped)
	o.logger.Warn("run force-stopped; in-flight batches abandoned",
		logging.Int64("in_flight", o.inFl.Load()),
		logging.String(logging.FieldEventType, "forced_shutdown"),
	)
	snap := o.Snapshot()
	snap.Forced = true
	return snap, ErrForcedShutdown
}

func (o *Orchestrator) flushTrace() {
	if o.deps.Trace == nil {
		return
	}
	if err := o.deps.Trace.Flush(); err != nil {
		logging.WarnWithContext(o.logger, "trace flush failed", "trace_flush_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "trace log is incomplete"),
		)
	}
}

// Snapshot captures the counters for stats rendering.
func (o *Orchestrator) Snapshot() Snapshot {
	var elapsed time.Duration
	if ns := o.started.Load(); ns != 0 {
		elapsed = o.now().Sub(time.Unix(0, ns))
	}
	return Snapshot{
		Elapsed:          elapsed,
		Target:           o.state.Target(),
		Attempts:         o.state.Attempts(),
		Matches:          o.state.Matches(),
		GenerationErrors: o.state.GenerationErrors(),
		DroppedSamples:   o.queue.Dropped(),
		BatchSize:        o.proc.BatchSize(),
		Multiplier:       o.state.Multiplier(),
		Workers:          o.opts.Workers,
		Interrupted:      o.state.ShutdownRequested(),
	}
}
