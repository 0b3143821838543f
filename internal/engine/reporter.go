package engine

import (
	"context"
	"io"
	"sync"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/time/rate"

	"sieve/internal/logging"
)

// ReporterConfig controls the live display cadence.
type ReporterConfig struct {
	// SampleInterval is the minimum spacing between sample lines.
	SampleInterval time.Duration
	// ReceiveTimeout bounds each wait on the sample queue.
	ReceiveTimeout time.Duration
	// ProgressEvery is the attempts interval between progress lines.
	ProgressEvery int64
	// BaseSize is multiplied by the current multiplier for display.
	BaseSize int
	// Redraw rewrites the progress line in place (terminal output).
	Redraw bool
}

// Reporter is the single consumer of the sample queue. It prints throttled
// sample lines, recomputes progress at interval crossings, and consults the
// Sizer at each crossing.
type Reporter struct {
	cfg     ReporterConfig
	out     io.Writer
	state   *RunState
	queue   *SampleQueue
	sizer   *Sizer
	sampler *logging.ProgressSampler
	limiter *rate.Sometimes
	printer *message.Printer
	now     func() time.Time
	started time.Time

	mu    sync.Mutex
	lines int
}

// NewReporter creates a reporter writing to out.
func NewReporter(cfg ReporterConfig, out io.Writer, state *RunState, queue *SampleQueue, sizer *Sizer) *Reporter {
	if cfg.SampleInterval <= 0 {
		cfg.SampleInterval = 100 * time.Millisecond
	}
	if cfg.ReceiveTimeout <= 0 {
		cfg.ReceiveTimeout = 100 * time.Millisecond
	}
	if out == nil {
		out = io.Discard
	}
	return &Reporter{
		cfg:     cfg,
		out:     out,
		state:   state,
		queue:   queue,
		sizer:   sizer,
		sampler: logging.NewProgressSampler(cfg.ProgressEvery),
		limiter: &rate.Sometimes{Interval: cfg.SampleInterval},
		printer: message.NewPrinter(language.English),
		now:     time.Now,
	}
}

// Run consumes samples until the run has stopped and the queue is empty, or
// until ctx is cancelled. started is the run's start time for speed figures.
func (r *Reporter) Run(ctx context.Context, started time.Time) {
	r.started = started
	for {
		if ctx.Err() != nil {
			return
		}
		if !r.state.Running() && r.queue.Len() == 0 {
			r.finish()
			return
		}
		sample, ok, err := r.queue.Receive(ctx, r.cfg.ReceiveTimeout)
		if err != nil {
			return
		}
		if ok && !r.state.ShutdownRequested() {
			r.limiter.Do(func() { r.printSample(sample) })
		}
		r.checkProgress()
	}
}

// Lines returns how many lines the reporter has written.
func (r *Reporter) Lines() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lines
}

func (r *Reporter) checkProgress() {
	attempts := r.state.Attempts()
	if r.state.ShutdownRequested() || !r.sampler.ShouldLog(attempts) {
		return
	}
	elapsed := r.now().Sub(r.started)
	speed := throughput(attempts, elapsed)
	if r.sizer != nil {
		r.sizer.Adjust(elapsed, speed)
	}
	r.printProgress(attempts, speed)
}

func (r *Reporter) printProgress(attempts int64, speed float64) {
	size := int64(float64(r.cfg.BaseSize) * r.state.Multiplier())
	line := r.printer.Sprintf("Generated: %d/%d | Speed: %.0f c/s | Batch: %d",
		attempts, r.state.Target(), speed, size)
	if r.cfg.Redraw {
		r.write("\r" + line)
		return
	}
	r.write(line + "\n")
}

func (r *Reporter) printSample(s Sample) {
	line := r.printer.Sprintf("Candidate -> Identifier: %s | Secret: %s", s.Identifier, s.Secret)
	if r.cfg.Redraw {
		r.write("\n" + line)
		return
	}
	r.write(line + "\n")
}

// finish terminates a redrawn progress line so later output starts cleanly.
func (r *Reporter) finish() {
	if r.cfg.Redraw && r.Lines() > 0 {
		r.write("\n")
	}
}

func (r *Reporter) write(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = io.WriteString(r.out, s)
	r.lines++
}

func throughput(attempts int64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(attempts) / elapsed.Seconds()
}
