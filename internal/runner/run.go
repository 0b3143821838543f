package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"

	"sieve/internal/config"
	"sieve/internal/engine"
	"sieve/internal/generator"
	"sieve/internal/history"
	"sieve/internal/index"
	"sieve/internal/logging"
	"sieve/internal/metrics"
	"sieve/internal/preflight"
	"sieve/internal/sink"
	"sieve/internal/sysres"
)

// Options configures process-level run behavior.
type Options struct {
	// Out receives the live progress display and final statistics.
	Out io.Writer
	// Signals overrides the OS interrupt channel.
	Signals <-chan os.Signal
	// Generator overrides the configured generator kind.
	Generator generator.Generator
	// SkipPreflight disables the startup checks.
	SkipPreflight bool
}

// Result summarizes a finished run.
type Result struct {
	RunID    string
	Snapshot engine.Snapshot
	Stats    string
}

// Run executes one pipeline run. The returned error is nil for a completed
// or gracefully interrupted run; a forced stop returns
// engine.ErrForcedShutdown.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (Result, error) {
	if cfg == nil {
		return Result{}, errors.New("config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if err := cfg.ValidateRun(); err != nil {
		return Result{}, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return Result{}, err
	}

	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	base := logging.WithContext(ctx, logger)
	logger = logging.NewComponentLogger(base, "runner")
	result := Result{RunID: runID}

	if !opts.SkipPreflight {
		checks := preflight.RunAll(ctx, cfg)
		for _, check := range checks {
			if check.Advisory && !check.Passed {
				logging.WarnWithContext(logger, "preflight advisory", "preflight_advisory",
					logging.String("check", check.Name),
					logging.String("detail", check.Detail),
				)
			}
		}
		if err := preflight.Err(checks); err != nil {
			return result, err
		}
	}

	if cfg.Process.LowPriority {
		if err := sysres.LowerPriority(); err != nil {
			logging.WarnWithContext(logger, "unable to lower process priority", "priority_unchanged",
				logging.Error(err),
				logging.String(logging.FieldImpact, "run competes with interactive work"),
			)
		}
	}

	idx, err := index.Load(cfg.Paths.TargetsFile)
	if err != nil {
		return result, err
	}
	logger.Info("targets loaded",
		logging.String("source", idx.Source()),
		logging.Int("targets", idx.Len()),
	)
	if idx.Len() == 0 {
		logging.WarnWithContext(logger, "targets file is empty", "empty_index",
			logging.String(logging.FieldImpact, "no candidate can match"),
		)
	}

	gen := opts.Generator
	if gen == nil {
		gen, err = generator.New(cfg.Generator.Kind)
		if err != nil {
			return result, err
		}
	}

	found, err := sink.OpenFound(cfg.Paths.FoundFile, base)
	if err != nil {
		return result, err
	}
	defer func() {
		if cerr := found.Close(); cerr != nil {
			logger.Warn("close found file", logging.Error(cerr))
		}
	}()

	var trace *sink.Trace
	if cfg.Run.Trace {
		trace, err = sink.OpenTrace(cfg.Paths.TraceFile, cfg.Persistence.TraceFlushEvery)
		if err != nil {
			return result, err
		}
		defer func() {
			if cerr := trace.Close(); cerr != nil {
				logger.Warn("close trace file", logging.Error(cerr))
			}
		}()
	}

	store := openHistory(ctx, cfg, logger, history.Run{
		ID:        runID,
		StartedAt: time.Now(),
		Generator: gen.Name(),
		Workers:   cfg.Run.Workers,
		Target:    cfg.Run.TargetCount,
	})
	if store != nil {
		defer store.Close()
	}

	m := metrics.New()
	var matchSink engine.MatchSink = history.NewRecorder(found, store, runID, base)
	matchSink = m.InstrumentSink(matchSink)

	state := engine.NewRunState(cfg.Run.TargetCount, cfg.Batch.InitialMultiplier, cfg.Batch.MinMultiplier, cfg.Batch.MaxMultiplier)
	deps := engine.Deps{
		Generator:    gen,
		Index:        idx,
		Sink:         matchSink,
		Out:          opts.Out,
		Logger:       base,
		AfterPersist: memoryWatcher(cfg.Process.MemoryLimit, logger),
	}
	if trace != nil {
		deps.Trace = trace
	}
	orch, err := engine.New(engineOptions(cfg, isTerminal(opts.Out)), deps, state)
	if err != nil {
		return result, err
	}

	if cfg.Metrics.Listen != "" {
		if err := m.Register(orch); err != nil {
			return result, err
		}
		srv, err := metrics.Serve(cfg.Metrics.Listen, m, base)
		if err != nil {
			return result, err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	controller := engine.NewShutdownController(state, base)
	signals := opts.Signals
	if signals == nil {
		ch := make(chan os.Signal, 2)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(ch)
		signals = ch
	}
	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go controller.Watch(watchCtx, signals)

	snap, runErr := orch.Run(ctx, controller)
	result.Snapshot = snap
	result.Stats = engine.RenderStats(snap)

	if store != nil {
		outcome := history.Outcome{
			Status:   outcomeStatus(snap, runErr),
			Attempts: snap.Attempts,
			Matches:  snap.Matches,
			Err:      runErr,
		}
		if err := store.FinishRun(context.Background(), runID, outcome); err != nil {
			logging.WarnWithContext(logger, "history finish failed", "history_finish_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "run history shows the run as running"),
			)
		}
	}

	fmt.Fprint(opts.Out, result.Stats)
	if runErr != nil && !errors.Is(runErr, engine.ErrForcedShutdown) {
		logging.ErrorWithContext(logger, "run failed", "run_failed",
			logging.Error(runErr),
			logging.String(logging.FieldErrorHint, errorHint(runErr)),
		)
	}
	return result, runErr
}

func engineOptions(cfg *config.Config, redraw bool) engine.Options {
	return engine.Options{
		Workers:                cfg.Run.Workers,
		FanOut:                 cfg.Run.FanOut,
		BaseSize:               cfg.Batch.BaseSize,
		SampleEvery:            cfg.Reporting.SampleEvery,
		QueueCapacity:          cfg.Reporting.ChannelCapacity,
		Grace:                  cfg.GraceWindow(),
		MaxRetries:             cfg.Persistence.MaxRetries,
		RetryDelay:             cfg.RetryDelay(),
		MaxConsecutiveFailures: cfg.Generator.MaxConsecutiveFailures,
		Sizer: engine.SizerConfig{
			Warmup:    cfg.Warmup(),
			LowWater:  cfg.Batch.LowWater,
			HighWater: cfg.Batch.HighWater,
			Grow:      cfg.Batch.GrowFactor,
			Shrink:    cfg.Batch.ShrinkFactor,
		},
		Reporter: engine.ReporterConfig{
			SampleInterval: cfg.SampleInterval(),
			ReceiveTimeout: cfg.ReceiveTimeout(),
			ProgressEvery:  cfg.ProgressEvery(),
			BaseSize:       cfg.Batch.BaseSize,
			Redraw:         redraw,
		},
	}
}

func openHistory(ctx context.Context, cfg *config.Config, logger *slog.Logger, run history.Run) *history.Store {
	if !cfg.History.Enabled {
		return nil
	}
	store, err := history.Open(ctx, cfg.Paths.HistoryDB)
	if err != nil {
		logging.WarnWithContext(logger, "history store unavailable", "history_unavailable",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run is not recorded in history"),
		)
		return nil
	}
	if err := store.BeginRun(ctx, run); err != nil {
		logging.WarnWithContext(logger, "history begin failed", "history_unavailable",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run is not recorded in history"),
		)
		_ = store.Close()
		return nil
	}
	return store
}

// memoryWatcher returns a hook that warns each time the footprint crosses
// above limit. A non-positive limit disables it.
func memoryWatcher(limit float64, logger *slog.Logger) func() {
	if limit <= 0 {
		return nil
	}
	warned := false
	return func() {
		usage, err := sysres.Memory()
		if err != nil {
			return
		}
		over := usage.Exceeds(limit)
		if over && !warned {
			logging.WarnWithContext(logger, "memory usage above limit", "memory_pressure",
				logging.Float64("rss_percent", usage.Percent()),
				logging.Uint64("rss_bytes", usage.ProcessBytes),
				logging.Float64("limit_percent", limit*100),
				logging.String(logging.FieldErrorHint, "lower run.workers or batch.base_size"),
			)
		}
		warned = over
	}
}

func outcomeStatus(snap engine.Snapshot, err error) history.Status {
	switch {
	case errors.Is(err, engine.ErrForcedShutdown):
		return history.StatusForced
	case err != nil:
		return history.StatusFailed
	case snap.Interrupted:
		return history.StatusInterrupted
	default:
		return history.StatusCompleted
	}
}

func errorHint(err error) string {
	var perr *engine.PersistenceError
	switch {
	case errors.As(err, &perr):
		return "check free space and permissions for the found file"
	case errors.Is(err, engine.ErrGeneratorFailing):
		return "the candidate generator keeps failing; check entropy source"
	default:
		return "check logs for details"
	}
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
