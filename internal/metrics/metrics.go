// Package metrics exposes run counters in Prometheus format.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sieve/internal/engine"
	"sieve/internal/generator"
	"sieve/internal/logging"
)

const namespace = "sieve"

// Source supplies live run counters.
type Source interface {
	Snapshot() engine.Snapshot
	InFlight() int64
}

// Metrics owns a registry with the run collectors.
type Metrics struct {
	registry        *prometheus.Registry
	persistDuration *prometheus.HistogramVec
	persistFailures prometheus.Counter
}

// New creates a registry holding the sink instrumentation. Run counters are
// added with Register once the pipeline exists.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		persistDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "persist_duration_seconds",
			Help:      "Latency of match sink writes",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		persistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_failures_total",
			Help:      "Match sink writes that returned an error",
		}),
	}
	m.registry.MustRegister(m.persistDuration, m.persistFailures)
	return m
}

// Register adds collectors reading the live counters from src.
func (m *Metrics) Register(src Source) error {
	counter := func(name, help string, read func(engine.Snapshot) int64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(read(src.Snapshot())) })
	}

	collectors := []prometheus.Collector{
		counter("attempts_total", "Candidates generated and checked", func(s engine.Snapshot) int64 { return s.Attempts }),
		counter("matches_total", "Matches persisted to the found file", func(s engine.Snapshot) int64 { return s.Matches }),
		counter("generation_errors_total", "Failed batch generation requests", func(s engine.Snapshot) int64 { return s.GenerationErrors }),
		counter("samples_dropped_total", "Display samples dropped because the reporting queue was full", func(s engine.Snapshot) int64 { return s.DroppedSamples }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "target_attempts",
			Help:      "Attempts the run aims for",
		}, func() float64 { return float64(src.Snapshot().Target) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batch_multiplier",
			Help:      "Current adaptive batch size multiplier",
		}, func() float64 { return src.Snapshot().Multiplier }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "inflight_tasks",
			Help:      "Batches submitted and not yet drained",
		}, func() float64 { return float64(src.InFlight()) }),
	}
	for _, c := range collectors {
		if err := m.registry.Register(c); err != nil {
			return fmt.Errorf("register collector: %w", err)
		}
	}
	return nil
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// MatchSink mirrors the engine's sink contract.
type MatchSink interface {
	Persist(ctx context.Context, batchID uint64, matches []generator.Candidate) error
}

type instrumentedSink struct {
	next MatchSink
	m    *Metrics
}

// InstrumentSink times every Persist call on next.
func (m *Metrics) InstrumentSink(next MatchSink) MatchSink {
	return &instrumentedSink{next: next, m: m}
}

func (s *instrumentedSink) Persist(ctx context.Context, batchID uint64, matches []generator.Candidate) error {
	start := time.Now()
	err := s.next.Persist(ctx, batchID, matches)
	status := "ok"
	if err != nil {
		status = "error"
		s.m.persistFailures.Inc()
	}
	s.m.persistDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	return err
}

// Server serves /metrics until shut down.
type Server struct {
	srv    *http.Server
	ln     net.Listener
	logger *slog.Logger
	done   chan struct{}
}

// Serve starts an HTTP listener on addr exposing m at /metrics.
func Serve(addr string, m *Metrics, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	s := &Server{
		srv:    &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		ln:     ln,
		logger: logging.NewComponentLogger(logger, "metrics"),
		done:   make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Warn("metrics server stopped", logging.Error(err))
		}
	}()
	s.logger.Info("metrics endpoint listening", logging.String("addr", ln.Addr().String()))
	return s, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string { return s.ln.Addr().String() }

// Shutdown stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.srv.Shutdown(ctx)
	<-s.done
	return err
}
