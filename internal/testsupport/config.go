package testsupport

import (
	"path/filepath"
	"testing"

	"sieve/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options. The targets
// file path is set but not created; use WithTargets or WriteTargets.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.TargetsFile = filepath.Join(base, "targets.txt")
	cfgVal.Paths.FoundFile = filepath.Join(base, "data", "found.txt")
	cfgVal.Paths.TraceFile = filepath.Join(base, "data", "trace.log")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.HistoryDB = filepath.Join(base, "data", "history.db")
	cfgVal.Run.Workers = min(2, config.MaxWorkers())
	cfgVal.Run.TargetCount = 1000
	cfgVal.Batch.BaseSize = 100
	cfgVal.Reporting.ProgressInterval = 500
	cfgVal.Persistence.RetryDelayMS = 1
	cfgVal.Process.LowPriority = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithTargets writes the identifiers to the config's targets file.
func WithTargets(ids ...string) ConfigOption {
	return func(b *configBuilder) {
		WriteTargets(b.t, b.cfg.Paths.TargetsFile, ids...)
	}
}

// WithTargetCount overrides the run's attempt target.
func WithTargetCount(n int64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Run.TargetCount = n
	}
}

// WithTrace enables the full trace log.
func WithTrace() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Run.Trace = true
	}
}

// WithoutHistory disables the SQLite run history.
func WithoutHistory() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = false
	}
}

// BaseDir returns the temp root used for the config's paths.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.TargetsFile)
}
