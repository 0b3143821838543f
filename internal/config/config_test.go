package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"sieve/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "sieve")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.TargetsFile != filepath.Join(wantData, "targets.txt") {
		t.Fatalf("unexpected targets file: %q", cfg.Paths.TargetsFile)
	}
	if cfg.Paths.FoundFile != filepath.Join(wantData, "found.txt") {
		t.Fatalf("unexpected found file: %q", cfg.Paths.FoundFile)
	}
	if cfg.Paths.HistoryDB != filepath.Join(wantData, "history.db") {
		t.Fatalf("unexpected history db: %q", cfg.Paths.HistoryDB)
	}
	if cfg.Run.Workers != config.DefaultWorkers() {
		t.Fatalf("expected default workers %d, got %d", config.DefaultWorkers(), cfg.Run.Workers)
	}
	if cfg.Batch.BaseSize != 5000 {
		t.Fatalf("unexpected base batch size: %d", cfg.Batch.BaseSize)
	}
	if cfg.Batch.InitialMultiplier != 2 || cfg.Batch.MinMultiplier != 1 || cfg.Batch.MaxMultiplier != 4 {
		t.Fatalf("unexpected multiplier bounds: %+v", cfg.Batch)
	}
	if cfg.GraceWindow().Milliseconds() != 500 {
		t.Fatalf("unexpected grace window: %s", cfg.GraceWindow())
	}
	if !cfg.History.Enabled {
		t.Fatal("expected history enabled by default")
	}
}

func TestLoadCustomConfigOverridesDefaults(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(tempHome, "config.toml")
	payload := map[string]any{
		"paths": map[string]any{
			"data_dir":     "~/sieve-data",
			"targets_file": "~/lists/rich.txt",
		},
		"run": map[string]any{
			"workers":      1,
			"target_count": 1000,
			"trace":        true,
		},
		"batch": map[string]any{
			"base_size": 250,
		},
		"logging": map[string]any{
			"format": "JSON",
			"level":  "Debug",
		},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected config at %q, got %q (exists=%v)", configPath, resolved, exists)
	}
	if cfg.Paths.TargetsFile != filepath.Join(tempHome, "lists", "rich.txt") {
		t.Fatalf("unexpected targets file: %q", cfg.Paths.TargetsFile)
	}
	if cfg.Paths.FoundFile != filepath.Join(tempHome, "sieve-data", "found.txt") {
		t.Fatalf("found file should default inside data dir, got %q", cfg.Paths.FoundFile)
	}
	if cfg.Run.TargetCount != 1000 || !cfg.Run.Trace {
		t.Fatalf("unexpected run section: %+v", cfg.Run)
	}
	if cfg.ProgressEvery() != 5000 {
		t.Fatalf("progress interval should stay at 5000 for small batches, got %d", cfg.ProgressEvery())
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("expected normalized logging values, got %+v", cfg.Logging)
	}
	if err := cfg.ValidateRun(); err != nil {
		t.Fatalf("ValidateRun returned error: %v", err)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("SIEVE_TARGETS_FILE", filepath.Join(tempHome, "env-targets.txt"))
	t.Setenv("SIEVE_LOG_LEVEL", "WARN")

	cfg, _, _, err := config.Load(filepath.Join(tempHome, "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.TargetsFile != filepath.Join(tempHome, "env-targets.txt") {
		t.Fatalf("expected env targets file, got %q", cfg.Paths.TargetsFile)
	}
	if cfg.Logging.Level != "warn" {
		t.Fatalf("expected env log level, got %q", cfg.Logging.Level)
	}
}

func TestProgressEveryTracksLargeBatches(t *testing.T) {
	cfg := config.Default()
	cfg.Batch.BaseSize = 20000
	if got := cfg.ProgressEvery(); got != 20000 {
		t.Fatalf("ProgressEvery = %d, want 20000", got)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"inverted multiplier bounds", func(c *config.Config) { c.Batch.MaxMultiplier = 0.5 }, "batch.max_multiplier"},
		{"initial outside bounds", func(c *config.Config) { c.Batch.InitialMultiplier = 8 }, "batch.initial_multiplier"},
		{"shrink factor above one", func(c *config.Config) { c.Batch.ShrinkFactor = 1.2 }, "batch.shrink_factor"},
		{"grow factor not growing", func(c *config.Config) { c.Batch.GrowFactor = 1 }, "batch.grow_factor"},
		{"water marks inverted", func(c *config.Config) { c.Batch.HighWater = 10 }, "batch.high_water"},
		{"zero channel capacity", func(c *config.Config) { c.Reporting.ChannelCapacity = 0 }, "reporting.channel_capacity"},
		{"zero grace", func(c *config.Config) { c.Shutdown.GraceMS = 0 }, "shutdown.grace_ms"},
		{"too many workers", func(c *config.Config) { c.Run.Workers = config.MaxWorkers() + 1 }, "run.workers"},
		{"memory limit", func(c *config.Config) { c.Process.MemoryLimit = 1.5 }, "process.memory_limit"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"generator kind", func(c *config.Config) { c.Generator.Kind = "gpu" }, "generator.kind"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateRunRequiresTarget(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.TargetsFile = "/tmp/targets.txt"
	cfg.Paths.FoundFile = "/tmp/found.txt"
	cfg.Paths.TraceFile = "/tmp/trace.log"
	if err := cfg.ValidateRun(); err == nil || !strings.Contains(err.Error(), "run.target_count") {
		t.Fatalf("expected target_count error, got %v", err)
	}
	cfg.Run.TargetCount = 10
	if err := cfg.ValidateRun(); err != nil {
		t.Fatalf("ValidateRun returned error: %v", err)
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if cfg.Generator.Kind != "p2pkh" {
		t.Fatalf("unexpected generator kind: %q", cfg.Generator.Kind)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	cfg := config.Default()
	out, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if !strings.Contains(out, "base_size = 5000") {
		t.Fatalf("encoded config missing batch section:\n%s", out)
	}
}
