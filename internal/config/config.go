package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains file and directory locations.
type Paths struct {
	DataDir     string `toml:"data_dir"`
	TargetsFile string `toml:"targets_file"`
	FoundFile   string `toml:"found_file"`
	TraceFile   string `toml:"trace_file"`
	LogDir      string `toml:"log_dir"`
	HistoryDB   string `toml:"history_db"`
}

// Run contains the per-run parameters usually overridden from the CLI.
type Run struct {
	Workers     int   `toml:"workers"`
	TargetCount int64 `toml:"target_count"`
	FanOut      int   `toml:"fan_out"`
	Trace       bool  `toml:"trace"`
}

// Batch contains the adaptive batch sizing policy.
type Batch struct {
	BaseSize          int     `toml:"base_size"`
	InitialMultiplier float64 `toml:"initial_multiplier"`
	MinMultiplier     float64 `toml:"min_multiplier"`
	MaxMultiplier     float64 `toml:"max_multiplier"`
	WarmupSeconds     int     `toml:"warmup_seconds"`
	LowWater          float64 `toml:"low_water"`
	HighWater         float64 `toml:"high_water"`
	GrowFactor        float64 `toml:"grow_factor"`
	ShrinkFactor      float64 `toml:"shrink_factor"`
}

// Reporting contains the live progress display settings.
type Reporting struct {
	ChannelCapacity  int   `toml:"channel_capacity"`
	SampleEvery      int   `toml:"sample_every"`
	SampleIntervalMS int   `toml:"sample_interval_ms"`
	ProgressInterval int64 `toml:"progress_interval"`
	ReceiveTimeoutMS int   `toml:"receive_timeout_ms"`
}

// Shutdown contains the cancellation protocol timings.
type Shutdown struct {
	GraceMS int `toml:"grace_ms"`
}

// Persistence contains match sink and trace log settings.
type Persistence struct {
	MaxRetries      int `toml:"max_retries"`
	RetryDelayMS    int `toml:"retry_delay_ms"`
	TraceFlushEvery int `toml:"trace_flush_every"`
}

// Generator selects the candidate generator.
type Generator struct {
	Kind                   string `toml:"kind"`
	MaxConsecutiveFailures int    `toml:"max_consecutive_failures"`
}

// History controls the SQLite run history.
type History struct {
	Enabled bool `toml:"enabled"`
}

// Metrics controls the optional Prometheus endpoint.
type Metrics struct {
	Listen string `toml:"listen"`
}

// Process contains host resource settings.
type Process struct {
	LowPriority bool    `toml:"low_priority"`
	MemoryLimit float64 `toml:"memory_limit"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for sieve.
//
// Configuration sections by subsystem:
//   - Paths: targets file, match sink, trace log, logs, history database
//   - Run: worker count, target count, fan-out, trace toggle
//   - Batch: base batch size and the adaptive multiplier policy
//   - Reporting: sampling channel and progress cadence
//   - Shutdown: grace window for draining
//   - Persistence: sink retries and trace flushing
//   - Generator: candidate generator selection and failure budget
//   - History: SQLite run history
//   - Metrics: Prometheus listener
//   - Process: priority and memory warning threshold
//   - Logging: log format and level
type Config struct {
	Paths       Paths       `toml:"paths"`
	Run         Run         `toml:"run"`
	Batch       Batch       `toml:"batch"`
	Reporting   Reporting   `toml:"reporting"`
	Shutdown    Shutdown    `toml:"shutdown"`
	Persistence Persistence `toml:"persistence"`
	Generator   Generator   `toml:"generator"`
	History     History     `toml:"history"`
	Metrics     Metrics     `toml:"metrics"`
	Process     Process     `toml:"process"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("sieve.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a run writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.LogDir, filepath.Dir(c.Paths.FoundFile)}
	if c.Run.Trace {
		dirs = append(dirs, filepath.Dir(c.Paths.TraceFile))
	}
	if c.History.Enabled {
		dirs = append(dirs, filepath.Dir(c.Paths.HistoryDB))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// GraceWindow returns the draining grace window.
func (c *Config) GraceWindow() time.Duration {
	return time.Duration(c.Shutdown.GraceMS) * time.Millisecond
}

// SampleInterval returns the minimum spacing between sample lines.
func (c *Config) SampleInterval() time.Duration {
	return time.Duration(c.Reporting.SampleIntervalMS) * time.Millisecond
}

// ReceiveTimeout returns the reporter's bounded receive timeout.
func (c *Config) ReceiveTimeout() time.Duration {
	return time.Duration(c.Reporting.ReceiveTimeoutMS) * time.Millisecond
}

// RetryDelay returns the initial persistence retry delay.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Persistence.RetryDelayMS) * time.Millisecond
}

// Warmup returns the adaptive sizer warm-up interval.
func (c *Config) Warmup() time.Duration {
	return time.Duration(c.Batch.WarmupSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() (string, error) {
	var b strings.Builder
	enc := toml.NewEncoder(&b)
	enc.SetIndentTables(true)
	if err := enc.Encode(c); err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return b.String(), nil
}
