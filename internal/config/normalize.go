package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRun()
	c.normalizeReporting()
	c.normalizeGenerator()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("SIEVE_TARGETS_FILE"); ok && strings.TrimSpace(value) != "" {
		c.Paths.TargetsFile = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}

	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}

	fields := []struct {
		key      string
		value    *string
		fallback string
	}{
		{"paths.targets_file", &c.Paths.TargetsFile, defaultTargetsFileName},
		{"paths.found_file", &c.Paths.FoundFile, defaultFoundFileName},
		{"paths.trace_file", &c.Paths.TraceFile, defaultTraceFileName},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDirName},
		{"paths.history_db", &c.Paths.HistoryDB, defaultHistoryDBName},
	}
	for _, field := range fields {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = filepath.Join(c.Paths.DataDir, field.fallback)
		}
		if *field.value, err = expandPath(strings.TrimSpace(*field.value)); err != nil {
			return fmt.Errorf("%s: %w", field.key, err)
		}
	}
	return nil
}

func (c *Config) normalizeRun() {
	if c.Run.Workers <= 0 {
		c.Run.Workers = DefaultWorkers()
	}
	if limit := MaxWorkers(); c.Run.Workers > limit {
		c.Run.Workers = limit
	}
	if c.Run.FanOut <= 0 {
		c.Run.FanOut = defaultFanOut
	}
}

func (c *Config) normalizeReporting() {
	if c.Reporting.SampleEvery <= 0 {
		c.Reporting.SampleEvery = defaultSampleEvery
	}
	if c.Reporting.ProgressInterval <= 0 {
		c.Reporting.ProgressInterval = defaultProgressInterval
	}
}

// ProgressEvery returns the attempts interval between progress recomputations.
// It never drops below the base batch size.
func (c *Config) ProgressEvery() int64 {
	return max(c.Reporting.ProgressInterval, int64(c.Batch.BaseSize))
}

func (c *Config) normalizeGenerator() {
	c.Generator.Kind = strings.ToLower(strings.TrimSpace(c.Generator.Kind))
	if c.Generator.Kind == "" {
		c.Generator.Kind = defaultGeneratorKind
	}
}

func (c *Config) normalizeLogging() {
	if value, ok := os.LookupEnv("SIEVE_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
