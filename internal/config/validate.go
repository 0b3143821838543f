package config

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"sieve/internal/generator"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRun(); err != nil {
		return err
	}
	if err := c.validateBatch(); err != nil {
		return err
	}
	if err := c.validateTimings(); err != nil {
		return err
	}
	if err := c.validateGenerator(); err != nil {
		return err
	}
	if err := c.validateProcess(); err != nil {
		return err
	}
	return c.validateLogging()
}

// ValidateRun checks the parameters that must be known before a run starts.
// The target count is usually supplied on the command line, so Validate
// accepts zero and this check runs after flag overrides are applied.
func (c *Config) ValidateRun() error {
	if c.Run.TargetCount <= 0 {
		return errors.New("run.target_count must be positive (set it in the config or pass --target)")
	}
	if strings.TrimSpace(c.Paths.TargetsFile) == "" {
		return errors.New("paths.targets_file must be set")
	}
	if c.Paths.FoundFile == c.Paths.TraceFile {
		return errors.New("paths.found_file and paths.trace_file must differ")
	}
	return c.validateRun()
}

func (c *Config) validateRun() error {
	if c.Run.TargetCount < 0 {
		return errors.New("run.target_count must not be negative")
	}
	if c.Run.Workers < 1 || c.Run.Workers > MaxWorkers() {
		return fmt.Errorf("run.workers must be between 1 and %d", MaxWorkers())
	}
	return ensurePositiveMap(map[string]int{
		"run.fan_out": c.Run.FanOut,
	})
}

func (c *Config) validateBatch() error {
	if err := ensurePositiveMap(map[string]int{
		"batch.base_size":               c.Batch.BaseSize,
		"reporting.channel_capacity":    c.Reporting.ChannelCapacity,
		"reporting.sample_every":        c.Reporting.SampleEvery,
		"persistence.max_retries":       c.Persistence.MaxRetries,
		"persistence.trace_flush_every": c.Persistence.TraceFlushEvery,
	}); err != nil {
		return err
	}
	b := c.Batch
	if b.MinMultiplier < 1 {
		return errors.New("batch.min_multiplier must be at least 1")
	}
	if b.MaxMultiplier < b.MinMultiplier {
		return errors.New("batch.max_multiplier must be greater than or equal to batch.min_multiplier")
	}
	if b.InitialMultiplier < b.MinMultiplier || b.InitialMultiplier > b.MaxMultiplier {
		return errors.New("batch.initial_multiplier must lie within [batch.min_multiplier, batch.max_multiplier]")
	}
	if b.GrowFactor <= 1 {
		return errors.New("batch.grow_factor must be greater than 1")
	}
	if b.ShrinkFactor <= 0 || b.ShrinkFactor >= 1 {
		return errors.New("batch.shrink_factor must be between 0 and 1 (exclusive)")
	}
	if b.LowWater < 0 || b.HighWater <= b.LowWater {
		return errors.New("batch.high_water must be greater than batch.low_water")
	}
	if b.WarmupSeconds < 0 {
		return errors.New("batch.warmup_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateTimings() error {
	if err := ensurePositiveMap(map[string]int{
		"reporting.sample_interval_ms": c.Reporting.SampleIntervalMS,
		"reporting.receive_timeout_ms": c.Reporting.ReceiveTimeoutMS,
		"shutdown.grace_ms":            c.Shutdown.GraceMS,
	}); err != nil {
		return err
	}
	if c.Persistence.RetryDelayMS < 0 {
		return errors.New("persistence.retry_delay_ms must not be negative")
	}
	return nil
}

func (c *Config) validateGenerator() error {
	if c.Generator.MaxConsecutiveFailures < 0 {
		return errors.New("generator.max_consecutive_failures must not be negative")
	}
	if !slices.Contains(generator.Kinds(), c.Generator.Kind) {
		return fmt.Errorf("generator.kind: unsupported value %q (available: %s)", c.Generator.Kind, strings.Join(generator.Kinds(), ", "))
	}
	return nil
}

func (c *Config) validateProcess() error {
	if c.Process.MemoryLimit <= 0 || c.Process.MemoryLimit > 1 {
		return errors.New("process.memory_limit must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
