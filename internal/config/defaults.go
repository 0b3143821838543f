package config

import (
	"runtime"

	"sieve/internal/generator"
)

const (
	defaultConfigPath             = "~/.config/sieve/config.toml"
	defaultDataDir                = "~/.local/share/sieve"
	defaultTargetsFileName        = "targets.txt"
	defaultFoundFileName          = "found.txt"
	defaultTraceFileName          = "trace.log"
	defaultLogDirName             = "logs"
	defaultHistoryDBName          = "history.db"
	defaultFanOut                 = 8
	defaultBaseBatchSize          = 5000
	defaultInitialMultiplier      = 2
	defaultMinMultiplier          = 1
	defaultMaxMultiplier          = 4
	defaultWarmupSeconds          = 10
	defaultLowWater               = 10000
	defaultHighWater              = 50000
	defaultGrowFactor             = 1.5
	defaultShrinkFactor           = 0.8
	defaultChannelCapacity        = 5000
	defaultSampleEvery            = 10
	defaultSampleIntervalMS       = 100
	defaultProgressInterval       = 5000
	defaultReceiveTimeoutMS       = 100
	defaultGraceMS                = 500
	defaultMaxRetries             = 3
	defaultRetryDelayMS           = 100
	defaultTraceFlushEvery        = 1000
	defaultGeneratorKind          = generator.DefaultKind
	defaultMaxConsecutiveFailures = 50
	defaultMemoryLimit            = 0.75
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
		},
		Run: Run{
			Workers: DefaultWorkers(),
			FanOut:  defaultFanOut,
		},
		Batch: Batch{
			BaseSize:          defaultBaseBatchSize,
			InitialMultiplier: defaultInitialMultiplier,
			MinMultiplier:     defaultMinMultiplier,
			MaxMultiplier:     defaultMaxMultiplier,
			WarmupSeconds:     defaultWarmupSeconds,
			LowWater:          defaultLowWater,
			HighWater:         defaultHighWater,
			GrowFactor:        defaultGrowFactor,
			ShrinkFactor:      defaultShrinkFactor,
		},
		Reporting: Reporting{
			ChannelCapacity:  defaultChannelCapacity,
			SampleEvery:      defaultSampleEvery,
			SampleIntervalMS: defaultSampleIntervalMS,
			ProgressInterval: defaultProgressInterval,
			ReceiveTimeoutMS: defaultReceiveTimeoutMS,
		},
		Shutdown: Shutdown{
			GraceMS: defaultGraceMS,
		},
		Persistence: Persistence{
			MaxRetries:      defaultMaxRetries,
			RetryDelayMS:    defaultRetryDelayMS,
			TraceFlushEvery: defaultTraceFlushEvery,
		},
		Generator: Generator{
			Kind:                   defaultGeneratorKind,
			MaxConsecutiveFailures: defaultMaxConsecutiveFailures,
		},
		History: History{
			Enabled: true,
		},
		Process: Process{
			LowPriority: true,
			MemoryLimit: defaultMemoryLimit,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

// MaxWorkers is the upper bound for the worker count.
func MaxWorkers() int {
	return runtime.NumCPU()
}

// DefaultWorkers leaves one CPU for the reporter and the rest of the system.
func DefaultWorkers() int {
	return max(1, runtime.NumCPU()-1)
}
