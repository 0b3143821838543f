package preflight

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"sieve/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
	// Advisory results are reported but never block a run.
	Advisory bool
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Data directory", cfg.Paths.DataDir))
	results = append(results, CheckReadableFile("Targets file", cfg.Paths.TargetsFile))
	results = append(results, CheckDirectoryAccess("Found file directory", filepath.Dir(cfg.Paths.FoundFile)))

	if cfg.Run.Trace {
		results = append(results, CheckDirectoryAccess("Trace directory", filepath.Dir(cfg.Paths.TraceFile)))
	}
	if cfg.History.Enabled {
		results = append(results, CheckDirectoryAccess("History directory", filepath.Dir(cfg.Paths.HistoryDB)))
	}
	if strings.TrimSpace(cfg.Metrics.Listen) != "" {
		results = append(results, CheckListenAddress(ctx, "Metrics listener", cfg.Metrics.Listen))
	}
	results = append(results, CheckMemory(cfg.Process.MemoryLimit))

	return results
}

// Err joins the failures of blocking checks, or returns nil when all passed.
func Err(results []Result) error {
	var errs []error
	for _, r := range results {
		if r.Passed || r.Advisory {
			continue
		}
		errs = append(errs, fmt.Errorf("%s: %s", r.Name, r.Detail))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("preflight failed: %w", errors.Join(errs...))
}
