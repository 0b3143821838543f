package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sieve/internal/config"
	"sieve/internal/logging"
	"sieve/internal/runner"
)

type runFlags struct {
	workers int
	target  int64
	trace   bool
	targets string
	found   string
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate candidates until the target attempt count is reached",
		Long: `Run the generation pipeline. Candidates are produced in batches across
the configured workers, checked against the targets file, and every match is
appended to the found file. Press Ctrl+C once to drain in-flight batches and
stop, twice to stop immediately.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := applyRunFlags(cmd, cfg, flags); err != nil {
				return err
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			_, err = runner.Run(cmd.Context(), cfg, logger, runner.Options{Out: cmd.OutOrStdout()})
			return err
		},
	}

	cmd.Flags().IntVarP(&flags.workers, "workers", "w", 0, fmt.Sprintf("Worker count (1-%d)", config.MaxWorkers()))
	cmd.Flags().Int64VarP(&flags.target, "target", "n", 0, "Total attempts to generate")
	cmd.Flags().BoolVar(&flags.trace, "trace", false, "Record every generated candidate in the trace file")
	cmd.Flags().StringVar(&flags.targets, "targets", "", "Targets file (one identifier per line)")
	cmd.Flags().StringVar(&flags.found, "found", "", "File that receives matches")
	return cmd
}

// applyRunFlags overrides configuration values with the flags the user set.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config, flags runFlags) error {
	set := cmd.Flags().Changed
	if set("workers") {
		cfg.Run.Workers = flags.workers
	}
	if set("target") {
		cfg.Run.TargetCount = flags.target
	}
	if set("trace") {
		cfg.Run.Trace = flags.trace
	}
	if set("targets") {
		path, err := expandFlagPath("targets", flags.targets)
		if err != nil {
			return err
		}
		cfg.Paths.TargetsFile = path
	}
	if set("found") {
		path, err := expandFlagPath("found", flags.found)
		if err != nil {
			return err
		}
		cfg.Paths.FoundFile = path
	}
	return cfg.Validate()
}

func expandFlagPath(name, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("--%s must not be empty", name)
	}
	path, err := config.ExpandPath(value)
	if err != nil {
		return "", fmt.Errorf("resolve --%s: %w", name, err)
	}
	return path, nil
}
