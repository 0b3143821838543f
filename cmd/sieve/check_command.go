package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sieve/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run the startup checks without starting a run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}

			results := preflight.RunAll(cmd.Context(), cfg)
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				status := "ok"
				switch {
				case !r.Passed && r.Advisory:
					status = "warn"
				case !r.Passed:
					status = "fail"
				}
				rows = append(rows, []string{r.Name, status, r.Detail})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]column{textCol("Check"), textCol("Status"), textCol("Detail")},
				rows,
			))
			return preflight.Err(results)
		},
	}
}
