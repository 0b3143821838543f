package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"sieve/internal/index"
)

func newIndexCommand(ctx *commandContext) *cobra.Command {
	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Inspect the targets file",
	}
	indexCmd.AddCommand(newIndexStatsCommand(ctx))
	return indexCmd
}

func newIndexStatsCommand(ctx *commandContext) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Load the targets file and report its size",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			source := cfg.Paths.TargetsFile
			if cmd.Flags().Changed("targets") {
				if source, err = expandFlagPath("targets", path); err != nil {
					return err
				}
			}

			start := time.Now()
			idx, err := index.Load(source)
			if err != nil {
				return err
			}
			elapsed := time.Since(start)

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]column{textCol("Source"), numCol("Targets"), numCol("Load Time")},
				[][]string{{idx.Source(), strconv.Itoa(idx.Len()), elapsed.Round(time.Millisecond).String()}},
			))
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "targets", "", "Targets file to inspect instead of the configured one")
	return cmd
}
