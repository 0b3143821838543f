package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"sieve/internal/history"
)

var historyColumns = []column{
	textCol("Run"), textCol("Started"), numCol("Duration"), textCol("Status"),
	numCol("Workers"), numCol("Attempts"), numCol("Target"), numCol("Matches"),
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var runID string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past runs recorded in the history database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.History.Enabled {
				return errors.New("history is disabled (history.enabled = false)")
			}
			if _, err := os.Stat(cfg.Paths.HistoryDB); errors.Is(err, os.ErrNotExist) {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
				return nil
			}

			store, err := history.Open(cmd.Context(), cfg.Paths.HistoryDB)
			if err != nil {
				return err
			}
			defer store.Close()

			if runID != "" {
				return printRunMatches(cmd, store, runID)
			}

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				duration := "-"
				if run.FinishedAt != nil {
					duration = run.Duration().Round(time.Second).String()
				}
				rows = append(rows, []string{
					run.ID,
					run.StartedAt.Local().Format("2006-01-02 15:04:05"),
					duration,
					string(run.Status),
					strconv.Itoa(run.Workers),
					strconv.FormatInt(run.Attempts, 10),
					strconv.FormatInt(run.Target, 10),
					strconv.FormatInt(run.Matches, 10),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(historyColumns, rows))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum number of runs to list")
	cmd.Flags().StringVar(&runID, "run", "", "Show the matches recorded for one run")
	return cmd
}

func printRunMatches(cmd *cobra.Command, store *history.Store, runID string) error {
	run, err := store.GetRun(cmd.Context(), runID)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %s not found", runID)
	}
	matches, err := store.MatchesForRun(cmd.Context(), runID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s (%s, generator %s)\n", run.ID, run.Status, run.Generator)
	if run.ErrorMessage != "" {
		fmt.Fprintf(out, "Error: %s\n", run.ErrorMessage)
	}
	if len(matches) == 0 {
		fmt.Fprintln(out, "No matches recorded")
		return nil
	}
	rows := make([][]string, 0, len(matches))
	for _, m := range matches {
		rows = append(rows, []string{
			strconv.FormatUint(m.BatchID, 10),
			m.Identifier,
			m.Secret,
			m.FoundAt.Local().Format("2006-01-02 15:04:05"),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]column{numCol("Batch"), textCol("Identifier"), textCol("Secret"), textCol("Found")},
		rows,
	))
	return nil
}
