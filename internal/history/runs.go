package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"sieve/internal/generator"
)

const runColumns = "id, started_at, finished_at, generator, workers, target, attempts, matches, status, error_message"

// BeginRun inserts a run in the running state.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return errors.New("run id is required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO runs (id, started_at, generator, workers, target, status)
         VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID,
		formatTime(run.StartedAt),
		run.Generator,
		run.Workers,
		run.Target,
		StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// RecordMatches stores the matches of one batch. Re-recording the same batch
// is a no-op. It returns the number of rows inserted.
func (s *Store) RecordMatches(ctx context.Context, runID string, batchID uint64, matches []generator.Candidate) (int64, error) {
	if len(matches) == 0 {
		return 0, nil
	}
	var inserted int64
	err := retryOnBusy(ctx, func() error {
		inserted = 0
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin matches tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		stmt, err := tx.PrepareContext(ctx,
			`INSERT OR IGNORE INTO matches (run_id, batch_id, identifier, secret, found_at)
             VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare match insert: %w", err)
		}
		defer stmt.Close()

		foundAt := formatTime(time.Now())
		for _, m := range matches {
			res, err := stmt.ExecContext(ctx, runID, int64(batchID), m.Identifier, m.Secret, foundAt)
			if err != nil {
				return fmt.Errorf("insert match: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			inserted += n
		}
		if _, err := tx.ExecContext(ctx, `UPDATE runs SET matches = matches + ? WHERE id = ?`, inserted, runID); err != nil {
			return fmt.Errorf("update run matches: %w", err)
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// FinishRun records the final counters and status of a run.
func (s *Store) FinishRun(ctx context.Context, runID string, outcome Outcome) error {
	var message string
	if outcome.Err != nil {
		message = outcome.Err.Error()
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE runs SET finished_at = ?, attempts = ?, matches = ?, status = ?, error_message = ?
         WHERE id = ?`,
		formatTime(time.Now()),
		outcome.Attempts,
		outcome.Matches,
		outcome.Status,
		nullableString(message),
		runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run: run %q not found", runID)
	}
	return nil
}

// GetRun fetches a run by id. It returns nil when the run does not exist.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first. A non-positive limit returns
// every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// MatchesForRun returns the recorded matches of a run in batch order.
func (s *Store) MatchesForRun(ctx context.Context, runID string) ([]Match, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, batch_id, identifier, secret, found_at FROM matches
         WHERE run_id = ? ORDER BY batch_id, id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			m       Match
			batchID int64
			found   string
		)
		if err := rows.Scan(&m.RunID, &batchID, &m.Identifier, &m.Secret, &found); err != nil {
			return nil, err
		}
		m.BatchID = uint64(batchID)
		if ts, err := parseTimeString(found); err == nil {
			m.FoundAt = ts
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run         Run
		startedRaw  string
		finishedRaw sql.NullString
		status      string
		errMessage  sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&startedRaw,
		&finishedRaw,
		&run.Generator,
		&run.Workers,
		&run.Target,
		&run.Attempts,
		&run.Matches,
		&status,
		&errMessage,
	); err != nil {
		return nil, err
	}
	run.Status = Status(status)
	run.ErrorMessage = errMessage.String
	if started, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = &finished
		}
	}
	return &run, nil
}
