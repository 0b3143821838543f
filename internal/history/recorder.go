package history

import (
	"context"
	"log/slog"

	"sieve/internal/generator"
	"sieve/internal/logging"
)

// MatchSink is the durable sink the Recorder decorates.
type MatchSink interface {
	Persist(ctx context.Context, batchID uint64, matches []generator.Candidate) error
}

// Recorder forwards batches to the durable sink and then records them in the
// history store. Only the durable sink's errors are returned.
type Recorder struct {
	sink   MatchSink
	store  *Store
	runID  string
	logger *slog.Logger
}

// NewRecorder wraps sink. A nil store makes the Recorder a pass-through.
func NewRecorder(sink MatchSink, store *Store, runID string, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Recorder{
		sink:   sink,
		store:  store,
		runID:  runID,
		logger: logging.NewComponentLogger(logger, "history"),
	}
}

// Persist implements the engine's match sink.
func (r *Recorder) Persist(ctx context.Context, batchID uint64, matches []generator.Candidate) error {
	if err := r.sink.Persist(ctx, batchID, matches); err != nil {
		return err
	}
	if r.store == nil {
		return nil
	}
	if _, err := r.store.RecordMatches(ctx, r.runID, batchID, matches); err != nil {
		logging.WarnWithContext(r.logger, "history record failed", "history_record_failed",
			logging.Uint64(logging.FieldBatchID, batchID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "matches are still in the found file"),
			logging.String(logging.FieldImpact, "run history is incomplete"),
		)
	}
	return nil
}
