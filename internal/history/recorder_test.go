package history_test

import (
	"context"
	"errors"
	"testing"

	"sieve/internal/generator"
	"sieve/internal/history"
)

type stubSink struct {
	err   error
	calls int
}

func (s *stubSink) Persist(context.Context, uint64, []generator.Candidate) error {
	s.calls++
	return s.err
}

func TestRecorderRecordsAfterDurableWrite(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	if err := store.BeginRun(ctx, history.Run{ID: "run-1", Generator: "sha256", Workers: 1, Target: 10}); err != nil {
		t.Fatalf("BeginRun returned error: %v", err)
	}
	sink := &stubSink{}
	rec := history.NewRecorder(sink, store, "run-1", nil)

	batch := []generator.Candidate{{Identifier: "X123", Secret: "secretA"}}
	if err := rec.Persist(ctx, 1, batch); err != nil {
		t.Fatalf("Persist returned error: %v", err)
	}
	matches, err := store.MatchesForRun(ctx, "run-1")
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected one recorded match, got %v, %v", matches, err)
	}
}

func TestRecorderSkipsHistoryWhenSinkFails(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	if err := store.BeginRun(ctx, history.Run{ID: "run-1", Generator: "sha256", Workers: 1, Target: 10}); err != nil {
		t.Fatalf("BeginRun returned error: %v", err)
	}
	sink := &stubSink{err: errors.New("disk full")}
	rec := history.NewRecorder(sink, store, "run-1", nil)

	if err := rec.Persist(ctx, 1, []generator.Candidate{{Identifier: "X"}}); err == nil {
		t.Fatal("expected sink error")
	}
	matches, _ := store.MatchesForRun(ctx, "run-1")
	if len(matches) != 0 {
		t.Fatalf("history must not record unpersisted matches, got %v", matches)
	}
}

func TestRecorderIgnoresHistoryFailure(t *testing.T) {
	store := openStore(t)
	sink := &stubSink{}
	// The run was never begun, so the foreign key rejects the insert.
	rec := history.NewRecorder(sink, store, "missing-run", nil)
	if err := rec.Persist(context.Background(), 1, []generator.Candidate{{Identifier: "X"}}); err != nil {
		t.Fatalf("history failure must not fail the batch: %v", err)
	}
	if sink.calls != 1 {
		t.Fatalf("sink calls = %d, want 1", sink.calls)
	}
}

func TestRecorderWithoutStore(t *testing.T) {
	sink := &stubSink{}
	rec := history.NewRecorder(sink, nil, "", nil)
	if err := rec.Persist(context.Background(), 1, []generator.Candidate{{Identifier: "X"}}); err != nil {
		t.Fatalf("Persist returned error: %v", err)
	}
}
