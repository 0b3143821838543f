package engine

import (
	"strings"
	"testing"
	"time"
)

func TestRenderStatsIsDeterministic(t *testing.T) {
	snap := Snapshot{
		Elapsed:          2 * time.Second,
		Target:           1_000_000,
		Attempts:         1_000_000,
		Matches:          2,
		GenerationErrors: 1,
		DroppedSamples:   12_345,
		BatchSize:        10_000,
		Multiplier:       2,
		Workers:          7,
	}
	first := RenderStats(snap)
	second := RenderStats(snap)
	if first != second {
		t.Fatalf("render is not deterministic:\n%s\n%s", first, second)
	}
	for _, want := range []string{"completed", "1,000,000 / 1,000,000", "500,000 c/s", "12,345", "10,000 (x2.00)"} {
		if !strings.Contains(first, want) {
			t.Fatalf("stats missing %q:\n%s", want, first)
		}
	}
}

func TestSnapshotOutcome(t *testing.T) {
	tests := []struct {
		snap Snapshot
		want string
	}{
		{Snapshot{Target: 10, Attempts: 10}, "completed"},
		{Snapshot{Target: 10, Attempts: 5, Interrupted: true}, "interrupted"},
		{Snapshot{Target: 10, Attempts: 5, Interrupted: true, Forced: true}, "forced stop"},
		{Snapshot{Target: 10, Attempts: 5}, "stopped"},
	}
	for _, tt := range tests {
		if got := tt.snap.Outcome(); got != tt.want {
			t.Fatalf("Outcome(%+v) = %q, want %q", tt.snap, got, tt.want)
		}
	}
	if (Snapshot{}).Speed() != 0 {
		t.Fatal("zero elapsed should yield zero speed")
	}
}
