package history

import "time"

// Status represents the lifecycle state of a recorded run.
type Status string

const (
	StatusRunning     Status = "running"
	StatusCompleted   Status = "completed"
	StatusInterrupted Status = "interrupted"
	StatusForced      Status = "forced"
	StatusFailed      Status = "failed"
)

// Run is one recorded pipeline run.
type Run struct {
	ID           string
	StartedAt    time.Time
	FinishedAt   *time.Time
	Generator    string
	Workers      int
	Target       int64
	Attempts     int64
	Matches      int64
	Status       Status
	ErrorMessage string
}

// Duration returns the run's wall time, or zero while it is running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Match is one recorded match.
type Match struct {
	RunID      string
	BatchID    uint64
	Identifier string
	Secret     string
	FoundAt    time.Time
}

// Outcome is the final state written by FinishRun.
type Outcome struct {
	Status   Status
	Attempts int64
	Matches  int64
	Err      error
}
