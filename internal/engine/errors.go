package engine

import (
	"errors"
	"fmt"
)

// ErrForcedShutdown is returned when a second interrupt abandons in-flight work.
var ErrForcedShutdown = errors.New("forced shutdown")

// ErrGeneratorFailing is returned when the generator keeps failing past the
// configured consecutive failure budget.
var ErrGeneratorFailing = errors.New("candidate generator keeps failing")

// GenerationError wraps a failed batch request. The batch contributes no
// progress and the run continues.
type GenerationError struct {
	BatchID uint64
	Size    int
	Err     error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate batch %d (size %d): %v", e.BatchID, e.Size, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// PersistenceError reports matches that could not be written after every
// retry. It stops the run because matches must not be lost silently.
type PersistenceError struct {
	BatchID  uint64
	Matches  int
	Attempts int
	Err      error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %d match(es) from batch %d after %d attempt(s): %v", e.Matches, e.BatchID, e.Attempts, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
