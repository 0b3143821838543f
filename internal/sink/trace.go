package sink

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"sieve/internal/generator"
)

// Trace is a buffered append-only log of every generated candidate.
type Trace struct {
	mu         sync.Mutex
	path       string
	file       *os.File
	w          *bufio.Writer
	flushEvery int
	pending    int
	records    int64
}

// OpenTrace opens the trace log at path. The buffer is flushed to disk each
// time flushEvery records accumulate; zero means only on Flush and Close.
func OpenTrace(path string, flushEvery int) (*Trace, error) {
	if path == "" {
		return nil, errors.New("trace file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create trace directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	return &Trace{
		path:       path,
		file:       file,
		w:          bufio.NewWriterSize(file, 64*1024),
		flushEvery: flushEvery,
	}, nil
}

// Path returns the trace log location.
func (t *Trace) Path() string { return t.path }

// Records returns the number of candidates written.
func (t *Trace) Records() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.records
}

// Write appends the batch, one "identifier:secret" line per candidate.
func (t *Trace) Write(batch []generator.Candidate) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.w == nil {
		return errors.New("trace file is closed")
	}
	for _, c := range batch {
		if _, err := t.w.WriteString(c.Identifier); err != nil {
			return fmt.Errorf("write trace: %w", err)
		}
		if err := t.w.WriteByte(':'); err != nil {
			return fmt.Errorf("write trace: %w", err)
		}
		if _, err := t.w.WriteString(c.Secret); err != nil {
			return fmt.Errorf("write trace: %w", err)
		}
		if err := t.w.WriteByte('\n'); err != nil {
			return fmt.Errorf("write trace: %w", err)
		}
		t.records++
		t.pending++
	}
	if t.flushEvery > 0 && t.pending >= t.flushEvery {
		return t.flushLocked()
	}
	return nil
}

// Flush writes buffered records to the file.
func (t *Trace) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flushLocked()
}

func (t *Trace) flushLocked() error {
	if t.w == nil {
		return nil
	}
	t.pending = 0
	if err := t.w.Flush(); err != nil {
		return fmt.Errorf("flush trace: %w", err)
	}
	return nil
}

// Close flushes and closes the trace log.
func (t *Trace) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.file == nil {
		return nil
	}
	flushErr := t.flushLocked()
	closeErr := t.file.Close()
	t.file = nil
	t.w = nil
	return errors.Join(flushErr, closeErr)
}
