package index

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// MaxLineBytes bounds a single fingerprint line. Longer lines mark the source
// as malformed rather than silently truncating.
const MaxLineBytes = 4096

// ErrMalformed reports a source that could be read but not parsed.
var ErrMalformed = errors.New("malformed fingerprint source")

// LoadError reports a fatal failure to build the index.
type LoadError struct {
	Source string
	Line   int
	Err    error
}

func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("load fingerprints %s (line %d): %v", e.Source, e.Line, e.Err)
	}
	return fmt.Sprintf("load fingerprints %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Index is a read-only set of identifier strings.
type Index struct {
	set    map[string]struct{}
	source string
}

// Load reads a newline-delimited fingerprint file. Lines are trimmed and
// blank lines ignored.
func Load(path string) (*Index, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Source: path, Err: err}
	}
	defer file.Close()

	idx, err := Read(file, path)
	if err != nil {
		return nil, err
	}
	return idx, nil
}

// Read builds an index from r. source names r in errors.
func Read(r io.Reader, source string) (*Index, error) {
	set := make(map[string]struct{})
	scanner := bufio.NewScanner(r)
	// Room for the line terminator, including a CRLF pair.
	scanner.Buffer(make([]byte, 0, 512), MaxLineBytes+2)

	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) > MaxLineBytes {
			return nil, tooLong(source, line)
		}
		if bytes.IndexByte(raw, 0) >= 0 {
			return nil, &LoadError{Source: source, Line: line, Err: fmt.Errorf("%w: NUL byte", ErrMalformed)}
		}
		value := strings.TrimSpace(string(raw))
		if value == "" {
			continue
		}
		set[value] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, tooLong(source, line+1)
		}
		return nil, &LoadError{Source: source, Err: err}
	}

	return &Index{set: set, source: source}, nil
}

// FromSlice builds an index from in-memory identifiers using the same
// trimming rules as Load.
func FromSlice(ids []string) *Index {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if value := strings.TrimSpace(id); value != "" {
			set[value] = struct{}{}
		}
	}
	return &Index{set: set, source: "memory"}
}

// Contains reports whether id is a target fingerprint.
func (i *Index) Contains(id string) bool {
	if i == nil {
		return false
	}
	_, ok := i.set[id]
	return ok
}

// Len returns the number of distinct fingerprints.
func (i *Index) Len() int {
	if i == nil {
		return 0
	}
	return len(i.set)
}

// Source returns the path or label the index was built from.
func (i *Index) Source() string {
	if i == nil {
		return ""
	}
	return i.source
}

func tooLong(source string, line int) error {
	return &LoadError{Source: source, Line: line, Err: fmt.Errorf("%w: line exceeds %d bytes", ErrMalformed, MaxLineBytes)}
}
