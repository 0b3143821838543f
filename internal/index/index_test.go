package index_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"sieve/internal/index"
)

func TestLoadTrimsAndSkipsBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.txt")
	content := "  1AbC  \n\n\t\nX123\r\nX123\n   \nlast-without-newline"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write targets: %v", err)
	}

	idx, err := index.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if idx.Len() != 3 {
		t.Fatalf("Len = %d, want 3", idx.Len())
	}
	for _, id := range []string{"1AbC", "X123", "last-without-newline"} {
		if !idx.Contains(id) {
			t.Fatalf("expected %q in index", id)
		}
	}
	if idx.Contains("  1AbC  ") {
		t.Fatal("lookups are exact; untrimmed input should not match")
	}
	if idx.Source() != path {
		t.Fatalf("Source = %q, want %q", idx.Source(), path)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := index.Load(filepath.Join(t.TempDir(), "missing.txt"))
	var loadErr *index.LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected LoadError, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected wrapped ErrNotExist, got %v", err)
	}
}

func TestReadRejectsMalformedInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  int
	}{
		{"nul byte", "ok\nbad\x00line\n", 2},
		{"oversized line", "ok\n" + strings.Repeat("a", index.MaxLineBytes+10) + "\n", 2},
		{"one byte over", "ok\n" + strings.Repeat("a", index.MaxLineBytes+1) + "\n", 2},
		{"one byte over with crlf", "ok\r\n" + strings.Repeat("a", index.MaxLineBytes+1) + "\r\n", 2},
		{"one byte over at eof", strings.Repeat("a", index.MaxLineBytes+1), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := index.Read(strings.NewReader(tt.input), "test")
			if !errors.Is(err, index.ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
			var loadErr *index.LoadError
			if !errors.As(err, &loadErr) || loadErr.Line != tt.line {
				t.Fatalf("expected LoadError at line %d, got %v", tt.line, err)
			}
		})
	}
}

func TestReadAcceptsLineAtLimit(t *testing.T) {
	long := strings.Repeat("a", index.MaxLineBytes)
	for name, input := range map[string]string{
		"lf":   long + "\nok\n",
		"crlf": long + "\r\nok\r\n",
		"eof":  "ok\n" + long,
	} {
		t.Run(name, func(t *testing.T) {
			idx, err := index.Read(strings.NewReader(input), "test")
			if err != nil {
				t.Fatalf("Read returned error: %v", err)
			}
			if !idx.Contains(long) || !idx.Contains("ok") {
				t.Fatalf("expected both lines in index, Len = %d", idx.Len())
			}
		})
	}
}

func TestFromSliceAndNilIndex(t *testing.T) {
	idx := index.FromSlice([]string{"a", " b ", "", "a"})
	if idx.Len() != 2 || !idx.Contains("a") || !idx.Contains("b") {
		t.Fatalf("unexpected index contents: len=%d", idx.Len())
	}

	var empty *index.Index
	if empty.Contains("a") || empty.Len() != 0 {
		t.Fatal("nil index should be empty")
	}
}

func TestConcurrentReads(t *testing.T) {
	ids := make([]string, 1000)
	for i := range ids {
		ids[i] = strings.Repeat("x", i%17) + string(rune('A'+i%26))
	}
	idx := index.FromSlice(ids)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, id := range ids {
				if !idx.Contains(id) {
					t.Errorf("missing %q", id)
					return
				}
			}
		}()
	}
	wg.Wait()
}
