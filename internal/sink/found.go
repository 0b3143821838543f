package sink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"sieve/internal/generator"
	"sieve/internal/logging"
)

// ErrSinkLocked reports that another process holds the match sink.
var ErrSinkLocked = errors.New("match sink is locked by another run")

// Found appends matches to the found file.
type Found struct {
	path   string
	lock   *flock.Flock
	logger *slog.Logger

	mu   sync.Mutex
	file *os.File
	// write is replaced in tests to simulate partial writes.
	write func(*os.File, []byte) (int, error)
}

// OpenFound opens (creating if needed) the found file at path and takes the
// advisory lock <path>.lock. It fails with ErrSinkLocked when another run
// holds the lock.
func OpenFound(path string, logger *slog.Logger) (*Found, error) {
	if path == "" {
		return nil, errors.New("found file path is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create found directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire sink lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSinkLocked, lock.Path())
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open found file: %w", err)
	}
	return &Found{
		path:   path,
		lock:   lock,
		logger: logging.NewComponentLogger(logger, "sink"),
		file:   file,
		write:  (*os.File).Write,
	}, nil
}

// Path returns the found file location.
func (f *Found) Path() string { return f.path }

// Persist appends one line per match and syncs the file. A failed write is
// truncated back to the previous size so the caller can retry the batch.
func (f *Found) Persist(ctx context.Context, batchID uint64, matches []generator.Candidate) error {
	if len(matches) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	for _, m := range matches {
		buf.WriteString(m.String())
		buf.WriteByte('\n')
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return errors.New("found file is closed")
	}

	info, err := f.file.Stat()
	if err != nil {
		return fmt.Errorf("stat found file: %w", err)
	}
	offset := info.Size()

	n, err := f.write(f.file, buf.Bytes())
	if err == nil && n != buf.Len() {
		err = fmt.Errorf("short write: %d of %d bytes", n, buf.Len())
	}
	if err == nil {
		err = f.file.Sync()
	}
	if err != nil {
		if terr := f.file.Truncate(offset); terr != nil {
			f.logger.Error("rollback of partial batch failed",
				logging.Uint64(logging.FieldBatchID, batchID),
				logging.Error(terr),
				logging.String(logging.FieldImpact, "found file may contain a partial line"),
			)
		}
		return fmt.Errorf("write batch %d: %w", batchID, err)
	}
	return nil
}

// Close closes the file and releases the lock.
func (f *Found) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var errs []error
	if f.file != nil {
		errs = append(errs, f.file.Close())
		f.file = nil
	}
	if f.lock != nil {
		errs = append(errs, f.lock.Unlock())
		f.lock = nil
	}
	return errors.Join(errs...)
}
