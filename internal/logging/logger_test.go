package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sieve/internal/config"
	"sieve/internal/logging"
)

func TestNewFromConfigWritesJSONFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("file message", logging.String("k", "v"))

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "sieve.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &record); err != nil {
		t.Fatalf("log file line is not JSON: %v (%q)", err, content)
	}
	if record["msg"] != "file message" || record["k"] != "v" || record["level"] != "info" {
		t.Fatalf("unexpected record: %v", record)
	}
}

func TestConsoleLoggerCaller(t *testing.T) {
	tests := []struct {
		level      string
		wantCaller bool
	}{
		{level: "info", wantCaller: false},
		{level: "debug", wantCaller: true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := logging.New(logging.Options{Format: "console", Level: tt.level, Console: &buf})
			if err != nil {
				t.Fatalf("New returned error: %v", err)
			}

			logger.Info("message")

			if got := strings.Contains(buf.String(), ".go:"); got != tt.wantCaller {
				t.Fatalf("caller present = %v, want %v: %q", got, tt.wantCaller, buf.String())
			}
		})
	}
}

func TestConsoleLoggerRendersPrefixAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := logging.WithRunID(context.Background(), "1a2b3c4d-5e6f-7a8b")
	component := logging.NewComponentLogger(logging.WithContext(ctx, logger), "orchestrator")
	component.Info("batch persisted",
		logging.Int("matches", 2),
		logging.String("path", "/tmp/found file.txt"),
	)
	component.WithGroup("sink").Warn("slow write", logging.Duration("took", 2*time.Second))

	out := buf.String()
	for _, want := range []string{
		"INFO  [run 1a2b3c4d] orchestrator: batch persisted",
		"matches=2",
		`path="/tmp/found file.txt"`,
		"WARN  [run 1a2b3c4d] orchestrator: slow write sink.took=2s",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
	if strings.Contains(out, "\x1b") {
		t.Fatalf("unexpected color codes: %q", out)
	}
}

func TestConsoleLoggerColor(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Console: &buf, Color: true})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Error("boom")
	if !strings.Contains(buf.String(), "\x1b[31mERROR") {
		t.Fatalf("expected colored level, got %q", buf.String())
	}
}

func TestJSONFormatOnConsole(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "JSON", Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Warn("json line", logging.Int64("attempts", 42))

	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if record["level"] != "warn" || record["attempts"] != float64(42) || record["ts"] == nil {
		t.Fatalf("unexpected record: %v", record)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsRunID(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	ctx := logging.WithRunID(context.Background(), "run-123")
	logging.WithContext(ctx, base).Info("contextual log")

	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if record[logging.FieldRunID] != "run-123" {
		t.Fatalf("expected run_id field, got %v", record)
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	logging.WarnWithContext(logger, "memory pressure", "memory_pressure", logging.String(logging.FieldImpact, "custom"))

	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if record[logging.FieldEventType] != "memory_pressure" {
		t.Fatalf("missing event type: %v", record)
	}
	if record[logging.FieldErrorHint] == nil {
		t.Fatalf("missing error hint: %v", record)
	}
	if record[logging.FieldImpact] != "custom" {
		t.Fatalf("explicit impact should win: %v", record)
	}
}

func TestTeeHandlerDuplicatesRecords(t *testing.T) {
	var first, second bytes.Buffer
	h := logging.TeeHandler(
		slog.NewJSONHandler(&first, nil),
		nil,
		slog.NewJSONHandler(&second, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	logger := slog.New(h)

	logger.Info("info only")
	logger.Error("both")

	if strings.Count(first.String(), "\n") != 2 {
		t.Fatalf("first handler should receive both records, got %q", first.String())
	}
	if strings.Count(second.String(), "\n") != 1 || !strings.Contains(second.String(), "both") {
		t.Fatalf("second handler should receive only the error, got %q", second.String())
	}
}

func TestTeeHandlerCollapses(t *testing.T) {
	if _, ok := logging.TeeHandler(nil).(logging.NoopHandler); !ok {
		t.Fatal("expected NoopHandler for nil-only input")
	}
	inner := slog.NewJSONHandler(&bytes.Buffer{}, nil)
	if logging.TeeHandler(nil, inner) != inner {
		t.Fatal("single handler should be returned unwrapped")
	}
}
