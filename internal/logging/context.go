package logging

import (
	"context"
	"log/slog"
)

// Structured field keys shared by every component.
const (
	FieldComponent = "component"
	// FieldRunID ties log lines to the history row of the same run.
	FieldRunID     = "run_id"
	FieldBatchID   = "batch_id"
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to check next.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
)

type runIDKey struct{}

// WithRunID stores the run identifier on ctx.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFromContext returns the run identifier stored by WithRunID.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(runIDKey{}).(string)
	return id, ok && id != ""
}

// WithContext returns logger tagged with the run ID carried by ctx, if any.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	id, ok := RunIDFromContext(ctx)
	if !ok {
		return logger
	}
	return logger.With(slog.String(FieldRunID, id))
}
