package engine

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"sieve/internal/logging"
)

// ShutdownController implements the two-stage interrupt protocol: the first
// trigger requests a graceful drain, the second forces an immediate stop.
type ShutdownController struct {
	state    *RunState
	logger   *slog.Logger
	mu       sync.Mutex
	count    int
	draining chan struct{}
	forced   chan struct{}
}

// NewShutdownController returns a controller bound to state.
func NewShutdownController(state *RunState, logger *slog.Logger) *ShutdownController {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ShutdownController{
		state:    state,
		logger:   logging.NewComponentLogger(logger, "shutdown"),
		draining: make(chan struct{}),
		forced:   make(chan struct{}),
	}
}

// Trigger records one interrupt. It returns the number of interrupts seen.
func (c *ShutdownController) Trigger() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
	switch c.count {
	case 1:
		if c.state != nil {
			c.state.RequestShutdown()
		}
		close(c.draining)
		c.logger.Info("shutdown requested; draining in-flight batches",
			logging.String(logging.FieldEventType, "shutdown_requested"),
		)
	case 2:
		close(c.forced)
		c.logger.Warn("second interrupt; forcing stop",
			logging.String(logging.FieldEventType, "shutdown_forced"),
			logging.String(logging.FieldImpact, "in-flight batches are abandoned"),
		)
	}
	return c.count
}

// Watch forwards signals to Trigger until ctx is done or signals closes.
func (c *ShutdownController) Watch(ctx context.Context, signals <-chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-signals:
			if !ok {
				return
			}
			c.logger.Debug("signal received", logging.String("signal", sig.String()))
			if c.Trigger() >= 2 {
				return
			}
		}
	}
}

// Draining is closed on the first interrupt.
func (c *ShutdownController) Draining() <-chan struct{} { return c.draining }

// Forced is closed on the second interrupt.
func (c *ShutdownController) Forced() <-chan struct{} { return c.forced }
