package shutdown

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

type handler struct {
	name string
	fn   func(ctx context.Context) error
}

// GracefulShutdown runs registered cleanup handlers on SIGINT/SIGTERM.
// Handlers run in reverse registration order, consumers before the
// resources they depend on.
type GracefulShutdown struct {
	logger   *zap.Logger
	timeout  time.Duration
	handlers []handler
}

// NewGracefulShutdown creates a shutdown handler
func NewGracefulShutdown(logger *zap.Logger, timeout time.Duration) *GracefulShutdown {
	return &GracefulShutdown{
		logger:  logger,
		timeout: timeout,
	}
}

// Register adds a named cleanup handler
func (gs *GracefulShutdown) Register(name string, fn func(ctx context.Context) error) {
	gs.handlers = append(gs.handlers, handler{name: name, fn: fn})
}

// Wait blocks until a shutdown signal arrives, then runs the handlers
func (gs *GracefulShutdown) Wait() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	sig := <-quit
	gs.logger.Info("Shutdown signal received", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), gs.timeout)
	defer cancel()

	for i := len(gs.handlers) - 1; i >= 0; i-- {
		h := gs.handlers[i]
		gs.logger.Info("Running cleanup handler", zap.String("name", h.name))

		if err := h.fn(ctx); err != nil {
			gs.logger.Error("Cleanup handler failed",
				zap.String("name", h.name),
				zap.Error(err),
			)
		}
	}

	gs.logger.Info("Graceful shutdown completed")
}
