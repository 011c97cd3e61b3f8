// Package graceful stops a fiber app on SIGINT or SIGTERM.
package graceful

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// WaitForShutdown blocks until a termination signal arrives or ctx is done,
// then shuts app down, waiting at most timeout for open connections.
func WaitForShutdown(app *fiber.App, timeout time.Duration, ctx context.Context) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)

	select {
	case s := <-sig:
		zap.L().Info("Shutting down...", zap.String("signal", s.String()))
	case <-ctx.Done():
		zap.L().Info("Shutting down...", zap.Error(ctx.Err()))
	}

	if err := app.ShutdownWithTimeout(timeout); err != nil {
		zap.L().Error("Failed to shut down server", zap.Error(err))
	}
}
