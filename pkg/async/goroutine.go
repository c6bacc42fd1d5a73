package async

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/iiiffi-e2/bell-registry-sub002/pkg/observability"
)

// SafeGo executes a function in a goroutine with:
// - Context cancellation support
// - Panic recovery
// - Timeout enforcement
// - Error logging
//
// Use this instead of bare `go func()` for fire-and-forget side effects.
//
// Example:
//
//	async.SafeGo(ctx, logger, 5*time.Second, "activation event", func(ctx context.Context) error {
//	    return publisher.Publish(ctx, event)
//	})
func SafeGo(parentCtx context.Context, logger *observability.Logger, timeout time.Duration, taskName string, fn func(context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(parentCtx, timeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				logger.WithField("task", taskName).
					WithField("panic", r).
					WithField("stack", string(debug.Stack())).
					Error("panic in background task")
			}
		}()

		if err := fn(ctx); err != nil {
			// Log and drop; the caller has already moved on.
			logger.WithField("task", taskName).WithError(err).Warn("background task failed")
		}
	}()
}
