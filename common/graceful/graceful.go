// Package graceful tracks in-flight relay requests so shutdown can wait for
// long-running SSE streams to finish instead of cutting them off.
package graceful

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/Laisky/zap"

	"github.com/songquanpeng/poe-bridge/common/logger"
)

var (
	inFlightRequests int64
	draining         atomic.Bool
)

// BeginRequest increments the in-flight counter and returns the matching
// decrement. Use with defer at the top of request middleware.
func BeginRequest() func() {
	atomic.AddInt64(&inFlightRequests, 1)
	return func() {
		atomic.AddInt64(&inFlightRequests, -1)
	}
}

// SetDraining flips the draining flag. New streams should not be accepted
// once set.
func SetDraining() { draining.Store(true) }

// IsDraining reports whether the server is shutting down.
func IsDraining() bool { return draining.Load() }

// Drain blocks until every in-flight request has completed, bounded by the
// context deadline.
func Drain(ctx context.Context) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		n := atomic.LoadInt64(&inFlightRequests)
		if n == 0 {
			logger.Logger.Info("graceful drain complete")
			return nil
		}
		select {
		case <-ctx.Done():
			logger.Logger.Error("graceful drain timeout",
				zap.Int64("in_flight_requests", n))
			return ctx.Err()
		case <-ticker.C:
			logger.Logger.Debug("draining...",
				zap.Int64("in_flight_requests", n))
		}
	}
}
