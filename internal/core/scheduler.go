package core

// scheduler.go keeps history in step with a store shared by several
// operators. Each tick reloads history through FetchAll, so records created
// elsewhere appear without a manual reload.
//
// The scheduler is long-running and stops with its context. A failed
// refresh is logged and retried on the next tick.

import (
	"context"
	"log/slog"
	"time"
)

// StartRefreshScheduler reloads history every interval until ctx is done.
// It blocks; run it in its own goroutine. A non-positive interval returns
// immediately.
func (s *Service) StartRefreshScheduler(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	slog.Info("refresh scheduler started", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("refresh scheduler stopped")
			return
		case <-ticker.C:
			s.runRefreshJob(ctx)
		}
	}
}

// runRefreshJob performs one reload.
func (s *Service) runRefreshJob(ctx context.Context) {
	start := time.Now()
	if err := s.FetchAll(ctx); err != nil {
		slog.Error("refresh failed", "error", err)
		return
	}
	slog.Debug("refresh completed",
		"records", len(s.History()),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
