// Package retention removes abandoned practice attempts on a schedule.
package retention

import (
	"context"
	"log/slog"
	"time"

	"github.com/dooriq/simserver/internal/metrics"
	"github.com/dooriq/simserver/internal/store"
)

const workerInterval = 5 * time.Minute

// StartWorker launches a background loop that deletes unfinished attempts
// idle longer than ttl. It stops when ctx is cancelled.
func StartWorker(ctx context.Context, repo store.Repository, mm *metrics.Manager, ttl time.Duration) {
	go run(ctx, repo, mm, ttl, workerInterval)
}

func run(ctx context.Context, repo store.Repository, mm *metrics.Manager, ttl, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	slog.Info("Retention worker started", "interval", interval, "ttl", ttl)

	for {
		select {
		case <-ticker.C:
			sweep(ctx, repo, mm, ttl)
		case <-ctx.Done():
			slog.Info("Retention worker shutting down", "reason", ctx.Err())
			return
		}
	}
}

func sweep(ctx context.Context, repo store.Repository, mm *metrics.Manager, ttl time.Duration) {
	deleted, err := repo.DeleteExpiredAttempts(ctx, ttl)
	if err != nil {
		slog.Error("Retention worker failed to delete expired attempts", "error", err)
		return
	}
	if deleted > 0 {
		mm.AttemptsExpired(deleted)
		slog.Info("Retention worker removed expired attempts", "count", deleted)
	}

	open, err := repo.CountOpenAttempts(ctx)
	if err != nil {
		slog.Warn("Retention worker failed to count open attempts", "error", err)
		return
	}
	mm.SetOpenAttempts(open)
}
