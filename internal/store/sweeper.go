package store

import (
	"context"
	"log/slog"
	"time"
)

// EvictCallback is called for every session removed by the sweeper.
type EvictCallback func(userID string)

// SweeperConfig controls the background sweeper.
type SweeperConfig struct {
	Interval time.Duration
	// SessionTTL is the idle time after which a session is evicted.
	SessionTTL time.Duration
	// JournalRetention prunes older journal entries when positive.
	JournalRetention time.Duration
}

// StartSweeper runs a goroutine that periodically evicts idle sessions and
// prunes the journal until ctx is done.
func StartSweeper(ctx context.Context, sessions *Sessions, journal Journal, cfg SweeperConfig, onEvict EvictCallback) {
	if cfg.Interval <= 0 || cfg.SessionTTL <= 0 {
		slog.Info("session sweeper disabled")
		return
	}

	ticker := time.NewTicker(cfg.Interval)
	go func() {
		defer ticker.Stop()
		slog.Info("session sweeper started", "interval", cfg.Interval, "ttl", cfg.SessionTTL)

		for {
			select {
			case <-ticker.C:
				sweepOnce(ctx, sessions, journal, cfg, onEvict)
			case <-ctx.Done():
				slog.Info("session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func sweepOnce(ctx context.Context, sessions *Sessions, journal Journal, cfg SweeperConfig, onEvict EvictCallback) {
	evicted := sessions.Sweep(cfg.SessionTTL)
	for _, userID := range evicted {
		if onEvict != nil {
			onEvict(userID)
		}
	}
	if len(evicted) > 0 {
		slog.Info("session sweeper evicted idle sessions", "count", len(evicted), "remaining", sessions.Len())
	}

	if journal == nil || cfg.JournalRetention <= 0 {
		return
	}
	if deleted, err := journal.Prune(ctx, cfg.JournalRetention); err != nil {
		slog.Error("session sweeper failed to prune journal", "error", err)
	} else if deleted > 0 {
		slog.Info("session sweeper pruned journal", "count", deleted)
	}
}
