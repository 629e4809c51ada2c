package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/Dutchthenomad/rugsdata/internal/config"
)

// sweepTarget pairs a table/column with the TTL window that governs it.
type sweepTarget struct {
	table  string
	column string
	ttl    config.TTLConfig
}

// Sweeper periodically deletes rows older than their configured TTL,
// emulating the document store's TTL indexes since Postgres has none.
// game_ticks and game_indices are never swept: they have no timestamp
// column and the Ticks and Indices retention settings are not read, so
// full tick/OHLC history is always kept.
type Sweeper struct {
	db       *Store
	targets  []sweepTarget
	interval time.Duration
	logger   *slog.Logger
}

// NewSweeper builds a sweeper from the daemon's retention configuration.
// Any TTLConfig with a zero MaxAge is skipped entirely.
func NewSweeper(db *Store, cfg config.RetentionConfig, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	interval := cfg.SweepInterval
	if interval <= 0 {
		interval = time.Hour
	}

	candidates := []sweepTarget{
		{"game_state_snapshots", "created_at", cfg.Snapshots},
		{"events", "created_at", cfg.Events},
		{"connection_events", "created_at", cfg.ConnectionEvents},
	}

	var targets []sweepTarget
	for _, t := range candidates {
		if t.ttl.MaxAge > 0 {
			targets = append(targets, t)
		}
	}

	return &Sweeper{db: db, targets: targets, interval: interval, logger: logger}
}

// Run sweeps on a ticker until ctx is canceled. A no-op if no target has
// a configured TTL.
func (s *Sweeper) Run(ctx context.Context) {
	if len(s.targets) == 0 {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	for _, t := range s.targets {
		cutoff := time.Now().Add(-t.ttl.MaxAge)
		n, err := s.db.deleteOlderThan(ctx, t.table, t.column, cutoff)
		if err != nil {
			s.logger.Error("sweep failed", "table", t.table, "error", err)
			continue
		}
		if n > 0 {
			s.logger.Info("swept expired rows", "table", t.table, "count", n, "cutoff", cutoff)
		}
	}
}
