// Package cache is a best-effort Redis cache-aside layer in front of the
// meta.live_state row: GET /api/live serves from here first, falling back
// to Postgres on a miss or when Redis itself is unreachable. Every
// operation degrades to a Postgres round trip rather than failing the
// request, since Redis is an accelerator here, not a store of record.
package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const liveStateKey = "rugsdata:live_state"

// LiveState is a best-effort front for the process's singleton live game
// state. Every miss or error is non-fatal: callers must always be able to
// fall back to the store of record.
type LiveState struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// New wraps an already-configured redis.Client. Pass nil to build a
// no-op cache (every Get is a miss, every Set is a no-op), so callers
// never need a separate "cache disabled" branch.
func New(rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *LiveState {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &LiveState{rdb: rdb, ttl: ttl, logger: logger}
}

// Get returns the cached JSON-encoded live state, or ok=false on a miss,
// a disabled cache, or any Redis error (logged, never propagated).
func (c *LiveState) Get(ctx context.Context) (raw []byte, ok bool) {
	if c.rdb == nil {
		return nil, false
	}
	val, err := c.rdb.Get(ctx, liveStateKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug("live_state cache read failed", "error", err)
		}
		return nil, false
	}
	return val, true
}

// Set writes the JSON-encoded live state with the configured TTL. Errors
// are logged and swallowed: a cache write failure must never fail the
// snapshot handling path that calls it.
func (c *LiveState) Set(ctx context.Context, raw []byte) {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Set(ctx, liveStateKey, raw, c.ttl).Err(); err != nil {
		c.logger.Debug("live_state cache write failed", "error", err)
	}
}
