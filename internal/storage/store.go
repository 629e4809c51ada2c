package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Dutchthenomad/rugsdata/internal/model"
)

// Store executes the idempotent, indexed writes and reads against a
// pgxpool. Every call runs under a bounded deadline (default 5s).
type Store struct {
	db *pgxpool.Pool
}

// New wraps an already-connected pool.
func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 5*time.Second)
}

func dec(d decimal.Decimal) string { return d.String() }

func decPtr(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func validationJSON(v *model.ValidationSummary) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// InsertEvent archives one raw inbound event. Non-critical: callers may
// drop this job under queue pressure without violating any invariant.
func (s *Store) InsertEvent(ctx context.Context, e model.Event) error {
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	validation, err := validationJSON(e.Validation)
	if err != nil {
		return fmt.Errorf("marshal validation: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO events (id, type, payload, validation, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`, e.ID, e.Type, e.Payload, validation, e.CreatedAt)
	return err
}

// UpsertSnapshot writes a tick-level snapshot, idempotent on (gameId, tickCount).
func (s *Store) UpsertSnapshot(ctx context.Context, snap model.GameStateSnapshot) error {
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	validation, err := validationJSON(snap.Validation)
	if err != nil {
		return fmt.Errorf("marshal validation: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO game_state_snapshots (game_id, tick_count, price, active, rugged, phase, validation, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (game_id, tick_count) DO UPDATE SET
			price = EXCLUDED.price, active = EXCLUDED.active, rugged = EXCLUDED.rugged,
			phase = EXCLUDED.phase, validation = EXCLUDED.validation
	`, snap.GameID, snap.TickCount, dec(snap.Price), snap.Active, snap.Rugged, string(snap.Phase), validation, snap.CreatedAt)
	return err
}

// UpsertTrade writes a trade row, idempotent on the caller-provided
// eventId. Returns whether the row was newly inserted (for totalTrades,
// which must count distinct trades, not retries).
func (s *Store) UpsertTrade(ctx context.Context, tr model.Trade) (inserted bool, err error) {
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	tag, err := s.db.Exec(ctx, `
		INSERT INTO trades (event_id, game_id, player_id, type, tick_index, amount, qty, price, coin, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (event_id) DO NOTHING
	`, tr.EventID, tr.GameID, tr.PlayerID, string(tr.Type), tr.TickIndex, dec(tr.Amount), dec(tr.Qty), decPtr(tr.Price), tr.Coin, tr.CreatedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// InsertSideBet appends one side-bet row (placement or resolution; both
// are distinct append-only rows.
func (s *Store) InsertSideBet(ctx context.Context, b model.SideBet) error {
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	_, err := s.db.Exec(ctx, `
		INSERT INTO side_bets (id, game_id, player_id, event, start_tick, end_tick, bet_amount, target_multiplier, payout_ratio, won, pnl, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING
	`, b.ID, b.GameID, b.PlayerID, b.Event, b.StartTick, b.EndTick, dec(b.BetAmount), decPtr(b.TargetMultiplier), decPtr(b.PayoutRatio), b.Won, decPtr(b.PNL), b.CreatedAt)
	return err
}

// UpsertGame writes the authoritative game record.
func (s *Store) UpsertGame(ctx context.Context, g model.Game) error {
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	quality, err := json.Marshal(g.Quality)
	if err != nil {
		return fmt.Errorf("marshal quality: %w", err)
	}
	history, err := json.Marshal(g.History)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	var verification []byte
	if g.PRNGVerificationData != nil {
		verification, err = json.Marshal(g.PRNGVerificationData)
		if err != nil {
			return fmt.Errorf("marshal verification: %w", err)
		}
	}

	var serverSeed *string
	if g.ServerSeed != "" {
		serverSeed = &g.ServerSeed
	}
	var endTime *time.Time
	if !g.EndTime.IsZero() {
		endTime = &g.EndTime
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO games (
			id, phase, version, generator_version, server_seed_hash, server_seed,
			start_time, end_time, rug_tick, end_price, peak_multiplier, total_ticks,
			has_god_candle, prng_verified, prng_verification_data, quality, history, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17, now())
		ON CONFLICT (id) DO UPDATE SET
			phase = EXCLUDED.phase,
			version = EXCLUDED.version,
			generator_version = EXCLUDED.generator_version,
			server_seed_hash = EXCLUDED.server_seed_hash,
			server_seed = COALESCE(EXCLUDED.server_seed, games.server_seed),
			end_time = COALESCE(EXCLUDED.end_time, games.end_time),
			rug_tick = EXCLUDED.rug_tick,
			end_price = EXCLUDED.end_price,
			peak_multiplier = EXCLUDED.peak_multiplier,
			total_ticks = EXCLUDED.total_ticks,
			has_god_candle = games.has_god_candle OR EXCLUDED.has_god_candle,
			prng_verified = EXCLUDED.prng_verified,
			prng_verification_data = COALESCE(EXCLUDED.prng_verification_data, games.prng_verification_data),
			quality = EXCLUDED.quality,
			history = EXCLUDED.history,
			updated_at = now()
	`, g.ID, string(g.Phase), g.Version, g.GeneratorVersion, g.ServerSeedHash, serverSeed,
		g.StartTime, endTime, g.RugTick, dec(g.EndPrice), dec(g.PeakMultiplier), g.TotalTicks,
		g.HasGodCandle, g.PRNGVerified, verification, quality, history)
	return err
}

// UpsertTick writes one price tick, idempotent on (gameId, tick).
func (s *Store) UpsertTick(ctx context.Context, t model.GameTick) error {
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	_, err := s.db.Exec(ctx, `
		INSERT INTO game_ticks (game_id, tick, price)
		VALUES ($1, $2, $3)
		ON CONFLICT (game_id, tick) DO UPDATE SET price = EXCLUDED.price
	`, t.GameID, t.Tick, dec(t.Price))
	return err
}

// UpsertIndex writes one 5-tick OHLC aggregate, idempotent on (gameId, index).
func (s *Store) UpsertIndex(ctx context.Context, idx model.GameIndex) error {
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	_, err := s.db.Exec(ctx, `
		INSERT INTO game_indices (game_id, index, start_tick, end_tick, open, high, low, close)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (game_id, index) DO UPDATE SET
			end_tick = EXCLUDED.end_tick, high = EXCLUDED.high, low = EXCLUDED.low, close = EXCLUDED.close
	`, idx.GameID, idx.Index, idx.StartTick, idx.EndTick, dec(idx.Open), dec(idx.High), dec(idx.Low), dec(idx.Close))
	return err
}

// InsertGodCandle writes one god candle record, unique on (gameId, tickIndex).
func (s *Store) InsertGodCandle(ctx context.Context, gc model.GodCandle) error {
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	_, err := s.db.Exec(ctx, `
		INSERT INTO god_candles (game_id, tick_index, from_price, to_price, ratio, version, under_cap, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (game_id, tick_index) DO NOTHING
	`, gc.GameID, gc.TickIndex, dec(gc.FromPrice), dec(gc.ToPrice), dec(gc.Ratio), gc.Version, gc.UnderCap, gc.CreatedAt)
	return err
}

// UpsertPRNGTracking writes the per-game verification record, unique on gameId.
func (s *Store) UpsertPRNGTracking(ctx context.Context, r model.PRNGTrackingRecord) error {
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	var verification []byte
	var err error
	if r.Verification != nil {
		verification, err = json.Marshal(r.Verification)
		if err != nil {
			return fmt.Errorf("marshal verification: %w", err)
		}
	}
	var serverSeed *string
	if r.ServerSeed != "" {
		serverSeed = &r.ServerSeed
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO prng_tracking (game_id, status, generator_version, server_seed_hash, server_seed, verification, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (game_id) DO UPDATE SET
			status = EXCLUDED.status,
			generator_version = EXCLUDED.generator_version,
			server_seed_hash = EXCLUDED.server_seed_hash,
			server_seed = COALESCE(EXCLUDED.server_seed, prng_tracking.server_seed),
			verification = COALESCE(EXCLUDED.verification, prng_tracking.verification),
			updated_at = now()
	`, r.GameID, string(r.Status), r.GeneratorVersion, r.ServerSeedHash, serverSeed, verification)
	return err
}

// SetMeta writes a process-wide KV singleton (notably "live_state").
func (s *Store) SetMeta(ctx context.Context, m model.MetaKV) error {
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	_, err := s.db.Exec(ctx, `
		INSERT INTO meta (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, m.Key, m.Value)
	return err
}

// InsertConnectionEvent archives one upstream session lifecycle transition.
func (s *Store) InsertConnectionEvent(ctx context.Context, ev model.ConnectionEvent) error {
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	_, err := s.db.Exec(ctx, `
		INSERT INTO connection_events (id, event_type, reason, attempt, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`, ev.ID, string(ev.EventType), ev.Reason, ev.Attempt, ev.CreatedAt)
	return err
}

// deleteOlderThan backs the sweeper's TTL emulation. table and column are
// always sweeper-supplied constants, never user input.
func (s *Store) deleteOlderThan(ctx context.Context, table, column string, cutoff time.Time) (int64, error) {
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	tag, err := s.db.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE %s < $1`, table, column), cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// InsertStatusCheck records a lightweight ops heartbeat row.
func (s *Store) InsertStatusCheck(ctx context.Context, sc model.StatusCheck) error {
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	_, err := s.db.Exec(ctx, `
		INSERT INTO status_checks (id, status, timestamp) VALUES ($1, $2, $3)
	`, sc.ID, sc.Status, sc.Timestamp)
	return err
}
