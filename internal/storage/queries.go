package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/Dutchthenomad/rugsdata/internal/model"
)

// ErrNotFound is returned by single-row lookups that match no record.
var ErrNotFound = errors.New("storage: not found")

func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// GetGame fetches one game by id for GET /api/games/{id}.
func (s *Store) GetGame(ctx context.Context, id string) (model.Game, error) {
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	row := s.db.QueryRow(ctx, `
		SELECT id, phase, version, generator_version, server_seed_hash, server_seed,
		       start_time, end_time, rug_tick, end_price, peak_multiplier, total_ticks,
		       has_god_candle, prng_verified, prng_verification_data, quality, history
		FROM games WHERE id = $1
	`, id)
	return scanGame(row)
}

// ListGames returns the most recently started games, newest first, for
// GET /api/games[?limit=].
func (s *Store) ListGames(ctx context.Context, limit int) ([]model.Game, error) {
	ctx, cancel := withDeadline(ctx)
	defer cancel()
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, phase, version, generator_version, server_seed_hash, server_seed,
		       start_time, end_time, rug_tick, end_price, peak_multiplier, total_ticks,
		       has_god_candle, prng_verified, prng_verification_data, quality, history
		FROM games ORDER BY start_time DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// CurrentGame returns the most recently started game not yet COMPLETED,
// for GET /api/games/current.
func (s *Store) CurrentGame(ctx context.Context) (model.Game, error) {
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	row := s.db.QueryRow(ctx, `
		SELECT id, phase, version, generator_version, server_seed_hash, server_seed,
		       start_time, end_time, rug_tick, end_price, peak_multiplier, total_ticks,
		       has_god_candle, prng_verified, prng_verification_data, quality, history
		FROM games WHERE phase <> $1 ORDER BY start_time DESC LIMIT 1
	`, string(model.PhaseCompleted))
	return scanGame(row)
}

type scannableRow interface {
	Scan(dest ...any) error
}

func scanGame(row scannableRow) (model.Game, error) {
	var g model.Game
	var phase string
	var endPrice, peakMultiplier string
	var verification, quality, history []byte
	var serverSeed *string

	err := row.Scan(&g.ID, &phase, &g.Version, &g.GeneratorVersion, &g.ServerSeedHash, &serverSeed,
		&g.StartTime, &g.EndTime, &g.RugTick, &endPrice, &peakMultiplier, &g.TotalTicks,
		&g.HasGodCandle, &g.PRNGVerified, &verification, &quality, &history)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Game{}, ErrNotFound
		}
		return model.Game{}, err
	}

	g.Phase = model.Phase(phase)
	if serverSeed != nil {
		g.ServerSeed = *serverSeed
	}
	if g.EndPrice, err = parseDecimal(endPrice); err != nil {
		return model.Game{}, fmt.Errorf("parse end_price: %w", err)
	}
	if g.PeakMultiplier, err = parseDecimal(peakMultiplier); err != nil {
		return model.Game{}, fmt.Errorf("parse peak_multiplier: %w", err)
	}
	if len(verification) > 0 {
		var v model.PRNGVerificationData
		if err := json.Unmarshal(verification, &v); err != nil {
			return model.Game{}, fmt.Errorf("unmarshal verification: %w", err)
		}
		g.PRNGVerificationData = &v
	}
	if len(quality) > 0 {
		if err := json.Unmarshal(quality, &g.Quality); err != nil {
			return model.Game{}, fmt.Errorf("unmarshal quality: %w", err)
		}
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &g.History); err != nil {
			return model.Game{}, fmt.Errorf("unmarshal history: %w", err)
		}
	}
	return g, nil
}

// ListSnapshots returns the latest snapshots across all games, newest
// first, for GET /api/snapshots?limit=.
func (s *Store) ListSnapshots(ctx context.Context, limit int) ([]model.GameStateSnapshot, error) {
	ctx, cancel := withDeadline(ctx)
	defer cancel()
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	rows, err := s.db.Query(ctx, `
		SELECT game_id, tick_count, price, active, rugged, phase, validation, created_at
		FROM game_state_snapshots ORDER BY created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.GameStateSnapshot
	for rows.Next() {
		var snap model.GameStateSnapshot
		var phase, price string
		var validation []byte
		if err := rows.Scan(&snap.GameID, &snap.TickCount, &price, &snap.Active, &snap.Rugged, &phase, &validation, &snap.CreatedAt); err != nil {
			return nil, err
		}
		snap.Phase = model.Phase(phase)
		if snap.Price, err = parseDecimal(price); err != nil {
			return nil, fmt.Errorf("parse price: %w", err)
		}
		if len(validation) > 0 {
			var v model.ValidationSummary
			if err := json.Unmarshal(validation, &v); err != nil {
				return nil, fmt.Errorf("unmarshal validation: %w", err)
			}
			snap.Validation = &v
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// ListOHLC returns a game's 5-tick OHLC aggregates in index order, for
// GET /api/ohlc?gameId=&limit=.
func (s *Store) ListOHLC(ctx context.Context, gameID string, limit int) ([]model.GameIndex, error) {
	ctx, cancel := withDeadline(ctx)
	defer cancel()
	if limit <= 0 || limit > 5000 {
		limit = 500
	}

	rows, err := s.db.Query(ctx, `
		SELECT game_id, index, start_tick, end_tick, open, high, low, close
		FROM game_indices WHERE game_id = $1 ORDER BY index ASC LIMIT $2
	`, gameID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.GameIndex
	for rows.Next() {
		var idx model.GameIndex
		var open, high, low, closeP string
		if err := rows.Scan(&idx.GameID, &idx.Index, &idx.StartTick, &idx.EndTick, &open, &high, &low, &closeP); err != nil {
			return nil, err
		}
		if idx.Open, err = parseDecimal(open); err != nil {
			return nil, err
		}
		if idx.High, err = parseDecimal(high); err != nil {
			return nil, err
		}
		if idx.Low, err = parseDecimal(low); err != nil {
			return nil, err
		}
		if idx.Close, err = parseDecimal(closeP); err != nil {
			return nil, err
		}
		out = append(out, idx)
	}
	return out, rows.Err()
}

// ListGodCandles returns a game's god candle records in tick order, for
// GET /api/god-candles?gameId=.
func (s *Store) ListGodCandles(ctx context.Context, gameID string) ([]model.GodCandle, error) {
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	rows, err := s.db.Query(ctx, `
		SELECT game_id, tick_index, from_price, to_price, ratio, version, under_cap, created_at
		FROM god_candles WHERE game_id = $1 ORDER BY tick_index ASC
	`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.GodCandle
	for rows.Next() {
		var gc model.GodCandle
		var from, to, ratio string
		if err := rows.Scan(&gc.GameID, &gc.TickIndex, &from, &to, &ratio, &gc.Version, &gc.UnderCap, &gc.CreatedAt); err != nil {
			return nil, err
		}
		if gc.FromPrice, err = parseDecimal(from); err != nil {
			return nil, err
		}
		if gc.ToPrice, err = parseDecimal(to); err != nil {
			return nil, err
		}
		if gc.Ratio, err = parseDecimal(ratio); err != nil {
			return nil, err
		}
		out = append(out, gc)
	}
	return out, rows.Err()
}

// GetPRNGTracking fetches one game's verification record, for
// GET /api/games/{id}/verification and the POST /api/prng/verify/{id}
// handler's lookup of the stored trajectory/seed.
func (s *Store) GetPRNGTracking(ctx context.Context, gameID string) (model.PRNGTrackingRecord, error) {
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	row := s.db.QueryRow(ctx, `
		SELECT game_id, status, generator_version, server_seed_hash, server_seed, verification, updated_at
		FROM prng_tracking WHERE game_id = $1
	`, gameID)

	var r model.PRNGTrackingRecord
	var status string
	var serverSeed *string
	var verification []byte
	err := row.Scan(&r.GameID, &status, &r.GeneratorVersion, &r.ServerSeedHash, &serverSeed, &verification, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PRNGTrackingRecord{}, ErrNotFound
		}
		return model.PRNGTrackingRecord{}, err
	}
	r.Status = model.PRNGStatus(status)
	if serverSeed != nil {
		r.ServerSeed = *serverSeed
	}
	if len(verification) > 0 {
		var v model.PRNGVerificationData
		if err := json.Unmarshal(verification, &v); err != nil {
			return model.PRNGTrackingRecord{}, fmt.Errorf("unmarshal verification: %w", err)
		}
		r.Verification = &v
	}
	return r, nil
}

// ListPRNGTracking returns the most recently updated tracking records,
// for GET /api/prng/tracking[?limit=].
func (s *Store) ListPRNGTracking(ctx context.Context, limit int) ([]model.PRNGTrackingRecord, error) {
	ctx, cancel := withDeadline(ctx)
	defer cancel()
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	rows, err := s.db.Query(ctx, `
		SELECT game_id, status, generator_version, server_seed_hash, server_seed, verification, updated_at
		FROM prng_tracking ORDER BY updated_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PRNGTrackingRecord
	for rows.Next() {
		var r model.PRNGTrackingRecord
		var status string
		var serverSeed *string
		var verification []byte
		if err := rows.Scan(&r.GameID, &status, &r.GeneratorVersion, &r.ServerSeedHash, &serverSeed, &verification, &r.UpdatedAt); err != nil {
			return nil, err
		}
		r.Status = model.PRNGStatus(status)
		if serverSeed != nil {
			r.ServerSeed = *serverSeed
		}
		if len(verification) > 0 {
			var v model.PRNGVerificationData
			if err := json.Unmarshal(verification, &v); err != nil {
				return nil, fmt.Errorf("unmarshal verification: %w", err)
			}
			r.Verification = &v
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetTicks returns a game's raw tick trajectory in tick order, the input
// the verifier compares its simulated run against.
func (s *Store) GetTicks(ctx context.Context, gameID string) ([]decimal.Decimal, error) {
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	rows, err := s.db.Query(ctx, `SELECT price FROM game_ticks WHERE game_id = $1 ORDER BY tick ASC`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []decimal.Decimal
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		d, err := parseDecimal(p)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetMeta fetches the raw JSON value for a singleton key (notably
// "live_state"), for GET /api/live.
func (s *Store) GetMeta(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	var value []byte
	err := s.db.QueryRow(ctx, `SELECT value FROM meta WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return value, nil
}

// LatestConnectionEvent fetches the most recent upstream session
// transition, for GET /api/connection.
func (s *Store) LatestConnectionEvent(ctx context.Context) (model.ConnectionEvent, error) {
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	var ev model.ConnectionEvent
	var eventType string
	err := s.db.QueryRow(ctx, `
		SELECT id, event_type, reason, attempt, created_at
		FROM connection_events ORDER BY created_at DESC LIMIT 1
	`).Scan(&ev.ID, &eventType, &ev.Reason, &ev.Attempt, &ev.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ConnectionEvent{}, ErrNotFound
		}
		return model.ConnectionEvent{}, err
	}
	ev.EventType = model.ConnectionEventType(eventType)
	return ev, nil
}

// LatestStatusCheck fetches the most recent ops heartbeat row.
func (s *Store) LatestStatusCheck(ctx context.Context) (model.StatusCheck, error) {
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	var sc model.StatusCheck
	err := s.db.QueryRow(ctx, `
		SELECT id, status, timestamp FROM status_checks ORDER BY timestamp DESC LIMIT 1
	`).Scan(&sc.ID, &sc.Status, &sc.Timestamp)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.StatusCheck{}, ErrNotFound
		}
		return model.StatusCheck{}, err
	}
	return sc, nil
}
