package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/Dutchthenomad/rugsdata/internal/cache"
	"github.com/Dutchthenomad/rugsdata/internal/gamestate"
	"github.com/Dutchthenomad/rugsdata/internal/ids"
	"github.com/Dutchthenomad/rugsdata/internal/metrics"
	"github.com/Dutchthenomad/rugsdata/internal/model"
	"github.com/Dutchthenomad/rugsdata/internal/ringbuf"
	"github.com/Dutchthenomad/rugsdata/internal/schema"
	"github.com/Dutchthenomad/rugsdata/internal/storage"
)

const liveStateMetaKey = "live_state"

// Router drains raw inbound frames and dispatches them to validation,
// persistence, the state tracker, and the broadcaster. It owns appends to
// events, trades, side_bets, and game_state_snapshots; the tracker it
// drives owns games, prng_tracking, game_ticks, game_indices, god_candles
// and live_state.
type Router struct {
	registry  *schema.Registry
	tracker   *gamestate.Tracker
	sink      storage.Sink
	publisher Publisher
	metrics   *metrics.Counters
	logger    *slog.Logger
	cache     *cache.LiveState
}

// New builds a Router wired to its collaborators. cache may be nil, in
// which case live_state is only ever read back from Postgres.
func New(registry *schema.Registry, tracker *gamestate.Tracker, sink storage.Sink, pub Publisher, m *metrics.Counters, logger *slog.Logger, liveCache *cache.LiveState) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{registry: registry, tracker: tracker, sink: sink, publisher: pub, metrics: m, logger: logger, cache: liveCache}
}

// Run drains frames one at a time, in arrival order, until the queue is
// closed or ctx is canceled — preserving the per-gameId ordering guarantee
// of §5 by using a single router task rather than a worker pool. A panic
// while handling one frame is recovered per-frame so a single bad payload
// can't take the whole router down for the rest of the process's life.
func (r *Router) Run(ctx context.Context, frames *ringbuf.Bounded[model.RawFrame]) {
	for {
		if ctx.Err() != nil {
			return
		}
		raw, ok := frames.Receive()
		if !ok {
			return
		}
		r.handleRecovered(raw)
	}
}

func (r *Router) handleRecovered(raw model.RawFrame) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("panic handling frame", "event", raw.EventName, "panic", rec)
		}
	}()
	r.Handle(raw)
}

// Handle processes one raw inbound frame end to end.
func (r *Router) Handle(raw model.RawFrame) {
	if r.metrics != nil {
		r.metrics.MarkEventReceived()
	}

	schemaKey, known := schemaKeyFor[raw.EventName]
	if !known {
		r.archive(raw, nil)
		return
	}

	result := r.registry.Validate(schemaKey, raw.Payload)
	if r.metrics != nil {
		r.metrics.RecordValidation(schemaKey, result.OK)
	}
	validation := &model.ValidationSummary{OK: result.OK, Schema: schemaKey, Error: result.Error}
	r.archive(raw, validation)

	switch schemaKey {
	case "gameStateUpdate":
		r.handleGameStateUpdate(raw, validation)
	case "newTrade":
		r.handleTrade(raw, validation)
	case "currentSideBet":
		r.handleSideBetPlaced(raw, validation)
	case "newSideBet":
		r.handleSideBetResult(raw, validation)
	case "gameStatePlayerUpdate", "playerUpdate":
		r.handlePlayerUpdate(raw, schemaKey, validation)
	}
}

func (r *Router) archive(raw model.RawFrame, validation *model.ValidationSummary) {
	r.sink.Enqueue(storage.Job{
		Kind: storage.JobEvent,
		Event: &model.Event{
			ID:         ids.New(),
			Type:       raw.EventName,
			Payload:    raw.Payload,
			Validation: validation,
			CreatedAt:  raw.ReceivedAt,
		},
	})
}

func (r *Router) publish(frameType string, data map[string]any) {
	r.publisher.Publish(model.OutboundFrame{
		Schema: "v1",
		Type:   frameType,
		Ts:     time.Now().UTC(),
		Data:   data,
	})
}

func (r *Router) handleGameStateUpdate(raw model.RawFrame, validation *model.ValidationSummary) {
	w, err := parseGameStateUpdate(raw.Payload)
	if err != nil {
		r.logger.Error("malformed gameStateUpdate despite schema pass", "error", err)
		return
	}

	snap := model.GameStateSnapshot{
		GameID:            w.GameID,
		TickCount:         w.TickCount,
		Price:             w.Price,
		Active:            w.Active,
		Rugged:            w.Rugged,
		CooldownTimer:     w.CooldownTimer,
		AllowPreRoundBuys: w.AllowPreRoundBuys,
		Validation:        validation,
		CreatedAt:         raw.ReceivedAt,
	}
	r.sink.Enqueue(storage.Job{Kind: storage.JobSnapshot, Snapshot: &snap})

	history := make([]gamestate.GameHistoryEntry, 0, len(w.GameHistory))
	for _, h := range w.GameHistory {
		history = append(history, gamestate.GameHistoryEntry{
			GameID:           h.GameID,
			Prices:           h.Prices,
			PeakMultiplier:   h.PeakMultiplier,
			ServerSeed:       h.ProvablyFair.ServerSeed,
			ServerSeedHash:   h.ProvablyFair.ServerSeedHash,
			GeneratorVersion: h.ProvablyFair.Version,
		})
	}

	derived := r.tracker.HandleSnapshot(snap, history)

	if live, err := json.Marshal(r.tracker.LiveState()); err == nil {
		r.sink.Enqueue(storage.Job{Kind: storage.JobMeta, Meta: &model.MetaKV{
			Key:       liveStateMetaKey,
			Value:     live,
			UpdatedAt: time.Now().UTC(),
		}})
		if r.cache != nil {
			r.cache.Set(context.Background(), live)
		}
	}

	if derived.GameUpsert != nil {
		r.sink.Enqueue(storage.Job{Kind: storage.JobGame, Game: derived.GameUpsert})
		r.sink.Enqueue(storage.Job{Kind: storage.JobPRNG, PRNG: &model.PRNGTrackingRecord{
			GameID:           derived.GameUpsert.ID,
			Status:           model.PRNGTracking,
			GeneratorVersion: derived.GameUpsert.GeneratorVersion,
			ServerSeedHash:   derived.GameUpsert.ServerSeedHash,
			UpdatedAt:        time.Now().UTC(),
		}})
		if r.metrics != nil {
			r.metrics.IncTotalGamesTracked()
		}
	}
	if derived.Tick != nil {
		r.sink.Enqueue(storage.Job{Kind: storage.JobTick, Tick: derived.Tick})
	}
	if derived.Index != nil {
		r.sink.Enqueue(storage.Job{Kind: storage.JobIndex, Index: derived.Index})
	}
	if derived.GodCandle != nil {
		r.sink.Enqueue(storage.Job{Kind: storage.JobGodCandle, GodCandle: derived.GodCandle})
		r.publish("god_candle", map[string]any{
			"gameId":    derived.GodCandle.GameID,
			"tick":      derived.GodCandle.TickIndex,
			"fromPrice": derived.GodCandle.FromPrice,
			"toPrice":   derived.GodCandle.ToPrice,
			"ratio":     derived.GodCandle.Ratio,
		})
	}
	if derived.RugEmitted {
		r.publish("rug", map[string]any{
			"gameId":   snap.GameID,
			"tick":     snap.TickCount,
			"endPrice": snap.Price,
		})
	}
	if derived.EndedGame != nil {
		r.sink.Enqueue(storage.Job{Kind: storage.JobGame, Game: derived.EndedGame})
		if derived.EndedGame.ServerSeed != "" {
			r.sink.Enqueue(storage.Job{Kind: storage.JobPRNG, PRNG: &model.PRNGTrackingRecord{
				GameID:           derived.EndedGame.ID,
				Status:           model.PRNGComplete,
				GeneratorVersion: derived.EndedGame.GeneratorVersion,
				ServerSeedHash:   derived.EndedGame.ServerSeedHash,
				ServerSeed:       derived.EndedGame.ServerSeed,
				UpdatedAt:        time.Now().UTC(),
			}})
		}
	}

	r.publish("game_state_update", map[string]any{
		"gameId": snap.GameID,
		"tick":   snap.TickCount,
		"price":  snap.Price,
		"phase":  snap.Phase,
		"validation": map[string]any{
			"ok":     validation.OK,
			"schema": validation.Schema,
		},
	})
}

func (r *Router) handleTrade(raw model.RawFrame, validation *model.ValidationSummary) {
	w, err := parseTrade(raw.Payload)
	if err != nil {
		r.logger.Error("malformed newTrade despite schema pass", "error", err)
		return
	}

	trade := model.Trade{
		EventID:   w.ID,
		GameID:    w.GameID,
		PlayerID:  w.PlayerID,
		Type:      model.TradeType(w.Type),
		TickIndex: w.TickIndex,
		Amount:    w.Amount,
		Qty:       w.Qty,
		Price:     w.Price,
		Coin:      w.Coin,
		CreatedAt: raw.ReceivedAt,
	}
	r.sink.Enqueue(storage.Job{Kind: storage.JobTrade, Trade: &trade})

	r.publish("trade", map[string]any{
		"gameId":     trade.GameID,
		"playerId":   trade.PlayerID,
		"tradeType":  trade.Type,
		"tickIndex":  trade.TickIndex,
		"amount":     trade.Amount,
		"qty":        trade.Qty,
		"price":      trade.Price,
		"validation": validation,
	})
}

func (r *Router) handleSideBetPlaced(raw model.RawFrame, validation *model.ValidationSummary) {
	w, err := parseSideBetPlaced(raw.Payload)
	if err != nil {
		r.logger.Error("malformed currentSideBet despite schema pass", "error", err)
		return
	}

	bet := model.SideBet{
		ID:               ids.New(),
		GameID:           w.GameID,
		PlayerID:         w.PlayerID,
		Event:            sideBetEventLabel("currentSideBet"),
		StartTick:        w.StartTick,
		BetAmount:        w.BetAmount,
		TargetMultiplier: w.TargetMultiplier,
		CreatedAt:        raw.ReceivedAt,
	}
	r.sink.Enqueue(storage.Job{Kind: storage.JobSideBet, SideBet: &bet})

	r.publish("side_bet", map[string]any{
		"event":      bet.Event,
		"gameId":     bet.GameID,
		"playerId":   bet.PlayerID,
		"validation": validation,
	})
}

func (r *Router) handleSideBetResult(raw model.RawFrame, validation *model.ValidationSummary) {
	w, err := parseSideBetResult(raw.Payload)
	if err != nil {
		r.logger.Error("malformed newSideBet despite schema pass", "error", err)
		return
	}

	won := w.Won
	bet := model.SideBet{
		ID:          ids.New(),
		GameID:      w.GameID,
		PlayerID:    w.PlayerID,
		Event:       sideBetEventLabel("newSideBet"),
		StartTick:   w.StartTick,
		EndTick:     w.EndTick,
		BetAmount:   w.BetAmount,
		PayoutRatio: w.PayoutRatio,
		Won:         &won,
		PNL:         w.PNL,
		CreatedAt:   raw.ReceivedAt,
	}
	r.sink.Enqueue(storage.Job{Kind: storage.JobSideBet, SideBet: &bet})

	r.publish("side_bet", map[string]any{
		"event":      bet.Event,
		"gameId":     bet.GameID,
		"playerId":   bet.PlayerID,
		"validation": validation,
	})
}

func (r *Router) handlePlayerUpdate(raw model.RawFrame, schemaKey string, validation *model.ValidationSummary) {
	w, err := parsePlayerUpdate(raw.Payload)
	if err != nil {
		r.logger.Error("malformed player update despite schema pass", "schema", schemaKey, "error", err)
		return
	}

	r.publish("player_update", map[string]any{
		"playerId":   w.PlayerID,
		"gameId":     w.GameID,
		"validation": validation,
	})
}
