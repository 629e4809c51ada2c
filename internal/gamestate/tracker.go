// Package gamestate owns the game lifecycle state machine: phase
// transitions, per-game identity, and the derived tick/OHLC/god-candle/
// quality artifacts. Exactly one trackedGameId is tagged at a time.
package gamestate

import (
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Dutchthenomad/rugsdata/internal/model"
)

var tenMillis = 10000 // cooldownTimer threshold, milliseconds

// GodCandleRatio is the minimum price_new/price_prev ratio that qualifies
// as a God Candle.
var godCandleRatio = decimal.NewFromInt(10)

// underCapThreshold is the price_prev guard for God Candle detection.
var underCapThreshold = decimal.NewFromInt(100)

// largeGapTicks is the tick-delta threshold for the largeGap quality flag.
const largeGapTicks = 10

// Derived is everything the tracker produced while handling one snapshot,
// returned so the caller (the router) can hand artifacts to persistence
// and the broadcaster without the tracker depending on those packages.
type Derived struct {
	Tick           *model.GameTick
	Index          *model.GameIndex
	GodCandle      *model.GodCandle
	GameUpsert     *model.Game
	RugEmitted     bool
	EndedGame      *model.Game // set on RUG -> COOLDOWN, carrying the finalized record
	ConsistencyErr string
}

// Tracker is the single-writer owner of live state and per-game derived
// artifacts. All mutation happens through HandleSnapshot; reads of
// LiveState are safe from any goroutine.
type Tracker struct {
	logger *slog.Logger

	mu sync.RWMutex

	trackedGameID string
	current       *model.Game
	lastTick      int
	haveLastTick  bool

	// indices in progress for the tracked game, keyed by OHLC index.
	indices map[int]*model.GameIndex

	live model.LiveState
}

// New creates an empty tracker.
func New(logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		logger:  logger,
		indices: make(map[int]*model.GameIndex),
	}
}

// LiveState returns a snapshot copy of the current authoritative state.
func (t *Tracker) LiveState() model.LiveState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.live
}

// HandleSnapshot advances the state machine for one gameStateUpdate
// snapshot and returns whatever artifacts it derived.
func (t *Tracker) HandleSnapshot(snap model.GameStateSnapshot, gameHistory []GameHistoryEntry) Derived {
	t.mu.Lock()
	defer t.mu.Unlock()

	var d Derived

	phase := t.inferPhase(snap)
	snap.Phase = phase

	// Identity gate: ignore snapshots for a game we're not tracking,
	// except when entering ACTIVE starts a new one.
	if t.trackedGameID != "" && snap.GameID != t.trackedGameID && phase != model.PhaseActive {
		return d
	}

	switch {
	case phase == model.PhaseActive && (t.current == nil || t.trackedGameID != snap.GameID):
		t.startNewGame(snap)
		d.GameUpsert = t.current

	case t.trackedGameID == "" && phase != model.PhaseActive:
		// Not tracking anything yet and this isn't a start — nothing to do.
		return d
	}

	if t.current == nil {
		return d
	}

	t.appendHistoryIfChanged(phase)

	if phase == model.PhaseRug && t.current.Phase != model.PhaseRug {
		d.RugEmitted = true
		t.current.RugTick = snap.TickCount
		t.current.EndPrice = snap.Price
	}
	t.current.Phase = phase

	t.updateQuality(snap)
	d.Tick, d.Index = t.deriveTickAndOHLC(snap)
	d.GodCandle = t.detectGodCandle(snap)

	t.current.TotalTicks = snap.TickCount
	if snap.Price.GreaterThan(t.current.PeakMultiplier) {
		t.current.PeakMultiplier = snap.Price
	}

	if phase == model.PhaseCooldown && t.current.Phase == model.PhaseCooldown {
		if ended := t.tryExtractEndedGame(gameHistory); ended != nil {
			d.EndedGame = ended
			// No game is tracked once extraction completes; the next
			// ACTIVE snapshot repopulates live state via startNewGame.
			t.live = model.LiveState{}
			return d
		}
	}

	t.live = model.LiveState{
		GameID:    t.current.ID,
		Phase:     phase,
		Snapshot:  &snap,
		UpdatedAt: time.Now().UTC(),
	}

	return d
}

// GameHistoryEntry is the revealed-game shape carried in gameHistory
// arrays, matched by gameId — never by position.
type GameHistoryEntry struct {
	GameID           string
	Prices           []decimal.Decimal
	PeakMultiplier   decimal.Decimal
	ServerSeed       string
	ServerSeedHash   string
	GeneratorVersion string
}

func (t *Tracker) inferPhase(snap model.GameStateSnapshot) model.Phase {
	cur := model.Phase("")
	if t.current != nil {
		cur = t.current.Phase
	}

	switch {
	case snap.Rugged:
		return model.PhaseRug
	case snap.Active:
		return model.PhaseActive
	case !snap.Active && snap.CooldownTimer > tenMillis:
		return model.PhaseCooldown
	case !snap.Active && snap.CooldownTimer <= tenMillis && snap.CooldownTimer > 0 && snap.AllowPreRoundBuys:
		return model.PhasePreRound
	case cur == model.PhaseRug:
		return model.PhaseCooldown
	default:
		return model.PhaseCooldown
	}
}

func (t *Tracker) startNewGame(snap model.GameStateSnapshot) {
	t.trackedGameID = snap.GameID
	t.current = &model.Game{
		ID:        snap.GameID,
		Phase:     model.PhaseActive,
		StartTime: snap.CreatedAt,
		History:   nil,
	}
	t.lastTick = -1
	t.haveLastTick = false
	t.indices = make(map[int]*model.GameIndex)
}

func (t *Tracker) appendHistoryIfChanged(phase model.Phase) {
	n := len(t.current.History)
	if n > 0 && t.current.History[n-1].Phase == phase {
		return
	}
	t.current.History = append(t.current.History, model.PhaseTransition{
		Phase:     phase,
		Timestamp: time.Now().UTC(),
	})
}

func (t *Tracker) deriveTickAndOHLC(snap model.GameStateSnapshot) (*model.GameTick, *model.GameIndex) {
	if t.haveLastTick && snap.TickCount <= t.lastTick {
		return nil, nil // duplicate or out-of-order; quality flag already set
	}
	t.lastTick = snap.TickCount
	t.haveLastTick = true

	tick := &model.GameTick{GameID: snap.GameID, Tick: snap.TickCount, Price: snap.Price}

	idx := snap.TickCount / 5
	agg, ok := t.indices[idx]
	if !ok {
		agg = &model.GameIndex{
			GameID:    snap.GameID,
			Index:     idx,
			StartTick: idx * 5,
			EndTick:   idx*5 + 4,
			Open:      snap.Price,
			High:      snap.Price,
			Low:       snap.Price,
			Close:     snap.Price,
		}
		t.indices[idx] = agg
	} else {
		if snap.Price.GreaterThan(agg.High) {
			agg.High = snap.Price
		}
		if snap.Price.LessThan(agg.Low) {
			agg.Low = snap.Price
		}
		agg.Close = snap.Price
	}

	return tick, agg
}

func (t *Tracker) detectGodCandle(snap model.GameStateSnapshot) *model.GodCandle {
	if t.live.Snapshot == nil {
		return nil
	}
	prev := t.live.Snapshot.Price
	if prev.IsZero() {
		return nil
	}
	ratio := snap.Price.Div(prev)
	if ratio.LessThan(godCandleRatio) {
		return nil
	}

	t.current.HasGodCandle = true
	return &model.GodCandle{
		GameID:    snap.GameID,
		TickIndex: snap.TickCount,
		FromPrice: prev,
		ToPrice:   snap.Price,
		Ratio:     ratio,
		Version:   t.current.GeneratorVersion,
		UnderCap:  prev.LessThanOrEqual(underCapThreshold),
		CreatedAt: time.Now().UTC(),
	}
}

func (t *Tracker) updateQuality(snap model.GameStateSnapshot) {
	q := &t.current.Quality
	if t.haveLastTick && snap.TickCount <= t.lastTick {
		q.DuplicateOrOutOfOrder = true
	}
	if t.live.Snapshot != nil && snap.TickCount-t.live.Snapshot.TickCount > largeGapTicks {
		q.LargeGap = true
	}
	if !snap.Price.IsPositive() {
		q.PriceNonPositive = true
	}
	q.LastCheckedAt = time.Now().UTC()
}

// tryExtractEndedGame matches the tracked game by ID within gameHistory —
// never positionally.
func (t *Tracker) tryExtractEndedGame(history []GameHistoryEntry) *model.Game {
	for _, h := range history {
		if h.GameID != t.trackedGameID {
			continue
		}

		t.current.ServerSeed = h.ServerSeed
		t.current.ServerSeedHash = h.ServerSeedHash
		t.current.GeneratorVersion = h.GeneratorVersion
		t.current.PeakMultiplier = h.PeakMultiplier
		t.current.EndTime = time.Now().UTC()
		t.current.Prices = h.Prices
		t.current.Phase = model.PhaseCompleted

		ended := t.current
		t.logger.Info("game ended", "game_id", ended.ID, "total_ticks", ended.TotalTicks)

		t.trackedGameID = ""
		t.current = nil
		t.lastTick = -1
		t.haveLastTick = false
		t.indices = make(map[int]*model.GameIndex)

		return ended
	}

	if len(history) > 0 {
		t.logger.Error("game history arrived without tracked game", "tracked_game_id", t.trackedGameID)
		t.trackedGameID = ""
		t.current = nil
	}
	return nil
}
