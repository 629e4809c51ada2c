// Package model holds the persisted domain types — one Go struct per
// relation. Prices use shopspring/decimal for exact arithmetic;
// timestamps are UTC time.Time with millisecond precision.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Phase is the game lifecycle state.
type Phase string

const (
	PhaseWaiting   Phase = "WAITING"
	PhaseCooldown  Phase = "COOLDOWN"
	PhasePreRound  Phase = "PRE_ROUND"
	PhaseActive    Phase = "ACTIVE"
	PhaseRug       Phase = "RUG"
	PhaseCompleted Phase = "COMPLETED"
)

// PhaseTransition is one entry in a Game's append-only history.
type PhaseTransition struct {
	Phase     Phase     `json:"phase"`
	Timestamp time.Time `json:"timestamp"`
}

// Quality flags tracked per game, updated on each relevant tick.
type Quality struct {
	DuplicateOrOutOfOrder bool      `json:"duplicateOrOutOfOrder"`
	LargeGap              bool      `json:"largeGap"`
	PriceNonPositive      bool      `json:"priceNonPositive"`
	LastCheckedAt         time.Time `json:"lastCheckedAt"`
}

// PRNGVerificationData is the comparison report produced by the verifier.
type PRNGVerificationData struct {
	PeakMatch       bool      `json:"peakMatch"`
	TicksMatch      bool      `json:"ticksMatch"`
	ArrayMatch      bool      `json:"arrayMatch"`
	FullVerification bool     `json:"fullVerification"`
	DivergedAtTick  int       `json:"divergedAtTick,omitempty"`
	SimulatedPeak   decimal.Decimal `json:"simulatedPeak"`
	CheckedAt       time.Time `json:"checkedAt"`
}

// Game is the authoritative record for one play of the game.
type Game struct {
	ID                   string            `json:"id"`
	Phase                Phase             `json:"phase"`
	Version              int               `json:"version"`
	GeneratorVersion     string            `json:"generatorVersion"`
	ServerSeedHash       string            `json:"serverSeedHash"`
	ServerSeed           string            `json:"serverSeed,omitempty"`
	StartTime            time.Time         `json:"startTime"`
	EndTime              time.Time         `json:"endTime"`
	RugTick              int               `json:"rugTick"`
	EndPrice             decimal.Decimal   `json:"endPrice"`
	PeakMultiplier       decimal.Decimal   `json:"peakMultiplier"`
	TotalTicks           int               `json:"totalTicks"`
	HasGodCandle         bool              `json:"hasGodCandle"`
	PRNGVerified         bool              `json:"prngVerified"`
	PRNGVerificationData *PRNGVerificationData `json:"prngVerificationData,omitempty"`
	Quality              Quality           `json:"quality"`
	History              []PhaseTransition `json:"history"`
	Prices               []decimal.Decimal `json:"-"` // revealed trajectory, not serialized wholesale
}

// GameStateSnapshot is a tick-level authoritative snapshot.
type GameStateSnapshot struct {
	GameID            string             `json:"gameId"`
	TickCount         int                `json:"tickCount"`
	Price             decimal.Decimal    `json:"price"`
	Active            bool               `json:"active"`
	Rugged            bool               `json:"rugged"`
	CooldownTimer     int                `json:"cooldownTimer"`
	AllowPreRoundBuys bool               `json:"allowPreRoundBuys"`
	Phase             Phase              `json:"phase"`
	Validation        *ValidationSummary `json:"validation,omitempty"`
	CreatedAt         time.Time          `json:"createdAt"`
}

// TradeType distinguishes buy and sell orders.
type TradeType string

const (
	TradeBuy  TradeType = "buy"
	TradeSell TradeType = "sell"
)

// Trade is a caller-identified, idempotent trade record.
type Trade struct {
	EventID   string          `json:"eventId"`
	GameID    string          `json:"gameId"`
	PlayerID  string          `json:"playerId"`
	Type      TradeType       `json:"type"`
	TickIndex int             `json:"tickIndex"`
	Amount    decimal.Decimal `json:"amount"`
	Qty       decimal.Decimal `json:"qty"`
	Price     *decimal.Decimal `json:"price,omitempty"`
	Coin      string          `json:"coin"`
	CreatedAt time.Time       `json:"createdAt"`
}

// SideBet is a per-game, per-player side wager.
type SideBet struct {
	ID               string           `json:"id"`
	GameID           string           `json:"gameId"`
	PlayerID         string           `json:"playerId"`
	Event            string           `json:"event"` // "placed" | "result", derived from the inbound event's schema key
	StartTick        int              `json:"startTick"`
	EndTick          int              `json:"endTick"`
	BetAmount        decimal.Decimal  `json:"betAmount"`
	TargetMultiplier *decimal.Decimal `json:"targetMultiplier,omitempty"`
	PayoutRatio      *decimal.Decimal `json:"payoutRatio,omitempty"`
	Won              *bool            `json:"won,omitempty"`
	PNL              *decimal.Decimal `json:"pnl,omitempty"`
	CreatedAt        time.Time        `json:"createdAt"`
}

// GodCandle records a single-tick >=10x price jump.
type GodCandle struct {
	GameID    string          `json:"gameId"`
	TickIndex int             `json:"tickIndex"`
	FromPrice decimal.Decimal `json:"fromPrice"`
	ToPrice   decimal.Decimal `json:"toPrice"`
	Ratio     decimal.Decimal `json:"ratio"`
	Version   string          `json:"version"`
	UnderCap  bool            `json:"underCap"`
	CreatedAt time.Time       `json:"createdAt"`
}

// GameTick is the source of truth for one tick's price.
type GameTick struct {
	GameID string          `json:"gameId"`
	Tick   int             `json:"tick"`
	Price  decimal.Decimal `json:"price"`
}

// GameIndex is a 5-tick OHLC aggregate.
type GameIndex struct {
	GameID    string          `json:"gameId"`
	Index     int             `json:"index"`
	StartTick int             `json:"startTick"`
	EndTick   int             `json:"endTick"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
}

// ValidationSummary is the warn-only validation tag attached to raw events.
type ValidationSummary struct {
	OK     bool   `json:"ok"`
	Schema string `json:"schema"`
	Error  string `json:"error,omitempty"`
}

// Event is the raw inbound event archive.
type Event struct {
	ID         string             `json:"id"`
	Type       string             `json:"type"`
	Payload    []byte             `json:"payload"` // raw JSON
	Validation *ValidationSummary `json:"validation,omitempty"`
	CreatedAt  time.Time          `json:"createdAt"`
}

// ConnectionEventType enumerates upstream session lifecycle events.
type ConnectionEventType string

const (
	ConnConnected            ConnectionEventType = "CONNECTED"
	ConnDisconnected         ConnectionEventType = "DISCONNECTED"
	ConnError                ConnectionEventType = "ERROR"
	ConnMaxReconnectsReached ConnectionEventType = "MAX_RECONNECTS_REACHED"
)

// ConnectionEvent records one upstream session transition.
type ConnectionEvent struct {
	ID        string               `json:"id"`
	EventType ConnectionEventType  `json:"eventType"`
	Reason    string               `json:"reason,omitempty"`
	Attempt   int                  `json:"attempt,omitempty"`
	CreatedAt time.Time            `json:"createdAt"`
}

// PRNGStatus is the verification lifecycle status.
type PRNGStatus string

const (
	PRNGTracking        PRNGStatus = "TRACKING"
	PRNGComplete         PRNGStatus = "COMPLETE"
	PRNGAwaitingSeed     PRNGStatus = "AWAITING_SEED"
	PRNGMissingExpected  PRNGStatus = "MISSING_EXPECTED"
	PRNGVerified         PRNGStatus = "VERIFIED"
	PRNGFailed           PRNGStatus = "FAILED"
)

// PRNGTrackingRecord is the per-game verification record.
type PRNGTrackingRecord struct {
	GameID           string                `json:"gameId"`
	Status           PRNGStatus            `json:"status"`
	GeneratorVersion string                `json:"generatorVersion"`
	ServerSeedHash   string                `json:"serverSeedHash"`
	ServerSeed       string                `json:"serverSeed,omitempty"`
	Verification     *PRNGVerificationData `json:"verification,omitempty"`
	UpdatedAt        time.Time             `json:"updatedAt"`
}

// MetaKV is a process-wide singleton keyed by name (notably "live_state").
type MetaKV struct {
	Key       string    `json:"key"`
	Value     []byte    `json:"value"` // raw JSON
	UpdatedAt time.Time `json:"updatedAt"`
}

// StatusCheck is a lightweight heartbeat row used for ops visibility.
type StatusCheck struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// LiveState is the tracker's singleton "current authoritative game
// snapshot plus inferred phase", the value stored under meta key
// "live_state" and served by GET /api/live.
type LiveState struct {
	GameID    string              `json:"gameId"`
	Phase     Phase               `json:"phase"`
	Snapshot  *GameStateSnapshot  `json:"snapshot,omitempty"`
	UpdatedAt time.Time           `json:"updatedAt"`
}
