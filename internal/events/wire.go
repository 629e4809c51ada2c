package events

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// provablyFairWire is the revealed-seed payload nested in a gameHistory
// entry once a game has ended.
type provablyFairWire struct {
	ServerSeed     string `json:"serverSeed"`
	ServerSeedHash string `json:"serverSeedHash"`
	Version        string `json:"version"`
}

// gameHistoryWire is one entry of gameStateUpdate's gameHistory array,
// present only once a game has ended and its seed is revealed.
type gameHistoryWire struct {
	GameID         string            `json:"gameId"`
	Prices         []decimal.Decimal `json:"prices"`
	PeakMultiplier decimal.Decimal   `json:"peakMultiplier"`
	ProvablyFair   provablyFairWire  `json:"provablyFair"`
}

type gameStateUpdateWire struct {
	GameID            string            `json:"gameId"`
	TickCount         int               `json:"tickCount"`
	Price             decimal.Decimal   `json:"price"`
	Active            bool              `json:"active"`
	Rugged            bool              `json:"rugged"`
	CooldownTimer     int               `json:"cooldownTimer"`
	AllowPreRoundBuys bool              `json:"allowPreRoundBuys"`
	GameHistory       []gameHistoryWire `json:"gameHistory"`
}

func parseGameStateUpdate(payload []byte) (gameStateUpdateWire, error) {
	var w gameStateUpdateWire
	if err := json.Unmarshal(payload, &w); err != nil {
		return w, fmt.Errorf("parse gameStateUpdate: %w", err)
	}
	return w, nil
}

type tradeWire struct {
	ID        string           `json:"id"`
	GameID    string           `json:"gameId"`
	PlayerID  string           `json:"playerId"`
	Type      string           `json:"type"`
	TickIndex int              `json:"tickIndex"`
	Amount    decimal.Decimal  `json:"amount"`
	Qty       decimal.Decimal  `json:"qty"`
	Price     *decimal.Decimal `json:"price,omitempty"`
	Coin      string           `json:"coin"`
}

func parseTrade(payload []byte) (tradeWire, error) {
	var w tradeWire
	if err := json.Unmarshal(payload, &w); err != nil {
		return w, fmt.Errorf("parse newTrade: %w", err)
	}
	return w, nil
}

type sideBetPlacedWire struct {
	GameID           string           `json:"gameId"`
	PlayerID         string           `json:"playerId"`
	StartTick        int              `json:"startTick"`
	BetAmount        decimal.Decimal  `json:"betAmount"`
	TargetMultiplier *decimal.Decimal `json:"targetMultiplier,omitempty"`
}

func parseSideBetPlaced(payload []byte) (sideBetPlacedWire, error) {
	var w sideBetPlacedWire
	if err := json.Unmarshal(payload, &w); err != nil {
		return w, fmt.Errorf("parse currentSideBet: %w", err)
	}
	return w, nil
}

type sideBetResultWire struct {
	GameID      string           `json:"gameId"`
	PlayerID    string           `json:"playerId"`
	StartTick   int              `json:"startTick"`
	EndTick     int              `json:"endTick"`
	BetAmount   decimal.Decimal  `json:"betAmount"`
	PayoutRatio *decimal.Decimal `json:"payoutRatio,omitempty"`
	Won         bool             `json:"won"`
	PNL         *decimal.Decimal `json:"pnl,omitempty"`
}

func parseSideBetResult(payload []byte) (sideBetResultWire, error) {
	var w sideBetResultWire
	if err := json.Unmarshal(payload, &w); err != nil {
		return w, fmt.Errorf("parse newSideBet: %w", err)
	}
	return w, nil
}

type playerUpdateWire struct {
	PlayerID string `json:"playerId"`
	GameID   string `json:"gameId,omitempty"`
}

func parsePlayerUpdate(payload []byte) (playerUpdateWire, error) {
	var w playerUpdateWire
	if err := json.Unmarshal(payload, &w); err != nil {
		return w, fmt.Errorf("parse player update: %w", err)
	}
	return w, nil
}
