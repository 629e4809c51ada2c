package storage

import "github.com/Dutchthenomad/rugsdata/internal/model"

// JobKind tags a persistence work item with the table it targets.
type JobKind int

const (
	JobEvent JobKind = iota
	JobSnapshot
	JobTrade
	JobSideBet
	JobGame
	JobTick
	JobIndex
	JobGodCandle
	JobPRNG
	JobMeta
	JobConnectionEvent
)

// Job is one persistence work item dispatched by the router or the
// upstream consumer. Exactly one payload field is set, matching Kind.
type Job struct {
	Kind JobKind

	Event      *model.Event
	Snapshot   *model.GameStateSnapshot
	Trade      *model.Trade
	SideBet    *model.SideBet
	Game       *model.Game
	Tick       *model.GameTick
	Index      *model.GameIndex
	GodCandle  *model.GodCandle
	PRNG       *model.PRNGTrackingRecord
	Meta       *model.MetaKV
	ConnEvent  *model.ConnectionEvent
}

// Critical reports whether this job gets a short blocking grace period
// under queue pressure instead of an immediate drop: games and
// prng_tracking writes. If the grace period runs out it is still dropped,
// with a warning.
func (j Job) Critical() bool {
	return j.Kind == JobGame || j.Kind == JobPRNG
}

// Sink is the narrow interface the event router and upstream consumer
// depend on, so neither imports pgx directly.
type Sink interface {
	Enqueue(job Job) (accepted bool)
}
