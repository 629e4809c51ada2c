package events

import "github.com/Dutchthenomad/rugsdata/internal/model"

// schemaKeyFor is the fixed inbound event name -> schema key table. An
// event with no entry (rugPool, leaderboard, and anything unforeseen) is
// archived but never validated or broadcast.
var schemaKeyFor = map[string]string{
	"gameStateUpdate":         "gameStateUpdate",
	"standard/newTrade":       "newTrade",
	"standard/sideBetPlaced":  "currentSideBet",
	"sideBet":                 "newSideBet",
	"standard/sideBetResult":  "newSideBet",
	"gameStatePlayerUpdate":   "gameStatePlayerUpdate",
	"playerUpdate":            "playerUpdate",
}

// sideBetEventLabel derives the outbound disambiguator from the schema
// key a side-bet event resolved to, since the inbound event names
// ("standard/sideBetPlaced", "sideBet", "standard/sideBetResult") don't
// themselves spell "placed"/"result".
func sideBetEventLabel(schemaKey string) string {
	if schemaKey == "currentSideBet" {
		return "placed"
	}
	return "result"
}

// Publisher is the narrow interface the router depends on to fan out a
// normalized frame, so it never imports the broadcaster package directly.
type Publisher interface {
	Publish(model.OutboundFrame)
}
