package model

import (
	"encoding/json"
	"time"
)

// OutboundFrame is the downstream WebSocket envelope. Fields beyond
// Type/Schema/Ts are carried in Data so each frame kind's shape can vary
// without a dozen near-identical structs.
type OutboundFrame struct {
	Schema string         `json:"schema,omitempty"`
	Type   string         `json:"type"`
	Ts     time.Time      `json:"ts"`
	Data   map[string]any `json:"-"` // merged into the JSON object at encode time
}

// RawFrame is what the upstream consumer hands the router: one inbound
// event, unparsed, timestamped at receipt.
type RawFrame struct {
	EventName  string
	Payload    []byte
	ReceivedAt time.Time
}

// MarshalJSON flattens Data alongside the envelope's fixed fields.
func (f OutboundFrame) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(f.Data)+3)
	for k, v := range f.Data {
		out[k] = v
	}
	out["type"] = f.Type
	out["ts"] = f.Ts
	if f.Schema != "" {
		out["schema"] = f.Schema
	}
	return json.Marshal(out)
}
