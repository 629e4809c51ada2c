package wsclient

import (
	"encoding/json"
	"strings"
)

// engineIOPacket enumerates the Engine.IO transport-level packet types
// that prefix every text frame on the wire.
type engineIOPacket byte

const (
	eioOpen    engineIOPacket = '0'
	eioClose   engineIOPacket = '1'
	eioPing    engineIOPacket = '2'
	eioPong    engineIOPacket = '3'
	eioMessage engineIOPacket = '4'
)

// socketIOPacket enumerates the Socket.IO packet types carried inside an
// Engine.IO "message" (type 4) frame.
type socketIOPacket byte

const (
	sioConnect    socketIOPacket = '0'
	sioDisconnect socketIOPacket = '1'
	sioEvent      socketIOPacket = '2'
	sioAck        socketIOPacket = '3'
	sioError      socketIOPacket = '4'
)

// decodedFrame is one parsed inbound wire frame.
type decodedFrame struct {
	Engine engineIOPacket
	Socket socketIOPacket // only meaningful when Engine == eioMessage
	// EventName and Payload are populated for sioEvent frames, e.g. the
	// wire text `42["gameStateUpdate",{...}]` decodes to
	// EventName="gameStateUpdate", Payload=`{...}`.
	EventName string
	Payload   []byte
}

// decodeFrame parses one raw text frame per the Engine.IO/Socket.IO wire
// format: a single-digit Engine.IO type, optionally followed (for
// "message" frames) by a single-digit Socket.IO type, optionally followed
// by a namespace and/or JSON payload.
func decodeFrame(raw []byte) (decodedFrame, bool) {
	if len(raw) == 0 {
		return decodedFrame{}, false
	}
	f := decodedFrame{Engine: engineIOPacket(raw[0])}
	if f.Engine != eioMessage {
		return f, true
	}
	if len(raw) < 2 {
		return f, true
	}
	f.Socket = socketIOPacket(raw[1])
	if f.Socket != sioEvent {
		return f, true
	}

	body := raw[2:]
	// An optional numeric ack id may precede the JSON payload; skip it.
	i := 0
	for i < len(body) && body[i] >= '0' && body[i] <= '9' {
		i++
	}
	body = body[i:]

	var arr []json.RawMessage
	if err := json.Unmarshal(body, &arr); err != nil || len(arr) == 0 {
		return f, true
	}
	var name string
	if err := json.Unmarshal(arr[0], &name); err != nil {
		return f, true
	}
	f.EventName = name
	if len(arr) > 1 {
		f.Payload = []byte(arr[1])
	} else {
		f.Payload = []byte("{}")
	}
	return f, true
}

// encodeConnect builds the Socket.IO "connect to default namespace" frame
// sent once the Engine.IO handshake completes.
func encodeConnect() []byte {
	return []byte{byte(eioMessage), byte(sioConnect)}
}

// encodePong builds an Engine.IO pong reply to a received ping.
func encodePong() []byte {
	return []byte{byte(eioPong)}
}

// handshake is the JSON body of the initial Engine.IO "open" frame
// (`0{"sid":"...","pingInterval":25000,"pingTimeout":20000,...}`).
type handshake struct {
	SID          string `json:"sid"`
	PingInterval int    `json:"pingInterval"`
	PingTimeout  int    `json:"pingTimeout"`
}

func parseHandshake(raw []byte) (handshake, bool) {
	if len(raw) == 0 || engineIOPacket(raw[0]) != eioOpen {
		return handshake{}, false
	}
	var h handshake
	if err := json.Unmarshal(raw[1:], &h); err != nil {
		return handshake{}, false
	}
	return h, true
}

// appendQuery appends frontend-version (and any other fixed query params
// the upstream requires) to a base WebSocket URL that may already carry a
// query string.
func appendQuery(base, frontendVersion string) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "EIO=4&transport=websocket&frontend-version=" + frontendVersion
}
