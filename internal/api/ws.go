package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Dutchthenomad/rugsdata/internal/broadcast"
	"github.com/Dutchthenomad/rugsdata/internal/model"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

// wsStream upgrades GET /api/ws/stream to a WebSocket and subscribes the
// connection to the broadcaster. One writer goroutine drains the
// subscriber's outbound queue; the read loop only exists to detect the
// client going away (this route accepts no inbound application frames).
func (h *handler) wsStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.deps.Logger.Warn("websocket upgrade failed", "err", err)
		return
	}

	sub := h.deps.Hub.Subscribe()
	defer h.deps.Hub.Unsubscribe(sub)

	done := make(chan struct{})
	go h.wsWriteLoop(conn, sub, done)
	h.wsReadLoop(conn, sub, done)
}

func (h *handler) wsWriteLoop(conn *websocket.Conn, sub *broadcast.Subscriber, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	defer conn.Close()

	frames := make(chan model.OutboundFrame)
	go func() {
		defer close(frames)
		for {
			frame, ok := sub.Outbound().Receive()
			if !ok {
				return
			}
			select {
			case frames <- frame:
			case <-done:
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-sub.Closed():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "slow consumer"),
				time.Now().Add(wsWriteWait))
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case frame, ok := <-frames:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		}
	}
}

func (h *handler) wsReadLoop(conn *websocket.Conn, sub *broadcast.Subscriber, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
