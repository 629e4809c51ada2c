package wsclient

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrNotConnected is returned by Send when no live connection exists.
var ErrNotConnected = errors.New("wsclient: not connected")

// ClientConfig configures a single dial attempt.
type ClientConfig struct {
	URL          string
	WriteTimeout time.Duration
	PingTimeout  time.Duration
	BufferSize   int
}

// TimestampedMessage is one raw inbound frame stamped at receipt, before
// Engine.IO/Socket.IO decoding.
type TimestampedMessage struct {
	Data       []byte
	ReceivedAt time.Time
}

// client is a single dial of the upstream feed. It never sends
// application frames — only the Engine.IO/Socket.IO transport handshake
// (connect ack, pong replies) required to keep the read-only session
// alive, per §4.1's strictly-read-only contract.
type client struct {
	cfg ClientConfig

	conn *websocket.Conn

	messages chan TimestampedMessage
	errors   chan error
	done     chan struct{}

	writeMu sync.Mutex

	mu         sync.RWMutex
	connected  bool
	lastPingAt time.Time
	closed     bool
}

func newClient(cfg ClientConfig) *client {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1000
	}
	return &client{
		cfg:      cfg,
		messages: make(chan TimestampedMessage, cfg.BufferSize),
		errors:   make(chan error, 1),
		done:     make(chan struct{}),
	}
}

// connect dials the upstream and starts the read loop. It does not
// perform the Engine.IO/Socket.IO handshake itself — the caller drives
// that off the decoded frames (Consumer.handleRaw answers the open frame
// with the Socket.IO connect ack).
func (c *client) connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.New("wsclient: client already closed")
	}
	c.mu.Unlock()

	header := http.Header{}
	header.Set("Accept", "*/*")

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.lastPingAt = time.Now()
	c.mu.Unlock()

	conn.SetPingHandler(func(data string) error {
		c.mu.Lock()
		c.lastPingAt = time.Now()
		c.mu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})
	conn.SetPongHandler(func(string) error {
		c.mu.Lock()
		c.lastPingAt = time.Now()
		c.mu.Unlock()
		return nil
	})

	go c.readLoop()
	return nil
}

// close tears down the connection. Safe to call more than once.
func (c *client) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.connected = false
	c.mu.Unlock()

	close(c.done)

	if c.conn != nil {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		return c.conn.Close()
	}
	return nil
}

// sendTransport writes one raw transport-level frame (Engine.IO connect
// ack, pong). It is never used to send application data — the upstream
// session is read-only.
func (c *client) sendTransport(data []byte) error {
	c.mu.RLock()
	if !c.connected {
		c.mu.RUnlock()
		return ErrNotConnected
	}
	c.mu.RUnlock()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *client) isConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

func (c *client) readLoop() {
	defer func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
	}()

	for {
		select {
		case <-c.done:
			return
		default:
		}

		_, data, err := c.conn.ReadMessage()
		receivedAt := time.Now()
		if err != nil {
			select {
			case <-c.done:
			default:
				select {
				case c.errors <- err:
				default:
				}
			}
			return
		}

		msg := TimestampedMessage{Data: data, ReceivedAt: receivedAt}
		select {
		case c.messages <- msg:
		case <-c.done:
			return
		default:
			// Buffer full: the outer Consumer's own bounded queue is the
			// documented drop-oldest point (§4.1); this inner channel
			// should never fill under normal decoding throughput.
		}
	}
}
