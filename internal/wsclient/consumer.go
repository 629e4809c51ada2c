package wsclient

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/Dutchthenomad/rugsdata/internal/ids"
	"github.com/Dutchthenomad/rugsdata/internal/metrics"
	"github.com/Dutchthenomad/rugsdata/internal/model"
	"github.com/Dutchthenomad/rugsdata/internal/ringbuf"
)

// Config configures the Consumer's single upstream session.
type Config struct {
	URL                string
	FrontendVersion    string
	ReconnectBaseDelay time.Duration
	ReconnectMaxDelay  time.Duration
	MaxReconnects      int // 0 = unlimited
	PingTimeout        time.Duration
	WriteTimeout       time.Duration
	RawQueueCapacity   int
}

// ConnEventSink receives upstream session lifecycle records, mirroring
// storage.Sink's shape without importing the storage package.
type ConnEventSink interface {
	EnqueueConnectionEvent(ev model.ConnectionEvent) bool
}

// Consumer maintains exactly one read-only session against the upstream
// feed, decodes its wire framing, and exposes decoded frames on a bounded
// drop-oldest queue. Reconnects with jittered exponential backoff on any
// read or dial failure; a single session is all this service ever needs,
// so there is no connection pool to manage.
type Consumer struct {
	cfg    Config
	logger *slog.Logger

	queue    *ringbuf.Bounded[model.RawFrame]
	sink     ConnEventSink
	m        *metrics.Counters
	attempts int
}

// NewConsumer builds a Consumer. sink and m may be nil in tests.
func NewConsumer(cfg Config, sink ConnEventSink, m *metrics.Counters, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RawQueueCapacity <= 0 {
		cfg.RawQueueCapacity = 4096
	}
	return &Consumer{
		cfg:    cfg,
		logger: logger,
		queue:  ringbuf.NewBounded[model.RawFrame](cfg.RawQueueCapacity),
		sink:   sink,
		m:      m,
	}
}

// Frames returns the bounded decoded-frame queue the router task drains.
func (c *Consumer) Frames() *ringbuf.Bounded[model.RawFrame] { return c.queue }

// Run maintains the session until ctx is canceled, reconnecting with
// exponential backoff whose step starts at ReconnectBaseDelay and is
// capped at ReconnectMaxDelay, with full jitter (each wait is uniform in
// [0, step]) to avoid a reconnect thundering herd. It closes the frame
// queue on return, which ends the router's drain loop. Never sends
// application frames upstream — strictly read-only per §4.1.
func (c *Consumer) Run(ctx context.Context) {
	defer c.queue.Close()

	for {
		if ctx.Err() != nil {
			return
		}

		err := c.runOnce(ctx)
		if ctx.Err() != nil {
			return
		}

		c.attempts++
		if c.m != nil {
			c.m.SetSocketConnected(false)
		}
		c.recordConn(model.ConnDisconnected, errString(err), c.attempts)

		if c.cfg.MaxReconnects > 0 && c.attempts >= c.cfg.MaxReconnects {
			c.recordConn(model.ConnMaxReconnectsReached, "", c.attempts)
			c.logger.Error("upstream reconnect budget exhausted", "attempts", c.attempts)
			return
		}

		delay := backoffDelay(c.attempts, c.cfg.ReconnectBaseDelay, c.cfg.ReconnectMaxDelay)
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// backoffDelay computes exponential backoff with full jitter, capped at
// max. attempt is 1-based.
func backoffDelay(attempt int, base, max time.Duration) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	if max <= 0 {
		max = 5 * time.Second
	}
	d := base << (attempt - 1)
	if d <= 0 || d > max {
		d = max
	}
	// Full jitter: uniform in [0, d].
	return time.Duration(rand.Int64N(int64(d) + 1))
}

// runOnce dials, completes the Engine.IO handshake, and drains inbound
// frames until the connection drops or ctx is canceled.
func (c *Consumer) runOnce(ctx context.Context) error {
	url := appendQuery(c.cfg.URL, c.cfg.FrontendVersion)
	cl := newClient(ClientConfig{
		URL:          url,
		WriteTimeout: c.cfg.WriteTimeout,
		PingTimeout:  c.cfg.PingTimeout,
		BufferSize:   c.cfg.RawQueueCapacity,
	})
	if err := cl.connect(ctx); err != nil {
		return err
	}
	defer cl.close()

	c.attempts = 0
	if c.m != nil {
		c.m.SetSocketConnected(true)
	}
	c.recordConn(model.ConnConnected, "", 0)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-cl.errors:
			return err
		case msg, ok := <-cl.messages:
			if !ok {
				return nil
			}
			c.handleRaw(cl, msg)
		}
	}
}

func (c *Consumer) handleRaw(cl *client, msg TimestampedMessage) {
	frame, ok := decodeFrame(msg.Data)
	if !ok {
		return
	}

	switch frame.Engine {
	case eioOpen:
		if h, ok := parseHandshake(msg.Data); ok {
			if c.m != nil {
				c.m.SetSocketID(h.SID)
			}
			_ = cl.sendTransport(encodeConnect())
		}
	case eioPing:
		_ = cl.sendTransport(encodePong())
	case eioMessage:
		if frame.Socket == sioEvent && frame.EventName != "" {
			raw := model.RawFrame{
				EventName:  frame.EventName,
				Payload:    frame.Payload,
				ReceivedAt: msg.ReceivedAt,
			}
			if dropped := c.queue.SendDropOldest(raw); dropped && c.m != nil {
				c.m.IncUpstreamDropped()
			}
		}
	}
}

func (c *Consumer) recordConn(kind model.ConnectionEventType, reason string, attempt int) {
	if c.sink == nil {
		return
	}
	c.sink.EnqueueConnectionEvent(model.ConnectionEvent{
		ID:        ids.New(),
		EventType: kind,
		Reason:    reason,
		Attempt:   attempt,
		CreatedAt: time.Now().UTC(),
	})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
