package broadcast

import (
	"log/slog"
	"sync"
	"time"

	"github.com/Dutchthenomad/rugsdata/internal/ids"
	"github.com/Dutchthenomad/rugsdata/internal/metrics"
	"github.com/Dutchthenomad/rugsdata/internal/model"
	"github.com/Dutchthenomad/rugsdata/internal/ringbuf"
)

// Subscriber is one downstream WebSocket connection's bounded outbound
// queue. The hub only ever writes to it; the transport-level writer
// goroutine (internal/api) drains it and owns the actual socket write.
type Subscriber struct {
	id     string
	buf    *ringbuf.Bounded[model.OutboundFrame]
	closed chan struct{}
	once   sync.Once
}

// ID returns the subscriber's opaque identifier, used only for logging.
func (s *Subscriber) ID() string { return s.id }

// Outbound returns the frame queue the transport writer goroutine drains.
func (s *Subscriber) Outbound() *ringbuf.Bounded[model.OutboundFrame] { return s.buf }

// Closed reports the channel signaled once the hub evicts this
// subscriber (slow-consumer or shutdown), so the writer goroutine can
// stop draining and close the underlying connection.
func (s *Subscriber) Closed() <-chan struct{} { return s.closed }

func (s *Subscriber) close() {
	s.once.Do(func() {
		close(s.closed)
		s.buf.Close()
	})
}

// Hub is the fan-out publisher: it enqueues every outbound frame to every
// live subscriber's buffer, evicting any subscriber whose buffer is full
// (§4.7's slow-consumer contract) instead of blocking on it.
type Hub struct {
	bufferSize int
	heartbeat  time.Duration

	mu   sync.RWMutex
	subs map[string]*Subscriber

	metrics *metrics.Counters
	logger  *slog.Logger
}

// New builds a Hub. bufferSize configures each subscriber's outbound
// queue depth; heartbeat is the interval between heartbeat frames.
func New(bufferSize int, heartbeat time.Duration, m *metrics.Counters, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	if bufferSize < 1 {
		bufferSize = 1
	}
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	return &Hub{
		bufferSize: bufferSize,
		heartbeat:  heartbeat,
		subs:       make(map[string]*Subscriber),
		metrics:    m,
		logger:     logger,
	}
}

// Subscribe registers a new subscriber and immediately enqueues its
// "hello" frame, per §4.7.
func (h *Hub) Subscribe() *Subscriber {
	s := &Subscriber{
		id:     ids.New(),
		buf:    ringbuf.NewBounded[model.OutboundFrame](h.bufferSize),
		closed: make(chan struct{}),
	}

	h.mu.Lock()
	h.subs[s.id] = s
	n := len(h.subs)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.SetWSSubscribers(int64(n))
	}

	s.buf.SendRejectFull(model.OutboundFrame{Type: "hello", Ts: time.Now().UTC()})
	return s
}

// Unsubscribe removes a subscriber, e.g. once its connection closes on
// the client side. Safe to call more than once.
func (h *Hub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	_, ok := h.subs[s.id]
	delete(h.subs, s.id)
	n := len(h.subs)
	h.mu.Unlock()

	if !ok {
		return
	}
	s.close()
	if h.metrics != nil {
		h.metrics.SetWSSubscribers(int64(n))
	}
}

// Publish implements events.Publisher: it enqueues frame to every live
// subscriber in the order Publish is called, matching the router's
// emission order per subscriber (§8). A subscriber whose buffer rejects
// the send is treated as a slow consumer and evicted.
func (h *Hub) Publish(frame model.OutboundFrame) {
	h.mu.RLock()
	targets := make([]*Subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	for _, s := range targets {
		if !s.buf.SendRejectFull(frame) {
			h.evictSlow(s)
		}
	}
}

func (h *Hub) evictSlow(s *Subscriber) {
	h.logger.Warn("evicting slow websocket subscriber", "subscriber_id", s.id)
	h.Unsubscribe(s)
	if h.metrics != nil {
		h.metrics.IncWSSlowClientDrops()
	}
}

// RunHeartbeat publishes a heartbeat frame to every subscriber on a fixed
// interval until stop is closed.
func (h *Hub) RunHeartbeat(stop <-chan struct{}) {
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			h.Publish(model.OutboundFrame{Type: "heartbeat", Ts: time.Now().UTC()})
		}
	}
}

// Shutdown closes every subscriber, allowing the transport layer's
// writer goroutines to drain and exit.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[string]*Subscriber)
	h.mu.Unlock()

	for _, s := range subs {
		s.close()
	}
	if h.metrics != nil {
		h.metrics.SetWSSubscribers(0)
	}
}

// Count returns the current subscriber count.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
