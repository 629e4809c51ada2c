// Package metrics implements the process-wide atomic counter struct
// exposed by reference to the REST surface's /api/metrics endpoint. The
// counters never reset during a process's lifetime; restart the daemon
// to zero them.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Counters is the single process-wide metrics struct. Scalar fields are
// accessed via atomic operations and the per-event and error-kind maps
// are guarded by mu; no lock is held across I/O.
type Counters struct {
	startedAt time.Time

	socketConnected      atomic.Bool
	socketID             atomic.Value // string
	lastEventAtUnixMilli  atomic.Int64

	totalMessagesProcessed atomic.Int64
	totalTrades            atomic.Int64
	totalGamesTracked      atomic.Int64

	wsSubscribers      atomic.Int64
	wsSlowClientDrops  atomic.Int64
	upstreamDropped    atomic.Int64

	dbPingMillis atomic.Int64

	mu            sync.Mutex
	errorCounters map[string]int64
	perEvent      map[string]*EventCounter

	schemaValidationTotal atomic.Int64

	rateWindow *rateCounter
}

// EventCounter tracks per-schema-key validation outcomes.
type EventCounter struct {
	OK   atomic.Int64
	Fail atomic.Int64
}

// New creates a fresh Counters, started now.
func New() *Counters {
	c := &Counters{
		startedAt:     time.Now(),
		errorCounters: make(map[string]int64),
		perEvent:      make(map[string]*EventCounter),
		rateWindow:    newRateCounter(5 * time.Minute),
	}
	c.socketID.Store("")
	return c
}

// UptimeSeconds returns seconds since process start.
func (c *Counters) UptimeSeconds() float64 {
	return time.Since(c.startedAt).Seconds()
}

func (c *Counters) SetSocketConnected(connected bool) { c.socketConnected.Store(connected) }
func (c *Counters) SocketConnected() bool             { return c.socketConnected.Load() }

func (c *Counters) SetSocketID(id string) { c.socketID.Store(id) }
func (c *Counters) SocketID() string {
	if v, ok := c.socketID.Load().(string); ok {
		return v
	}
	return ""
}

func (c *Counters) MarkEventReceived() {
	now := time.Now()
	c.lastEventAtUnixMilli.Store(now.UnixMilli())
	c.totalMessagesProcessed.Add(1)
	c.rateWindow.mark(now)
}

func (c *Counters) LastEventAt() time.Time {
	ms := c.lastEventAtUnixMilli.Load()
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func (c *Counters) TotalMessagesProcessed() int64 { return c.totalMessagesProcessed.Load() }
func (c *Counters) IncTotalTrades()               { c.totalTrades.Add(1) }
func (c *Counters) TotalTrades() int64             { return c.totalTrades.Load() }
func (c *Counters) IncTotalGamesTracked()         { c.totalGamesTracked.Add(1) }
func (c *Counters) TotalGamesTracked() int64       { return c.totalGamesTracked.Load() }

func (c *Counters) SetWSSubscribers(n int64)     { c.wsSubscribers.Store(n) }
func (c *Counters) WSSubscribers() int64         { return c.wsSubscribers.Load() }
func (c *Counters) IncWSSlowClientDrops()        { c.wsSlowClientDrops.Add(1) }
func (c *Counters) WSSlowClientDrops() int64     { return c.wsSlowClientDrops.Load() }
func (c *Counters) IncUpstreamDropped()          { c.upstreamDropped.Add(1) }
func (c *Counters) UpstreamDropped() int64       { return c.upstreamDropped.Load() }

func (c *Counters) SetDBPing(d time.Duration) { c.dbPingMillis.Store(d.Milliseconds()) }
func (c *Counters) DBPingMillis() int64       { return c.dbPingMillis.Load() }

// MessagesPerSecond1m and MessagesPerSecond5m report rolling rates.
func (c *Counters) MessagesPerSecond1m() float64 { return c.rateWindow.rate(time.Minute) }
func (c *Counters) MessagesPerSecond5m() float64 { return c.rateWindow.rate(5 * time.Minute) }

// IncError bumps a named error-kind counter.
func (c *Counters) IncError(kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errorCounters[kind]++
}

// ErrorCounters returns a snapshot copy.
func (c *Counters) ErrorCounters() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int64, len(c.errorCounters))
	for k, v := range c.errorCounters {
		out[k] = v
	}
	return out
}

// RecordValidation increments the per-event and global validation counters.
func (c *Counters) RecordValidation(schemaKey string, ok bool) {
	c.mu.Lock()
	ec, exists := c.perEvent[schemaKey]
	if !exists {
		ec = &EventCounter{}
		c.perEvent[schemaKey] = ec
	}
	c.mu.Unlock()

	if ok {
		ec.OK.Add(1)
	} else {
		ec.Fail.Add(1)
	}
	c.schemaValidationTotal.Add(1)
}

// SchemaValidationSnapshot is the schemaValidation metrics shape returned
// by the metrics endpoint.
type SchemaValidationSnapshot struct {
	Total    int64                    `json:"total"`
	PerEvent map[string]PerEventCount `json:"perEvent"`
}

// PerEventCount is one schema key's ok/fail tally.
type PerEventCount struct {
	OK   int64 `json:"ok"`
	Fail int64 `json:"fail"`
}

// SchemaValidation returns a consistent snapshot of validation counters.
func (c *Counters) SchemaValidation() SchemaValidationSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := SchemaValidationSnapshot{
		Total:    c.schemaValidationTotal.Load(),
		PerEvent: make(map[string]PerEventCount, len(c.perEvent)),
	}
	for k, ec := range c.perEvent {
		snap.PerEvent[k] = PerEventCount{OK: ec.OK.Load(), Fail: ec.Fail.Load()}
	}
	return snap
}

// rateCounter is a simple sliding-window event-rate tracker.
type rateCounter struct {
	mu      sync.Mutex
	window  time.Duration
	events  []time.Time
}

func newRateCounter(retain time.Duration) *rateCounter {
	return &rateCounter{window: retain}
}

func (r *rateCounter) mark(at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, at)
	cutoff := at.Add(-r.window)
	i := 0
	for i < len(r.events) && r.events[i].Before(cutoff) {
		i++
	}
	r.events = r.events[i:]
}

func (r *rateCounter) rate(window time.Duration) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return 0
	}
	cutoff := time.Now().Add(-window)
	count := 0
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Before(cutoff) {
			break
		}
		count++
	}
	return float64(count) / window.Seconds()
}
