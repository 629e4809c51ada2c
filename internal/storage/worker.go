package storage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Dutchthenomad/rugsdata/internal/metrics"
	"github.com/Dutchthenomad/rugsdata/internal/model"
)

// criticalEnqueueTimeout bounds how long Enqueue blocks the router for a
// games/prng_tracking write before giving up. On timeout the job is
// dropped with a warning and is not retried.
const criticalEnqueueTimeout = 200 * time.Millisecond

// WorkerPool is the bounded persistence worker pool: it keeps
// store latency off the router's hot path by dispatching writes as work
// items, batchable in principle though each job here maps to one upsert.
type WorkerPool struct {
	jobs    chan Job
	store   *Store
	metrics *metrics.Counters
	logger  *slog.Logger
}

// NewWorkerPool creates a pool with the given bounded queue capacity.
func NewWorkerPool(store *Store, queueCapacity int, m *metrics.Counters, logger *slog.Logger) *WorkerPool {
	if logger == nil {
		logger = slog.Default()
	}
	if queueCapacity < 1 {
		queueCapacity = 1
	}
	return &WorkerPool{
		jobs:    make(chan Job, queueCapacity),
		store:   store,
		metrics: m,
		logger:  logger,
	}
}

// EnqueueConnectionEvent implements wsclient.ConnEventSink so the upstream
// consumer can archive session lifecycle transitions without importing
// this package's Job/Sink vocabulary.
func (p *WorkerPool) EnqueueConnectionEvent(ev model.ConnectionEvent) bool {
	return p.Enqueue(Job{Kind: JobConnectionEvent, ConnEvent: &ev})
}

// Enqueue implements Sink. Critical jobs (games, prng_tracking) get a
// short blocking grace period before being dropped; everything else is a
// non-blocking send that drops immediately under pressure, favoring the
// router's throughput over archival completeness.
func (p *WorkerPool) Enqueue(job Job) bool {
	if job.Critical() {
		select {
		case p.jobs <- job:
			return true
		case <-time.After(criticalEnqueueTimeout):
			p.logger.Warn("critical persistence job dropped after grace period", "kind", job.Kind)
			return false
		}
	}

	select {
	case p.jobs <- job:
		return true
	default:
		if job.Kind == JobEvent {
			p.logger.Debug("dropping events-archive write, queue full")
		}
		return false
	}
}

// Run spawns n worker goroutines draining the queue until ctx is canceled;
// each then flushes what is still queued under a 10s deadline of its own.
func (p *WorkerPool) Run(ctx context.Context, n int) {
	if n < 1 {
		n = 1
	}
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			p.drain(ctx)
		}()
	}
	wg.Wait()
}

func (p *WorkerPool) drain(ctx context.Context) {
	for {
		select {
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			p.apply(ctx, job)
		case <-ctx.Done():
			// Drain whatever remains without blocking further. ctx is
			// already canceled, so writes run under a fresh 10s deadline.
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()
			for {
				select {
				case job, ok := <-p.jobs:
					if !ok || flushCtx.Err() != nil {
						return
					}
					p.apply(flushCtx, job)
				default:
					return
				}
			}
		}
	}
}

func (p *WorkerPool) apply(ctx context.Context, job Job) {
	var err error
	switch job.Kind {
	case JobEvent:
		err = p.store.InsertEvent(ctx, *job.Event)
	case JobSnapshot:
		err = p.store.UpsertSnapshot(ctx, *job.Snapshot)
	case JobTrade:
		var inserted bool
		inserted, err = p.store.UpsertTrade(ctx, *job.Trade)
		if err == nil && inserted && p.metrics != nil {
			p.metrics.IncTotalTrades()
		}
	case JobSideBet:
		err = p.store.InsertSideBet(ctx, *job.SideBet)
	case JobGame:
		err = p.store.UpsertGame(ctx, *job.Game)
	case JobTick:
		err = p.store.UpsertTick(ctx, *job.Tick)
	case JobIndex:
		err = p.store.UpsertIndex(ctx, *job.Index)
	case JobGodCandle:
		err = p.store.InsertGodCandle(ctx, *job.GodCandle)
	case JobPRNG:
		err = p.store.UpsertPRNGTracking(ctx, *job.PRNG)
	case JobMeta:
		err = p.store.SetMeta(ctx, *job.Meta)
	case JobConnectionEvent:
		err = p.store.InsertConnectionEvent(ctx, *job.ConnEvent)
	}

	if err != nil {
		if p.metrics != nil {
			p.metrics.IncError("persistence")
		}
		p.logger.Error("persistence write failed", "kind", job.Kind, "error", err)
	}
}
