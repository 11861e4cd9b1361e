package syncer

import (
	"context"
	"sync"

	"github.com/ziadkadry99/crewmatch/internal/logctx"
	"github.com/ziadkadry99/crewmatch/internal/metrics"
)

// Pool moves synchronization off the write path onto a fixed set of
// workers fed by a bounded queue. OnWrite never blocks: when the queue is
// full the event is dropped and the entry stays stale until the next write
// or rebuild.
type Pool struct {
	applier Applier
	workers int
	queue   chan queued

	wg        sync.WaitGroup
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

type queued struct {
	ctx context.Context
	ev  WriteEvent
}

// NewPool creates a pool and starts its workers.
func NewPool(applier Applier, workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	p := &Pool{
		applier: applier,
		workers: workers,
		queue:   make(chan queued, queueSize),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

func (p *Pool) run() {
	defer p.wg.Done()
	for item := range p.queue {
		metrics.SyncQueueDepth.Dec()
		Swallow(item.ctx, p.applier, item.ev)
	}
}

// OnWrite enqueues ev. The request context is detached so that a finished
// HTTP request does not cancel its pending sync.
func (p *Pool) OnWrite(ctx context.Context, ev WriteEvent) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	log := logctx.From(ctx)
	if p.closed {
		log.WarnContext(ctx, "sync pool closed; dropping event", "id", ev.EntryID())
		metrics.SyncTotal.WithLabelValues(string(ev.Entity), string(ev.Action), metrics.OutcomeDropped).Inc()
		return
	}

	select {
	case p.queue <- queued{ctx: logctx.With(context.WithoutCancel(ctx), log), ev: ev}:
		metrics.SyncQueueDepth.Inc()
	default:
		log.WarnContext(ctx, "sync queue full; dropping event", "id", ev.EntryID(), "queue_size", cap(p.queue))
		metrics.SyncTotal.WithLabelValues(string(ev.Entity), string(ev.Action), metrics.OutcomeDropped).Inc()
	}
}

// Close stops accepting events and waits for queued ones to finish.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.queue)
		p.mu.Unlock()
	})
	p.wg.Wait()
}
