package goBarber

import (
	"context"
	"sync"
	"sync/atomic"
)

// auditDispatcher hands events to the sink on one background goroutine so
// that store mutations never wait on audit I/O.
//
// Close drains the queue and stops the goroutine. A closed store still
// accepts SignOut, so events arriving after Close go to the sink inline
// instead of being lost.
type auditDispatcher struct {
	sink       AuditSink
	dropIfFull bool

	mu      sync.RWMutex
	closed  bool
	queue   chan AuditEvent
	stopped chan struct{}

	dropped atomic.Uint64
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &auditDispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		queue:      make(chan AuditEvent, cfg.BufferSize),
		stopped:    make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *auditDispatcher) run() {
	defer close(d.stopped)
	for event := range d.queue {
		d.sink.Emit(context.Background(), event)
	}
}

// Emit enqueues event. With DropIfFull a full queue drops and counts the
// event; otherwise Emit waits for space or ctx, and counts a drop when ctx
// ends first.
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.sink.Emit(ctx, event)
		return
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.dropped.Add(1)
	}
}

// Close delivers everything queued and returns once the sink has seen it.
// It is safe to call more than once.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	<-d.stopped
}

func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
