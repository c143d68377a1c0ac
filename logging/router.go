package logging

import (
	"context"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

type Sink interface {
	Write(Event) error
	Close(context.Context) error
}

// Router fans published events out to the enabled sinks from a single
// dispatch goroutine. Publishing never blocks gameplay: when the queue is
// full the event is dropped and counted.
type Router struct {
	cfg      Config
	queue    chan Event
	sinks    map[string]Sink
	clock    Clock
	fallback *log.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	closed   atomic.Bool
	wg       sync.WaitGroup

	eventsTotal  atomic.Uint64
	droppedTotal atomic.Uint64
}

type RouterStats struct {
	EventsTotal  uint64
	DroppedTotal uint64
}

func NewRouter(clock Clock, cfg Config, sinks map[string]Sink) *Router {
	if clock == nil {
		clock = SystemClock{}
	}
	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = 256
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Router{
		cfg:      cfg,
		queue:    make(chan Event, bufferSize),
		sinks:    make(map[string]Sink, len(sinks)),
		clock:    clock,
		fallback: log.New(os.Stderr, "[logging] ", log.LstdFlags),
		ctx:      ctx,
		cancel:   cancel,
	}
	for name, sink := range sinks {
		if sink == nil || !cfg.HasSink(name) {
			continue
		}
		r.sinks[name] = sink
	}

	r.wg.Add(1)
	go r.dispatch()
	return r
}

func (r *Router) dispatch() {
	defer r.wg.Done()
	for {
		select {
		case <-r.ctx.Done():
			r.drain()
			return
		case event := <-r.queue:
			r.forward(event)
		}
	}
}

func (r *Router) drain() {
	for {
		select {
		case event := <-r.queue:
			r.forward(event)
		default:
			return
		}
	}
}

func (r *Router) forward(event Event) {
	for name, sink := range r.sinks {
		if err := sink.Write(event); err != nil {
			r.fallback.Printf("sink %s write failed: %v", name, err)
		}
	}
}

// Publish implements Publisher.
func (r *Router) Publish(_ context.Context, event Event) {
	if r == nil || r.closed.Load() {
		return
	}
	if event.Severity < r.cfg.MinimumSeverity {
		return
	}
	if event.Time.IsZero() {
		event.Time = r.clock.Now()
	}
	select {
	case r.queue <- event:
		r.eventsTotal.Add(1)
	default:
		r.droppedTotal.Add(1)
	}
}

// Stats snapshots the router counters.
func (r *Router) Stats() RouterStats {
	return RouterStats{
		EventsTotal:  r.eventsTotal.Load(),
		DroppedTotal: r.droppedTotal.Load(),
	}
}

// Close stops dispatch, drains the queue, and closes every sink. Safe to
// call more than once.
func (r *Router) Close(ctx context.Context) error {
	if r == nil || !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	r.cancel()
	r.wg.Wait()
	var firstErr error
	for name, sink := range r.sinks {
		if err := sink.Close(ctx); err != nil && firstErr == nil {
			r.fallback.Printf("sink %s close failed: %v", name, err)
			firstErr = err
		}
	}
	return firstErr
}
