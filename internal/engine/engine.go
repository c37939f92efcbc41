// Package engine queues submitted entries per service and drains them to
// their destinations on the write and sync cycles.
//
// Submit never blocks on I/O: it appends to the service's queue under a
// per-queue lock. WriteCycle routes every queued entry against the
// current registry and hands one batch per destination to that
// destination's outlet, which performs the write on its own goroutine.
// SyncCycle asks every outlet to fsync after the writes it already holds.
// Cycles and registry swaps are serialized by a single mutex.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/logd/internal/events"
	"github.com/smazurov/logd/internal/metrics"
	"github.com/smazurov/logd/internal/routing"
	"github.com/smazurov/logd/internal/sink"
)

// Engine is the queue and flush engine.
type Engine struct {
	logger *slog.Logger
	clock  Clock
	bus    *events.Bus

	regMu    sync.RWMutex
	registry *routing.Registry

	queuesMu sync.RWMutex
	queues   map[string]*queue

	// cycleMu keeps write cycles, sync cycles and registry swaps apart.
	cycleMu   sync.Mutex
	outletsMu sync.Mutex
	outlets   map[sink.Sink]*outlet
}

type queue struct {
	mu      sync.Mutex
	entries []sink.Entry
	dead    bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock used to stamp entries.
func WithClock(clock Clock) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithEventBus publishes write errors to bus.
func WithEventBus(bus *events.Bus) Option {
	return func(e *Engine) {
		e.bus = bus
	}
}

// New creates an engine routing against registry.
func New(registry *routing.Registry, opts ...Option) *Engine {
	e := &Engine{
		logger:   slog.Default(),
		clock:    SystemClock{},
		registry: registry,
		queues:   make(map[string]*queue),
		outlets:  make(map[sink.Sink]*outlet),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Submit queues an entry for the next write cycle. It never blocks on I/O
// and never fails.
func (e *Engine) Submit(service, severity, message string) {
	entry := sink.Entry{
		Service:  service,
		Severity: severity,
		Message:  message,
		Time:     e.clock.Now(),
	}

	for {
		q := e.queueFor(service)
		q.mu.Lock()
		if q.dead {
			// Pruned between lookup and lock; fetch the replacement.
			q.mu.Unlock()
			continue
		}
		q.entries = append(q.entries, entry)
		q.mu.Unlock()
		break
	}

	metrics.EntrySubmitted(route(e.Registry(), service).Service)
}

func (e *Engine) queueFor(service string) *queue {
	e.queuesMu.RLock()
	q, ok := e.queues[service]
	e.queuesMu.RUnlock()
	if ok {
		return q
	}

	e.queuesMu.Lock()
	defer e.queuesMu.Unlock()
	if q, ok = e.queues[service]; !ok {
		q = &queue{}
		e.queues[service] = q
	}
	return q
}

// Pending returns the number of entries queued and not yet dispatched.
func (e *Engine) Pending() int {
	e.queuesMu.RLock()
	defer e.queuesMu.RUnlock()
	n := 0
	for _, q := range e.queues {
		q.mu.Lock()
		n += len(q.entries)
		q.mu.Unlock()
	}
	return n
}

// Backlog returns the number of dispatched entries not yet written,
// typically waiting for a retry after a write error.
func (e *Engine) Backlog() int {
	e.outletsMu.Lock()
	defer e.outletsMu.Unlock()
	n := 0
	for _, o := range e.outlets {
		n += o.backlog()
	}
	return n
}

// Busy returns the destinations whose outlet is still inside a write or
// sync. After Wait gave up, these are the destinations that hung.
func (e *Engine) Busy() []sink.Sink {
	e.outletsMu.Lock()
	defer e.outletsMu.Unlock()
	var out []sink.Sink
	for dest, o := range e.outlets {
		if o.active() {
			out = append(out, dest)
		}
	}
	return out
}

// Registry returns the active routing table.
func (e *Engine) Registry() *routing.Registry {
	e.regMu.RLock()
	defer e.regMu.RUnlock()
	return e.registry
}

// SwapRegistry installs next and returns the previous registry. It waits
// for a running cycle to finish. Outlets of destinations next no longer
// uses are retired; their unwritten entries are dropped and counted.
func (e *Engine) SwapRegistry(next *routing.Registry) *routing.Registry {
	e.cycleMu.Lock()
	defer e.cycleMu.Unlock()

	e.regMu.Lock()
	prev := e.registry
	e.registry = next
	e.regMu.Unlock()

	inUse := make(map[sink.Sink]bool)
	for _, dest := range next.Destinations() {
		inUse[dest] = true
	}

	e.outletsMu.Lock()
	defer e.outletsMu.Unlock()
	for dest, o := range e.outlets {
		if inUse[dest] {
			continue
		}
		if n := o.retire(); n > 0 {
			metrics.EntriesDiscarded(dest.Name(), n)
			e.logger.Error("Destination retired with unwritten entries",
				"destination", dest.Name(), "entries", n)
		}
		delete(e.outlets, dest)
	}
	return prev
}

// route picks the route for service: its own route when configured,
// otherwise the default route.
func route(reg *routing.Registry, service string) *routing.Route {
	if r, ok := reg.RouteFor(service); ok {
		return r
	}
	return reg.Default()
}

// WriteCycle drains every service queue and dispatches the entries whose
// severity is enabled for their route. It returns once every batch has
// been handed to its destination's outlet; the writes themselves run
// concurrently per destination.
func (e *Engine) WriteCycle() {
	start := time.Now()
	e.cycleMu.Lock()
	defer e.cycleMu.Unlock()

	reg := e.Registry()

	e.queuesMu.RLock()
	queues := make(map[string]*queue, len(e.queues))
	for service, q := range e.queues {
		queues[service] = q
	}
	e.queuesMu.RUnlock()

	batches := make(map[sink.Sink][]sink.Entry)
	var order []sink.Sink
	var idle []string
	for service, q := range queues {
		q.mu.Lock()
		entries := q.entries
		q.entries = nil
		q.mu.Unlock()
		if len(entries) == 0 {
			idle = append(idle, service)
			continue
		}

		r := route(reg, service)
		filtered := 0
		for _, entry := range entries {
			if !r.Enabled(entry.Severity) {
				filtered++
				continue
			}
			if _, seen := batches[r.Destination]; !seen {
				order = append(order, r.Destination)
			}
			batches[r.Destination] = append(batches[r.Destination], entry)
		}
		metrics.EntriesFiltered(r.Service, filtered)
	}
	e.pruneQueues(idle)

	e.outletsMu.Lock()
	for _, dest := range order {
		e.outletLocked(dest).enqueue(batches[dest])
	}
	for dest, o := range e.outlets {
		if _, dispatched := batches[dest]; !dispatched {
			o.kick()
		}
	}
	e.outletsMu.Unlock()

	metrics.ObserveCycle(OpWrite, time.Since(start))
}

// pruneQueues drops the queues of services that submitted nothing for a
// whole cycle, so arbitrary service names do not accumulate.
func (e *Engine) pruneQueues(services []string) {
	if len(services) == 0 {
		return
	}
	e.queuesMu.Lock()
	defer e.queuesMu.Unlock()
	for _, service := range services {
		q, ok := e.queues[service]
		if !ok {
			continue
		}
		q.mu.Lock()
		if len(q.entries) == 0 {
			q.dead = true
			delete(e.queues, service)
		}
		q.mu.Unlock()
	}
}

// queueCount returns the number of live service queues.
func (e *Engine) queueCount() int {
	e.queuesMu.RLock()
	defer e.queuesMu.RUnlock()
	return len(e.queues)
}

// SyncCycle asks every destination of the active registry to sync after
// the writes already dispatched to it.
func (e *Engine) SyncCycle() {
	start := time.Now()
	e.cycleMu.Lock()
	defer e.cycleMu.Unlock()

	e.outletsMu.Lock()
	for _, dest := range e.Registry().Destinations() {
		e.outletLocked(dest).requestSync()
	}
	e.outletsMu.Unlock()

	metrics.ObserveCycle(OpSync, time.Since(start))
}

func (e *Engine) outletLocked(dest sink.Sink) *outlet {
	o, ok := e.outlets[dest]
	if !ok {
		o = newOutlet(dest, e.reportError)
		e.outlets[dest] = o
	}
	return o
}

// Wait blocks until every outlet finished its queued writes and syncs,
// or ctx is done. It returns an error naming destinations that still hold
// unwritten entries.
func (e *Engine) Wait(ctx context.Context) error {
	e.outletsMu.Lock()
	outlets := make([]*outlet, 0, len(e.outlets))
	for _, o := range e.outlets {
		outlets = append(outlets, o)
	}
	e.outletsMu.Unlock()

	var errs []error
	for _, o := range outlets {
		if !o.wait(ctx) {
			errs = append(errs, fmt.Errorf("%s: %d entries not written", o.dest.Name(), o.backlog()))
		}
	}
	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Flush runs a write cycle and a sync cycle and waits for both to land.
func (e *Engine) Flush(ctx context.Context) error {
	e.WriteCycle()
	e.SyncCycle()
	return e.Wait(ctx)
}

func (e *Engine) reportError(err *WriteError) {
	e.logger.Error("Destination I/O failed",
		"op", err.Op, "destination", err.Destination, "pending", err.Pending, "error", err.Cause)
	e.bus.Publish(events.WriteErrorEvent{
		Destination: err.Destination,
		Op:          err.Op,
		Error:       err.Cause.Error(),
		Pending:     err.Pending,
		Timestamp:   time.Now().Format(time.RFC3339),
	})
}
