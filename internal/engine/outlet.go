package engine

import (
	"context"
	"sync"

	"github.com/smazurov/logd/internal/metrics"
	"github.com/smazurov/logd/internal/sink"
)

// outlet serializes I/O for one destination on its own goroutine, so a
// slow destination only delays itself.
type outlet struct {
	dest    sink.Sink
	onError func(*WriteError)

	mu       sync.Mutex
	pending  []sink.Entry
	needSync bool
	busy     bool
	idle     chan struct{}
	retired  bool
}

func newOutlet(dest sink.Sink, onError func(*WriteError)) *outlet {
	return &outlet{dest: dest, onError: onError}
}

// enqueue appends a batch and starts the worker if it is idle.
func (o *outlet) enqueue(batch []sink.Entry) {
	o.mu.Lock()
	o.pending = append(o.pending, batch...)
	o.startLocked()
	o.mu.Unlock()
}

// requestSync schedules a sync after the writes queued so far.
func (o *outlet) requestSync() {
	o.mu.Lock()
	o.needSync = true
	o.startLocked()
	o.mu.Unlock()
}

// kick restarts the worker when entries are waiting for a retry.
func (o *outlet) kick() {
	o.mu.Lock()
	if len(o.pending) > 0 {
		o.startLocked()
	}
	o.mu.Unlock()
}

func (o *outlet) startLocked() {
	if o.busy || o.retired {
		return
	}
	o.busy = true
	o.idle = make(chan struct{})
	go o.run()
}

func (o *outlet) run() {
	for {
		o.mu.Lock()
		batch := o.pending
		o.pending = nil
		doSync := o.needSync && len(batch) == 0
		if doSync {
			o.needSync = false
		}
		if len(batch) == 0 && !doSync {
			o.stopLocked()
			o.mu.Unlock()
			return
		}
		o.mu.Unlock()

		if doSync {
			if err := o.dest.Sync(); err != nil {
				metrics.DestinationError(o.dest.Name(), OpSync)
				o.onError(&WriteError{Op: OpSync, Destination: o.dest.Name(), Cause: err})
			}
			continue
		}

		written, err := sink.WriteBatch(o.dest, batch)
		if err != nil {
			if written > 0 {
				metrics.EntriesWritten(o.dest.Name(), written)
			}
			o.mu.Lock()
			// Retry the undelivered tail on the next cycle, ahead of
			// anything queued meanwhile.
			o.pending = append(batch[written:], o.pending...)
			pending := len(o.pending)
			o.stopLocked()
			o.mu.Unlock()

			metrics.DestinationError(o.dest.Name(), OpWrite)
			o.onError(&WriteError{Op: OpWrite, Destination: o.dest.Name(), Pending: pending, Cause: err})
			return
		}
		metrics.EntriesWritten(o.dest.Name(), len(batch))
	}
}

func (o *outlet) stopLocked() {
	o.busy = false
	close(o.idle)
}

// wait blocks until the worker is idle or ctx is done.
// It reports whether the outlet is idle with nothing left to write.
func (o *outlet) wait(ctx context.Context) bool {
	o.mu.Lock()
	busy, idle := o.busy, o.idle
	o.mu.Unlock()

	if busy {
		select {
		case <-idle:
		case <-ctx.Done():
			return false
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	return !o.busy && len(o.pending) == 0
}

// active reports whether the worker is inside a write or sync.
func (o *outlet) active() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.busy
}

// backlog returns the number of entries not yet written.
func (o *outlet) backlog() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.pending)
}

// retire stops accepting work and returns entries that will never be written.
func (o *outlet) retire() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.retired = true
	n := len(o.pending)
	o.pending = nil
	o.needSync = false
	return n
}
