package logging

import (
	"sync"
	"time"
)

// LogEntry is one diagnostic record kept in the ring buffer.
type LogEntry struct {
	Seq        uint64         `json:"seq"`
	Timestamp  time.Time      `json:"timestamp"`
	Level      string         `json:"level"`
	Module     string         `json:"module"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// RingBuffer keeps the most recent diagnostic records. Every record gets
// a sequence number that keeps increasing after old records are evicted,
// so readers can poll with Since.
type RingBuffer struct {
	mu      sync.RWMutex
	entries []LogEntry
	next    int
	count   int
	seq     uint64
}

// NewRingBuffer creates a buffer holding up to size records.
func NewRingBuffer(size int) *RingBuffer {
	if size < 1 {
		size = 1
	}
	return &RingBuffer{entries: make([]LogEntry, size)}
}

// Write stores entry, evicting the oldest record when full, and returns
// it with its sequence number set.
func (rb *RingBuffer) Write(entry LogEntry) LogEntry {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.seq++
	entry.Seq = rb.seq
	rb.entries[rb.next] = entry
	rb.next = (rb.next + 1) % len(rb.entries)
	if rb.count < len(rb.entries) {
		rb.count++
	}
	return entry
}

// ReadAll returns every stored record, oldest first.
func (rb *RingBuffer) ReadAll() []LogEntry {
	return rb.Tail(0)
}

// Count returns the number of stored records.
func (rb *RingBuffer) Count() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.count
}

// Tail returns up to n of the newest records, oldest first. n <= 0 means all.
func (rb *RingBuffer) Tail(n int) []LogEntry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.tailLocked(n)
}

// Since returns the stored records with a sequence number above seq,
// oldest first. Records already evicted are skipped.
func (rb *RingBuffer) Since(seq uint64) []LogEntry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if seq >= rb.seq {
		return nil
	}
	return rb.tailLocked(int(min(rb.seq-seq, uint64(rb.count))))
}

func (rb *RingBuffer) tailLocked(n int) []LogEntry {
	if n <= 0 || n > rb.count {
		n = rb.count
	}
	if n == 0 {
		return nil
	}

	out := make([]LogEntry, n)
	start := rb.next - n
	if start < 0 {
		start += len(rb.entries)
	}
	for i := range out {
		out[i] = rb.entries[(start+i)%len(rb.entries)]
	}
	return out
}
