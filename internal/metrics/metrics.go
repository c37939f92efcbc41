// Package metrics provides Prometheus metrics for the routing engine.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	entriesSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "logd",
		Subsystem: "engine",
		Name:      "entries_submitted_total",
		Help:      "Entries accepted by Submit, by the route they resolve to",
	}, []string{"route"})

	entriesFiltered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "logd",
		Subsystem: "engine",
		Name:      "entries_filtered_total",
		Help:      "Entries dropped because their severity is disabled for the route",
	}, []string{"route"})

	entriesWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "logd",
		Subsystem: "engine",
		Name:      "entries_written_total",
		Help:      "Entries written to a destination",
	}, []string{"destination"})

	entriesDiscarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "logd",
		Subsystem: "engine",
		Name:      "entries_discarded_total",
		Help:      "Entries left unwritten when their destination was retired",
	}, []string{"destination"})

	destinationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "logd",
		Subsystem: "engine",
		Name:      "destination_errors_total",
		Help:      "Failed destination writes and syncs",
	}, []string{"destination", "op"})

	pendingEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "logd",
		Subsystem: "engine",
		Name:      "pending_entries",
		Help:      "Entries queued and not yet written",
	})

	cycleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "logd",
		Subsystem: "engine",
		Name:      "cycle_duration_seconds",
		Help:      "Duration of write and sync cycles",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
	}, []string{"cycle"})

	reloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "logd",
		Subsystem: "lifecycle",
		Name:      "reloads_total",
		Help:      "Reload transitions by result",
	}, []string{"result"})

	diagnostics = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "logd",
		Subsystem: "daemon",
		Name:      "diagnostics_total",
		Help:      "Daemon diagnostic records by level",
	}, []string{"level"})

	ingestMalformed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "logd",
		Subsystem: "ingest",
		Name:      "malformed_total",
		Help:      "Ingest payloads that could not be decoded",
	}, []string{"transport"})

	// Local totals for the status endpoint.
	totals   Totals
	totalsMu sync.RWMutex
)

// Totals is a snapshot of process-wide counters.
type Totals struct {
	Submitted   uint64
	Filtered    uint64
	Written     uint64
	Discarded   uint64
	WriteErrors uint64
	Malformed   uint64
	Pending     int64
}

// EntrySubmitted counts one accepted entry. The label is the route
// service, so unconfigured service names all count under "default".
func EntrySubmitted(route string) {
	entriesSubmitted.WithLabelValues(route).Inc()
	pendingEntries.Inc()
	updateTotals(func(t *Totals) {
		t.Submitted++
		t.Pending++
	})
}

// EntriesFiltered counts entries dropped by a severity filter.
func EntriesFiltered(route string, n int) {
	if n == 0 {
		return
	}
	entriesFiltered.WithLabelValues(route).Add(float64(n))
	pendingEntries.Sub(float64(n))
	updateTotals(func(t *Totals) {
		t.Filtered += uint64(n)
		t.Pending -= int64(n)
	})
}

// EntriesWritten counts entries handed to a destination.
func EntriesWritten(destination string, n int) {
	entriesWritten.WithLabelValues(destination).Add(float64(n))
	pendingEntries.Sub(float64(n))
	updateTotals(func(t *Totals) {
		t.Written += uint64(n)
		t.Pending -= int64(n)
	})
}

// EntriesDiscarded counts entries abandoned with a retired destination.
func EntriesDiscarded(destination string, n int) {
	entriesDiscarded.WithLabelValues(destination).Add(float64(n))
	pendingEntries.Sub(float64(n))
	updateTotals(func(t *Totals) {
		t.Discarded += uint64(n)
		t.Pending -= int64(n)
	})
}

// DestinationError counts a failed write or sync.
func DestinationError(destination, op string) {
	destinationErrors.WithLabelValues(destination, op).Inc()
	updateTotals(func(t *Totals) { t.WriteErrors++ })
}

// ObserveCycle records how long a write or sync cycle took.
func ObserveCycle(cycle string, d time.Duration) {
	cycleDuration.WithLabelValues(cycle).Observe(d.Seconds())
}

// Reload counts a reload outcome: ok, config_error.
func Reload(result string) {
	reloads.WithLabelValues(result).Inc()
}

// Diagnostic counts one of the daemon's own log records.
func Diagnostic(level string) {
	diagnostics.WithLabelValues(level).Inc()
}

// MalformedPayload counts an undecodable ingest payload.
func MalformedPayload(transport string) {
	ingestMalformed.WithLabelValues(transport).Inc()
	updateTotals(func(t *Totals) { t.Malformed++ })
}

// GetTotals returns a copy of the process-wide totals.
func GetTotals() Totals {
	totalsMu.RLock()
	defer totalsMu.RUnlock()
	return totals
}

func updateTotals(update func(*Totals)) {
	totalsMu.Lock()
	defer totalsMu.Unlock()
	update(&totals)
}
