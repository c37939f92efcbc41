package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestEntryCounters(t *testing.T) {
	before := GetTotals()
	service := "metrics-test-service"
	dest := "/var/log/metrics-test.log"

	EntrySubmitted(service)
	EntrySubmitted(service)
	EntrySubmitted(service)
	EntriesFiltered(service, 1)
	EntriesWritten(dest, 2)

	if got := testutil.ToFloat64(entriesSubmitted.WithLabelValues(service)); got != 3 {
		t.Errorf("submitted = %v, want 3", got)
	}
	if got := testutil.ToFloat64(entriesFiltered.WithLabelValues(service)); got != 1 {
		t.Errorf("filtered = %v, want 1", got)
	}
	if got := testutil.ToFloat64(entriesWritten.WithLabelValues(dest)); got != 2 {
		t.Errorf("written = %v, want 2", got)
	}

	after := GetTotals()
	if after.Submitted-before.Submitted != 3 || after.Written-before.Written != 2 {
		t.Errorf("totals delta = %+v -> %+v", before, after)
	}
	if after.Pending != before.Pending {
		t.Errorf("pending drifted: %d -> %d", before.Pending, after.Pending)
	}
}

func TestFilteredZeroIsNoop(t *testing.T) {
	before := GetTotals()
	EntriesFiltered("noop-service", 0)
	if GetTotals() != before {
		t.Error("EntriesFiltered(0) changed totals")
	}
}

func TestDestinationErrorCounter(t *testing.T) {
	DestinationError("/tmp/err.log", "sync")
	if got := testutil.ToFloat64(destinationErrors.WithLabelValues("/tmp/err.log", "sync")); got != 1 {
		t.Errorf("errors = %v, want 1", got)
	}
}

func TestCycleAndReload(t *testing.T) {
	ObserveCycle("write", 3*time.Millisecond)
	if n := testutil.CollectAndCount(cycleDuration); n == 0 {
		t.Error("cycle histogram not collected")
	}

	Reload("ok")
	Reload("config_error")
	if got := testutil.ToFloat64(reloads.WithLabelValues("config_error")); got != 1 {
		t.Errorf("config_error reloads = %v", got)
	}
}
