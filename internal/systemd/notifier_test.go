package systemd

import (
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/logd/internal/events"
)

type recorder struct {
	mu     sync.Mutex
	states []string
}

func (r *recorder) notify(state string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
	return true, nil
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.states)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandleMapsStates(t *testing.T) {
	tests := []struct {
		to     string
		prefix string
	}{
		{"RUNNING", "READY=1"},
		{"DRAINING_FOR_RELOAD", "RELOADING=1\nMONOTONIC_USEC="},
		{"DRAINING_FOR_EXIT", "STOPPING=1"},
		{"DRAINING_FOR_RESTART", "STOPPING=1"},
		{"STOPPED", ""},
		{"STARTING", ""},
	}

	for _, tt := range tests {
		t.Run(tt.to, func(t *testing.T) {
			rec := &recorder{}
			n := NewNotifier(quietLogger(), WithNotifyFunc(rec.notify), WithWatchdog(0))
			n.handle(events.StateChangedEvent{To: tt.to})

			got := rec.snapshot()
			if tt.prefix == "" {
				if len(got) != 0 {
					t.Errorf("unexpected notification %q", got)
				}
				return
			}
			if len(got) != 1 || !strings.HasPrefix(got[0], tt.prefix) {
				t.Errorf("notifications = %q, want prefix %q", got, tt.prefix)
			}
		})
	}
}

func TestMonotonicUsecAdvances(t *testing.T) {
	a := monotonicUsec()
	time.Sleep(2 * time.Millisecond)
	if b := monotonicUsec(); b <= a || a == 0 {
		t.Errorf("monotonic clock did not advance: %d -> %d", a, b)
	}
}

func TestStartSubscribesAndFeedsWatchdog(t *testing.T) {
	rec := &recorder{}
	bus := events.New()
	n := NewNotifier(quietLogger(), WithNotifyFunc(rec.notify), WithWatchdog(20*time.Millisecond))
	n.Start(bus)
	defer n.Stop()

	bus.Publish(events.StateChangedEvent{From: "STARTING", To: "RUNNING"})

	deadline := time.Now().Add(2 * time.Second)
	for {
		got := rec.snapshot()
		if slices.ContainsFunc(got, func(s string) bool { return strings.HasPrefix(s, "READY=1") }) &&
			slices.Contains(got, "WATCHDOG=1") {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("notifications = %q", got)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	n := NewNotifier(quietLogger(), WithNotifyFunc((&recorder{}).notify), WithWatchdog(time.Second))
	n.Start(events.New())
	n.Stop()
	n.Stop()
}
