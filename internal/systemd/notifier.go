// Package systemd reports lifecycle state to the service manager over the
// sd_notify socket and keeps the watchdog fed.
package systemd

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"golang.org/x/sys/unix"

	"github.com/smazurov/logd/internal/events"
)

// NotifyFunc sends one notification. It reports false when no notify
// socket is configured.
type NotifyFunc func(state string) (bool, error)

// Notifier translates state changes into sd_notify messages.
type Notifier struct {
	logger   *slog.Logger
	notify   NotifyFunc
	watchdog time.Duration

	mu    sync.Mutex
	unsub func()
	stop  chan struct{}
	done  chan struct{}
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithNotifyFunc replaces daemon.SdNotify, mainly for tests.
func WithNotifyFunc(fn NotifyFunc) Option {
	return func(n *Notifier) {
		n.notify = fn
	}
}

// WithWatchdog overrides the interval read from WATCHDOG_USEC.
func WithWatchdog(d time.Duration) Option {
	return func(n *Notifier) {
		n.watchdog = d
	}
}

// NewNotifier creates a notifier bound to NOTIFY_SOCKET.
func NewNotifier(logger *slog.Logger, opts ...Option) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	n := &Notifier{
		logger: logger,
		notify: func(state string) (bool, error) {
			return daemon.SdNotify(false, state)
		},
	}
	if d, err := daemon.SdWatchdogEnabled(false); err == nil && d > 0 {
		n.watchdog = d
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Start subscribes to state changes and starts the watchdog loop when
// the service manager asked for one.
func (n *Notifier) Start(bus *events.Bus) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.unsub != nil {
		return
	}
	n.unsub = bus.Subscribe(func(ev events.StateChangedEvent) {
		n.handle(ev)
	})

	if n.watchdog > 0 {
		n.stop = make(chan struct{})
		n.done = make(chan struct{})
		go n.feedWatchdog(n.watchdog/2, n.stop, n.done)
		n.logger.Info("Systemd watchdog enabled", "interval", n.watchdog)
	}
}

// Stop unsubscribes and stops the watchdog loop.
func (n *Notifier) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.unsub != nil {
		n.unsub()
		n.unsub = nil
	}
	if n.stop != nil {
		close(n.stop)
		<-n.done
		n.stop = nil
	}
}

func (n *Notifier) handle(ev events.StateChangedEvent) {
	var state string
	switch ev.To {
	case "RUNNING":
		state = daemon.SdNotifyReady + "\nSTATUS=Routing log entries"
	case "DRAINING_FOR_RELOAD":
		state = fmt.Sprintf("%s\nMONOTONIC_USEC=%d\nSTATUS=Reloading configuration",
			daemon.SdNotifyReloading, monotonicUsec())
	case "DRAINING_FOR_EXIT":
		state = daemon.SdNotifyStopping + "\nSTATUS=Draining before exit"
	case "DRAINING_FOR_RESTART":
		state = daemon.SdNotifyStopping + "\nSTATUS=Draining before restart"
	default:
		return
	}
	n.send(state)
}

func (n *Notifier) send(state string) {
	sent, err := n.notify(state)
	if err != nil {
		n.logger.Warn("sd_notify failed", "error", err)
		return
	}
	if sent {
		n.logger.Debug("sd_notify sent", "state", state)
	}
}

func (n *Notifier) feedWatchdog(interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			n.send(daemon.SdNotifyWatchdog)
		}
	}
}

// monotonicUsec is CLOCK_MONOTONIC in microseconds, as RELOADING=1 expects.
func monotonicUsec() int64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0
	}
	return ts.Nano() / int64(time.Microsecond)
}
