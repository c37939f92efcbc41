// Package lifecycle drives the daemon's state machine: the write and sync
// timers, and the exit, reload and restart transitions triggered by
// signals or API requests.
//
// Signal delivery only posts a request to a buffered control channel. All
// drains, rebuilds and the re-exec happen on the goroutine running Run, so
// two drains never overlap and timer-driven cycles pause while one runs.
package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"sync"
	"time"

	"github.com/smazurov/logd/internal/config"
	"github.com/smazurov/logd/internal/engine"
	"github.com/smazurov/logd/internal/events"
	"github.com/smazurov/logd/internal/metrics"
	"github.com/smazurov/logd/internal/routing"
	"github.com/smazurov/logd/internal/sink"
)

// DefaultDrainTimeout bounds a drain when Options.DrainTimeout is zero.
const DefaultDrainTimeout = 10 * time.Second

// Options configures a Controller.
type Options struct {
	Engine   *engine.Engine
	Resolver *sink.Resolver
	// Config is the configuration the current registry was built from.
	Config *config.Config
	// Loader reads a fresh configuration for the reload transition.
	Loader func() (*config.Config, error)

	// Signals maps OS signals to transitions. Nil disables signal handling.
	Signals map[os.Signal]Transition

	DrainTimeout time.Duration
	PIDFile      string
	Invocation   Invocation
	Exec         Execer

	// StopIngress runs before the final drain of exit and restart.
	StopIngress []func(context.Context) error

	Bus    *events.Bus
	Logger *slog.Logger
}

// Controller owns the lifecycle state machine.
type Controller struct {
	opts     Options
	logger   *slog.Logger
	requests chan Transition

	mu      sync.RWMutex
	state   State
	pending map[Transition]bool
	cfg     *config.Config
	started time.Time

	closeOnce sync.Once
	writeTick *time.Ticker
	syncTick  *time.Ticker
}

// New creates a controller in the STARTING state.
func New(opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.DrainTimeout <= 0 {
		opts.DrainTimeout = DefaultDrainTimeout
	}
	if opts.Exec == nil {
		opts.Exec = Exec
	}
	if opts.Resolver == nil {
		opts.Resolver = sink.NewResolver()
	}
	return &Controller{
		opts:   opts,
		logger: opts.Logger,
		// One slot per transition; pending guarantees sends never block.
		requests: make(chan Transition, 3),
		state:    StateStarting,
		pending:  make(map[Transition]bool),
		cfg:      opts.Config,
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Uptime returns the time since the controller entered RUNNING.
func (c *Controller) Uptime() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.started.IsZero() {
		return 0
	}
	return time.Since(c.started)
}

// Config returns the configuration of the active registry.
func (c *Controller) Config() *config.Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg
}

// Request asks the controller to perform t. It never blocks and is safe to
// call from any goroutine. It returns false when the request is a no-op:
// the same transition is already queued or draining, or the controller is
// shutting down.
func (c *Controller) Request(t Transition) bool {
	if t.draining() == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StateStopped, StateDrainingForExit, StateDrainingForRestart:
		return false
	}
	if c.pending[t] || c.state == t.draining() {
		return false
	}
	c.pending[t] = true
	c.requests <- t
	return true
}

// Run enters RUNNING and drives the timers until an exit or restart
// transition completes or ctx is cancelled, which counts as exit.
// A successful restart does not return.
func (c *Controller) Run(ctx context.Context) error {
	if len(c.opts.Signals) > 0 {
		sigCh := make(chan os.Signal, 4)
		signal.Notify(sigCh, signalList(c.opts.Signals)...)
		defer signal.Stop(sigCh)

		stop := make(chan struct{})
		defer close(stop)
		go c.forwardSignals(sigCh, stop)
	}

	cfg := c.Config()
	c.writeTick = time.NewTicker(interval(cfg.WriteInterval(), config.DefaultInterval))
	c.syncTick = time.NewTicker(interval(cfg.SyncPeriod(), config.DefaultSyncInterval))
	defer c.writeTick.Stop()
	defer c.syncTick.Stop()

	c.mu.Lock()
	c.started = time.Now()
	c.mu.Unlock()
	c.transitionTo(StateRunning, StateStarting)
	c.logger.Info("Daemon running",
		"routes", c.opts.Engine.Registry().Len(),
		"interval", cfg.WriteInterval(),
		"syncinterval", cfg.SyncPeriod())

	for {
		select {
		case <-ctx.Done():
			c.claim(Exit)
			return c.exit()

		case <-c.writeTick.C:
			c.opts.Engine.WriteCycle()

		case <-c.syncTick.C:
			c.opts.Engine.SyncCycle()

		case t := <-c.requests:
			c.claim(t)
			switch t {
			case Exit:
				return c.exit()
			case Reload:
				c.reload()
			case Restart:
				return c.restart()
			}
		}
	}
}

// forwardSignals turns signals into requests. It does no I/O itself.
func (c *Controller) forwardSignals(sigCh <-chan os.Signal, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case sig := <-sigCh:
			if t, ok := c.opts.Signals[sig]; ok {
				c.Request(t)
			}
		}
	}
}

// claim moves t from pending into its draining state.
func (c *Controller) claim(t Transition) {
	c.mu.Lock()
	delete(c.pending, t)
	c.mu.Unlock()
}

func (c *Controller) transitionTo(newState State, validFromStates ...State) bool {
	c.mu.Lock()
	if len(validFromStates) > 0 && !slices.Contains(validFromStates, c.state) {
		c.mu.Unlock()
		return false
	}
	from := c.state
	c.state = newState
	c.mu.Unlock()

	c.logger.Debug("State transition", "from", from, "to", newState)
	c.opts.Bus.Publish(events.StateChangedEvent{
		From:      string(from),
		To:        string(newState),
		Timestamp: time.Now().Format(time.RFC3339),
	})
	return true
}

// drain writes and syncs everything queued, bounded by ctx. It returns
// the destinations still stuck in a write or sync when ctx ran out; their
// locks are held by the hung call, so they must not be reopened or closed
// synchronously afterwards.
func (c *Controller) drain(ctx context.Context) []sink.Sink {
	err := c.opts.Engine.Flush(ctx)
	if err == nil {
		return nil
	}
	c.logger.Error("Drain incomplete", "timeout", c.opts.DrainTimeout, "error", err)
	stuck := c.opts.Engine.Busy()
	for _, dest := range stuck {
		c.logger.Warn("Destination still busy after drain", "destination", dest.Name())
	}
	return stuck
}

func (c *Controller) drainContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.opts.DrainTimeout)
}

func (c *Controller) stopIngress() {
	ctx, cancel := c.drainContext()
	defer cancel()
	for _, stop := range c.opts.StopIngress {
		if err := stop(ctx); err != nil {
			c.logger.Warn("Failed to stop ingress", "error", err)
		}
	}
}

// closeDestinations closes every non-console destination once.
func (c *Controller) closeDestinations(ctx context.Context, stuck []sink.Sink) {
	c.closeOnce.Do(func() {
		c.closeAll(ctx, c.opts.Engine.Registry().Destinations(), stuck)
	})
}

// closeAll closes the non-console destinations in dests. Stuck ones are
// closed on their own goroutine and waited for only until ctx is done.
func (c *Controller) closeAll(ctx context.Context, dests, stuck []sink.Sink) {
	for _, dest := range dests {
		if sink.IsConsole(dest) {
			continue
		}
		if !slices.Contains(stuck, dest) {
			c.closeDestination(dest)
			continue
		}
		done := make(chan struct{})
		go func() {
			defer close(done)
			c.closeDestination(dest)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			c.logger.Error("Gave up closing hung destination", "destination", dest.Name())
		}
	}
}

func (c *Controller) closeDestination(dest sink.Sink) {
	if err := dest.Close(); err != nil {
		c.logger.Error("Failed to close destination", "destination", dest.Name(), "error", err)
	}
}

func (c *Controller) exit() error {
	if !c.transitionTo(StateDrainingForExit, StateRunning) {
		return nil
	}
	c.logger.Info("Exit requested, draining")

	c.writeTick.Stop()
	c.syncTick.Stop()
	c.stopIngress()
	ctx, cancel := c.drainContext()
	defer cancel()
	c.closeDestinations(ctx, c.drain(ctx))

	if c.opts.PIDFile != "" {
		if err := RemovePIDFile(c.opts.PIDFile); err != nil {
			c.logger.Warn("Failed to remove PID file", "error", err)
		}
	}

	c.transitionTo(StateStopped)
	c.logger.Info("Daemon stopped")
	return nil
}

func (c *Controller) reload() {
	if !c.transitionTo(StateDrainingForReload, StateRunning) {
		return
	}
	c.logger.Info("Reload requested, draining")
	ctx, cancel := c.drainContext()
	defer cancel()
	stuck := c.drain(ctx)

	current := c.opts.Engine.Registry()
	ev := events.ReloadedEvent{Timestamp: time.Now().Format(time.RFC3339)}

	next, cfg, err := c.rebuild(current, stuck)
	if err != nil {
		// Keep routing as before but still cooperate with log rotation.
		errs := current.Reopen(stuck...)
		for _, reopenErr := range errs {
			c.logger.Error("Failed to reopen destination", "error", reopenErr)
		}
		c.logger.Error("Reload failed, keeping current routes", "error", err)
		metrics.Reload("config_error")
		ev.Error = err.Error()
		ev.Routes = current.Len()
		ev.Fallbacks = len(current.Fallbacks())
		ev.Reopened = countReopeners(current.Destinations(), stuck) - len(errs)
	} else {
		c.opts.Engine.SwapRegistry(next)
		orphans := routing.Orphans(current, next)
		c.closeAll(ctx, orphans, stuck)

		c.mu.Lock()
		c.cfg = cfg
		c.mu.Unlock()
		c.writeTick.Reset(interval(cfg.WriteInterval(), config.DefaultInterval))
		c.syncTick.Reset(interval(cfg.SyncPeriod(), config.DefaultSyncInterval))

		metrics.Reload("ok")
		ev.Routes = next.Len()
		ev.Fallbacks = len(next.Fallbacks())
		ev.Reopened = countReopeners(next.Destinations(), stuck)
		ev.Closed = len(orphans)
		c.logger.Info("Reload complete", "routes", ev.Routes, "fallbacks", ev.Fallbacks, "closed", ev.Closed)
	}

	c.opts.Bus.Publish(ev)
	c.transitionTo(StateRunning, StateDrainingForReload)
}

func (c *Controller) rebuild(current *routing.Registry, stuck []sink.Sink) (*routing.Registry, *config.Config, error) {
	if c.opts.Loader == nil {
		return nil, nil, errors.New("no config loader")
	}
	cfg, err := c.opts.Loader()
	if err != nil {
		return nil, nil, err
	}
	next, err := routing.Build(cfg, c.opts.Resolver,
		routing.WithPrevious(current),
		routing.WithoutReopen(stuck...),
		routing.WithLogger(c.logger))
	if err != nil {
		return nil, nil, err
	}
	return next, cfg, nil
}

func (c *Controller) restart() error {
	if !c.transitionTo(StateDrainingForRestart, StateRunning) {
		return nil
	}
	c.logger.Info("Restart requested, draining", "path", c.opts.Invocation.Path())

	c.writeTick.Stop()
	c.syncTick.Stop()
	c.stopIngress()
	ctx, cancel := c.drainContext()
	defer cancel()
	c.closeDestinations(ctx, c.drain(ctx))

	inv := c.opts.Invocation
	err := c.opts.Exec(inv.Path(), inv.Args(), inv.ReexecEnviron())
	c.transitionTo(StateStopped)
	if err != nil {
		return &ExecError{Path: inv.Path(), Cause: err}
	}
	return nil
}

// countReopeners counts the destinations that support Reopen, minus the
// skipped ones.
func countReopeners(dests, skip []sink.Sink) int {
	n := 0
	for _, dest := range dests {
		if _, ok := dest.(sink.Reopener); ok && !slices.Contains(skip, dest) {
			n++
		}
	}
	return n
}

func signalList(table map[os.Signal]Transition) []os.Signal {
	sigs := make([]os.Signal, 0, len(table))
	for sig := range table {
		sigs = append(sigs, sig)
	}
	return sigs
}

func interval(d time.Duration, fallbackSeconds int) time.Duration {
	if d <= 0 {
		return time.Duration(fallbackSeconds) * time.Second
	}
	return d
}
