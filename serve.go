package main

import (
	"context"
	"fmt"
	"time"

	"github.com/smazurov/logd/internal/api"
	"github.com/smazurov/logd/internal/config"
	"github.com/smazurov/logd/internal/engine"
	"github.com/smazurov/logd/internal/events"
	"github.com/smazurov/logd/internal/lifecycle"
	"github.com/smazurov/logd/internal/logging"
	"github.com/smazurov/logd/internal/metrics"
	"github.com/smazurov/logd/internal/metrics/exporters"
	"github.com/smazurov/logd/internal/nats"
	"github.com/smazurov/logd/internal/routing"
	"github.com/smazurov/logd/internal/sink"
	"github.com/smazurov/logd/internal/systemd"
)

// serve runs the daemon until an exit transition completes or a restart
// replaces the process.
func serve(ctx context.Context, opts *Options) error {
	logger := logging.GetLogger("main")

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return err
	}
	signals, err := lifecycle.SignalTable(cfg.Signals)
	if err != nil {
		return err
	}
	drainTimeout, err := time.ParseDuration(opts.DrainTimeout)
	if err != nil {
		return fmt.Errorf("invalid drain timeout %q: %w", opts.DrainTimeout, err)
	}
	invocation, err := lifecycle.CaptureInvocation()
	if err != nil {
		return fmt.Errorf("failed to capture invocation: %w", err)
	}

	if cfg.Daemonize {
		logger.Warn("daemonize is set, staying in the foreground; let the service manager detach")
	}
	if cfg.PIDFile != "" && !lifecycle.IsReexec() {
		if err := lifecycle.WritePIDFile(cfg.PIDFile); err != nil {
			return err
		}
	}
	cleanupPID := func() {
		if cfg.PIDFile != "" {
			_ = lifecycle.RemovePIDFile(cfg.PIDFile)
		}
	}

	bus := events.New()
	logging.SetLogCallback(func(entry logging.LogEntry) {
		metrics.Diagnostic(entry.Level)
		bus.Publish(events.DiagnosticEvent{
			Seq:        entry.Seq,
			Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
			Level:      entry.Level,
			Module:     entry.Module,
			Message:    entry.Message,
			Attributes: entry.Attributes,
		})
	})
	defer logging.SetLogCallback(nil)

	resolver := sink.NewResolver()
	registry, err := routing.Build(cfg, resolver, routing.WithLogger(logging.GetLogger("routing")))
	if err != nil {
		cleanupPID()
		return err
	}

	clock := engine.NewCachedClock(engine.ClockResolution)
	defer clock.Stop()

	eng := engine.New(registry,
		engine.WithClock(clock),
		engine.WithLogger(logging.GetLogger("engine")),
		engine.WithEventBus(bus),
	)

	// Build already validated the port.
	port, _ := cfg.PortNumber()
	natsLogger := logging.GetLogger("nats")
	natsServer := nats.NewServer(nats.ServerOptions{
		Host:   cfg.Host,
		Port:   port,
		Logger: natsLogger,
	})
	if err := natsServer.Start(); err != nil {
		cleanupPID()
		return fmt.Errorf("failed to start ingest server: %w", err)
	}
	bridge := nats.NewBridge(natsServer.ClientURL(), eng, natsLogger)
	if err := bridge.Start(); err != nil {
		natsServer.Stop()
		cleanupPID()
		return fmt.Errorf("failed to start ingest bridge: %w", err)
	}

	var apiServer *api.Server
	stopIngress := []func(context.Context) error{
		func(ctx context.Context) error {
			if apiServer == nil {
				return nil
			}
			return apiServer.Stop(ctx)
		},
		bridge.Stop,
		func(context.Context) error {
			natsServer.Stop()
			return nil
		},
	}

	ctrl := lifecycle.New(lifecycle.Options{
		Engine:   eng,
		Resolver: resolver,
		Config:   cfg,
		Loader: func() (*config.Config, error) {
			return config.Load(opts.Config)
		},
		Signals:      signals,
		DrainTimeout: drainTimeout,
		PIDFile:      cfg.PIDFile,
		Invocation:   invocation,
		StopIngress:  stopIngress,
		Bus:          bus,
		Logger:       logging.GetLogger("lifecycle"),
	})

	if opts.APIAddr != "" {
		apiServer = api.NewServer(&api.Options{
			AuthUsername:      opts.AuthUsername,
			AuthPassword:      opts.AuthPassword,
			Engine:            eng,
			Lifecycle:         ctrl,
			EventBus:          bus,
			PrometheusHandler: exporters.HTTPHandler(),
		})
		go func() {
			logger.Info("Starting admin API", "addr", opts.APIAddr)
			if err := apiServer.Start(opts.APIAddr); err != nil {
				logger.Error("Admin API failed", "addr", opts.APIAddr, "error", err)
				ctrl.Request(lifecycle.Exit)
			}
		}()
	}

	if opts.WatchConfig {
		watcher := config.NewConfigWatcher(opts.Config, config.Load, logging.GetLogger("config"))
		watcher.OnReload(func(*config.Config) {
			ctrl.Request(lifecycle.Reload)
		})
		if err := watcher.Start(); err != nil {
			logger.Warn("Config watching disabled", "path", opts.Config, "error", err)
		} else {
			defer watcher.Stop()
		}
	}

	notifier := systemd.NewNotifier(logging.GetLogger("systemd"))
	notifier.Start(bus)
	defer notifier.Stop()

	logger.Info("logd starting",
		"config", opts.Config,
		"ingest", natsServer.ClientURL(),
		"routes", registry.Len(),
		"fallbacks", len(registry.Fallbacks()),
	)

	return ctrl.Run(ctx)
}
