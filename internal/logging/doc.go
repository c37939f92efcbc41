// Package logging provides the daemon's own structured diagnostics with
// per-module log level configuration.
//
// These are logd's logs about itself (startup, reloads, write errors),
// not the entries it routes on behalf of clients.
//
// # Overview
//
// The logging system uses Go's slog package with automatic output routing:
//   - Logs to stderr (or stdout, see Output) when a terminal, pipe or file is connected
//   - Logs to systemd journal when available (Linux systems with journald)
//   - Always keeps the last 1000 records in a ring buffer served by /api/diagnostics
//
// # Usage
//
// Initialize the logging system once at startup:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",      // Global log level: debug, info, warn, error
//		Format: "text",      // Output format: text or json
//		Modules: map[string]string{
//			"engine":    "debug",  // Per-module overrides
//			"lifecycle": "warn",
//		},
//	})
//
// Get a logger for your module:
//
//	logger := logging.GetLogger("engine")
//	logger.Info("Write cycle finished", "destinations", n)
//	logger.Warn("Destination write failed", "destination", name, "error", err)
//
// # Output Destinations
//
// Diagnostics go to stderr by default so they never mix with entries routed
// to the STDOUT sink. Set Output to "stdout" to change that.
//
// # Viewing Logs
//
// When running as a systemd service or on a system with journald:
//
//	journalctl -t logd              # All diagnostics
//	journalctl -t logd -f           # Follow live
//	journalctl -t logd -p err       # Errors only
//	journalctl -t logd MODULE=engine
//
// # Configuration
//
// Example TOML configuration:
//
//	[logging]
//	level = "info"
//	format = "text"
//
//	[logging.modules]
//	engine = "debug"
//	nats = "warn"
package logging
