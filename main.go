package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/smazurov/logd/cmd"
	"github.com/smazurov/logd/internal/config"
	"github.com/smazurov/logd/internal/logging"
	"github.com/smazurov/logd/internal/version"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string

	// Admin API settings
	APIAddr      string `toml:"api.addr" env:"API_ADDR"`
	AuthUsername string `toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `toml:"auth.password" env:"AUTH_PASSWORD"`

	// Lifecycle settings
	DrainTimeout string `toml:"drain_timeout" env:"DRAIN_TIMEOUT"`
	WatchConfig  bool   `toml:"watch_config" env:"WATCH_CONFIG"`

	// Logging settings
	LoggingLevel  string `toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat string `toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingOutput string `toml:"logging.output" env:"LOGGING_OUTPUT"`
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &Options{}

	root := &cobra.Command{
		Use:   "logd",
		Short: "Route service log entries to per-service destinations",
		Long: `logd accepts (service, severity, message) entries over NATS and HTTP,
filters them by per-service severity and writes them to files, compressed
files, the journal or the console. Signals drive exit, reload and restart.`,
		Version:      version.Get().Version,
		SilenceUsage: true,
		PersistentPreRunE: func(c *cobra.Command, _ []string) error {
			if err := config.LoadOptions(opts, c); err != nil {
				return err
			}
			initLogging(opts)
			return nil
		},
		RunE: func(c *cobra.Command, _ []string) error {
			return serve(c.Context(), opts)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.Config, "config", "c", "logd.toml", "Path to configuration file")
	flags.StringVar(&opts.LoggingLevel, "logging-level", "info", "Diagnostics level (debug, info, warn, error)")
	flags.StringVar(&opts.LoggingFormat, "logging-format", "text", "Diagnostics format (text, json)")
	flags.StringVar(&opts.LoggingOutput, "logging-output", "stderr", "Diagnostics stream (stderr, stdout)")

	local := root.Flags()
	local.StringVar(&opts.APIAddr, "api-addr", "", "Admin API listen address, empty disables the API")
	local.StringVar(&opts.AuthUsername, "auth-username", "", "Admin API basic auth username")
	local.StringVar(&opts.AuthPassword, "auth-password", "", "Admin API basic auth password")
	local.StringVar(&opts.DrainTimeout, "drain-timeout", "10s", "Upper bound on draining queues before exit, reload or restart")
	local.BoolVar(&opts.WatchConfig, "watch-config", false, "Reload when the configuration file changes")

	root.AddCommand(
		cmd.CreateSendCmd(&opts.Config),
		cmd.CreateValidateCmd(&opts.Config),
		cmd.CreateVersionCmd(),
	)

	return root
}

// initLogging applies the diagnostics settings. Per-module levels come
// from the [logging.modules] table of the same file.
func initLogging(opts *Options) {
	cfg := config.LoadLoggingConfig(opts.Config)
	cfg.Level = opts.LoggingLevel
	cfg.Format = opts.LoggingFormat
	cfg.Output = opts.LoggingOutput
	logging.Initialize(cfg)
}
