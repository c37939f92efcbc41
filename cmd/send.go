package cmd

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smazurov/logd/internal/config"
	"github.com/smazurov/logd/internal/logging"
	"github.com/smazurov/logd/internal/nats"
)

// CreateSendCmd creates the send command. configPath points at the
// root --config value so the daemon address can be derived from it.
func CreateSendCmd(configPath *string) *cobra.Command {
	var (
		url      string
		service  string
		severity string
	)

	cmd := &cobra.Command{
		Use:   "send MESSAGE...",
		Short: "Publish one entry to a running daemon",
		Long: `Publish one (service, severity, message) entry to a running logd over
NATS. The daemon address is read from the configuration file unless --url
is given.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			if url == "" {
				derived, err := DaemonURL(*configPath)
				if err != nil {
					return err
				}
				url = derived
			}

			pub, err := nats.NewPublisher(url, logging.GetLogger("nats"))
			if err != nil {
				return fmt.Errorf("failed to connect to %s: %w", url, err)
			}
			defer pub.Close()

			return pub.Publish(nats.EntryMessage{
				Service:  service,
				Severity: severity,
				Message:  strings.Join(args, " "),
			})
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "NATS URL of the daemon (default from config host and port)")
	cmd.Flags().StringVarP(&service, "service", "s", "", "Service name")
	cmd.Flags().StringVarP(&severity, "severity", "l", nats.DefaultSeverity, "Severity level")
	_ = cmd.MarkFlagRequired("service")

	return cmd
}

// DaemonURL builds the ingest URL from the host and port of the daemon
// configuration at path. A wildcard host is dialed on loopback.
func DaemonURL(path string) (string, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return "", err
	}
	port, err := cfg.PortNumber()
	if err != nil {
		return "", err
	}

	host := cfg.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = config.DefaultHost
	}
	return "nats://" + net.JoinHostPort(host, strconv.Itoa(port)), nil
}
