package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/smazurov/logd/internal/config"
	"github.com/smazurov/logd/internal/logging"
	"github.com/smazurov/logd/internal/routing"
	"github.com/smazurov/logd/internal/sink"
)

// CreateValidateCmd creates the validate command.
func CreateValidateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check a configuration file and print its routing table",
		Long: `Load the configuration, open every destination it names and print the
resulting routing table. Exits non-zero when the configuration is invalid
or any route had to fall back to the default destination.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return Validate(c.OutOrStdout(), *configPath)
		},
	}
}

// Validate builds the registry for the configuration at path, writes the
// routing table to w and closes what it opened.
func Validate(w io.Writer, path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	reg, err := routing.Build(cfg, sink.NewResolver(), routing.WithLogger(logging.GetLogger("routing")))
	if err != nil {
		return err
	}
	defer func() {
		for _, dest := range reg.Destinations() {
			if !sink.IsConsole(dest) {
				_ = dest.Close()
			}
		}
	}()

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SERVICE\tLEVELS\tTYPE\tDESTINATION\tOPTIONS\tSTATUS")
	for _, r := range reg.Routes() {
		status := "ok"
		if r.Fallback {
			status = "fallback"
		}
		dest := "-"
		if r.Destination != nil {
			dest = r.Destination.Name()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Service, strings.Join(r.Levels.Levels(), ","), r.Type, dest, r.Options, status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fallbacks := reg.Fallbacks()
	for _, fb := range fallbacks {
		fmt.Fprintf(w, "%s: %v\n", fb.Service, fb.Err)
	}
	if len(fallbacks) > 0 {
		return fmt.Errorf("%d route(s) fell back to the default destination", len(fallbacks))
	}
	return nil
}
