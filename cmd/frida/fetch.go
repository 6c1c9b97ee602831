package main

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/five82/frida/internal/display"
	"github.com/five82/frida/internal/logging"
	"github.com/five82/frida/internal/publish"
	"github.com/five82/frida/internal/transit"
)

var fetchOpts struct {
	format string
	width  int
}

func newFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch arrivals once and print them",
		Long: `Fetch the configured stop once and print the arrivals.

The plain format is the same board the display shows. The json format is
the document published over MQTT.`,
		Args: cobra.NoArgs,
		RunE: runFetch,
	}
	cmd.Flags().StringVarP(&fetchOpts.format, "format", "f", "plain", "Output format (plain, json)")
	cmd.Flags().IntVarP(&fetchOpts.width, "width", "w", 48, "Line width for plain output (0 disables truncation)")
	return cmd
}

func runFetch(cmd *cobra.Command, _ []string) error {
	if fetchOpts.format != "plain" && fetchOpts.format != "json" {
		return fmt.Errorf("unknown format %q (use plain or json)", fetchOpts.format)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, _, err := logging.Setup(logging.Options{
		Level:  cfg.Logging.Level,
		Stdout: cmd.ErrOrStderr(),
		Name:   logging.RootName,
	})
	if err != nil {
		return err
	}

	client, err := transit.NewClient(transit.Options{
		APIURL:    cfg.Transit.APIURL,
		StopID:    cfg.Transit.StopID,
		APIKey:    cfg.Transit.APIKey,
		Timeout:   cfg.Transit.RequestTimeout.Duration(),
		UserAgent: userAgent(),
		Logger:    logging.Named(logger, "transit"),
	})
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	snap, err := client.FetchArrivals(ctx)
	if err != nil {
		return err
	}
	if fetchOpts.format == "json" {
		return writeJSON(cmd.OutOrStdout(), snap)
	}
	return writePlain(cmd.OutOrStdout(), snap, time.Now(), fetchOpts.width)
}

func writeJSON(w io.Writer, snap transit.Snapshot) error {
	enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(publish.NewMessage(snap))
}

func writePlain(w io.Writer, snap transit.Snapshot, now time.Time, width int) error {
	for _, line := range display.ComposeFrame(snap, now).Lines(width) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

