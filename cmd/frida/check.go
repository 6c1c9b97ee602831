package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/five82/frida/internal/config"
	"github.com/five82/frida/internal/display"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the config and print the effective settings",
		Long: `Load and validate the config file, then print every setting after
defaults are applied. The API key is never printed, only whether it is set.`,
		Args: cobra.NoArgs,
		RunE: runCheck,
	}
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return writeCheck(cmd.OutOrStdout(), cfg)
}

func writeCheck(w io.Writer, cfg config.Config) error {
	doc, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	fmt.Fprintf(w, "# %s\n", cfg.Path)
	if _, err := w.Write(doc); err != nil {
		return err
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "api key\t%s\n", apiKeyState(cfg.Transit.APIKey))
	fmt.Fprintf(tw, "refresh\tevery %s\n", cfg.Transit.RefreshInterval())
	fmt.Fprintf(tw, "models\t%s\n", strings.Join(display.Models(), ", "))
	fmt.Fprintf(tw, "themes\t%s\n", strings.Join(display.ThemeNames(), ", "))
	fmt.Fprintf(tw, "log file\t%s\n", logFileState(cfg.Logging.File))
	mqtt := "disabled"
	if cfg.MQTT.Enabled() {
		mqtt = cfg.MQTT.Broker + " -> " + cfg.MQTT.Topic
	}
	fmt.Fprintf(tw, "mqtt\t%s\n", mqtt)
	return tw.Flush()
}

func apiKeyState(key config.Secret) string {
	if key == "" {
		return "not set (" + config.APIKeyEnv + ")"
	}
	return "set " + key.String()
}

func logFileState(path string) string {
	if path == "" {
		return "stdout only"
	}
	info, err := os.Stat(path)
	if err != nil {
		return path + " (not created yet)"
	}
	return fmt.Sprintf("%s (%s, modified %s)", path, humanize.Bytes(uint64(info.Size())), humanize.Time(info.ModTime()))
}
