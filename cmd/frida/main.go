// Package main provides the frida command: the arrival board daemon and a
// few helpers for checking its setup.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/five82/frida/internal/config"
)

// Build-time variables (set via ldflags)
var (
	version = "dev"
	commit  = "unknown"
)

var globalOpts struct {
	configPath string
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "frida: %v\n", err)
		return 1
	}
	return 0
}

// newRootCmd builds the command tree. Running frida without a subcommand
// starts the daemon.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "frida",
		Short: "Transit arrival board for e-paper displays",
		Long: `frida polls a transit predictions API for one stop and keeps the
upcoming arrivals on a small e-paper panel, a terminal, or a tui.

Running frida without a subcommand starts the daemon. The API key is read
from the ` + config.APIKeyEnv + ` environment variable.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runDaemon,
	}
	root.PersistentFlags().StringVar(&globalOpts.configPath, "config", "config.yaml",
		"Path to config file (YAML or TOML)")

	root.AddCommand(
		newRunCmd(),
		newFetchCmd(),
		newCheckCmd(),
		newLogsCmd(),
		newVersionCmd(),
	)
	return root
}

// loadConfig reads the config named by --config. A missing document gets a
// hint on how to create one.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(globalOpts.configPath)
	if errors.Is(err, config.ErrNotFound) {
		return config.Config{}, fmt.Errorf("%w (copy config.example.yaml to config.yaml and edit it)", err)
	}
	return cfg, err
}

func userAgent() string {
	return "frida/" + version
}
