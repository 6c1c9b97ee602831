package main

import (
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/five82/frida/internal/app"
	"github.com/five82/frida/internal/config"
	"github.com/five82/frida/internal/display"
	"github.com/five82/frida/internal/logging"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the arrival board daemon (default)",
		Args:  cobra.NoArgs,
		RunE:  runDaemon,
	}
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, closer, err := logging.Setup(logging.Options{
		Level:  cfg.Logging.Level,
		File:   cfg.Logging.File,
		Stdout: logWriter(cmd, cfg),
		Name:   logging.RootName,
	})
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	if cfg.Transit.APIKey == "" && !cfg.DevelopmentMode {
		logger.Warn("api key not set, requests will likely be rejected", "env", config.APIKeyEnv)
	}
	logger.Info("starting", "version", version, "config", cfg.Path, "model", cfg.Display.Model, "stop", cfg.Transit.StopID)

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sup := app.NewSupervisor(cfg, app.Options{
		Logger:    logger,
		UserAgent: userAgent(),
		Out:       cmd.OutOrStdout(),
		In:        cmd.InOrStdin(),
	})
	return sup.Run(ctx)
}

// logWriter keeps log lines off the terminal while the tui owns it.
func logWriter(cmd *cobra.Command, cfg config.Config) io.Writer {
	if strings.EqualFold(cfg.Display.Model, display.ModelTUI) && !cfg.DevelopmentMode {
		return io.Discard
	}
	return cmd.OutOrStdout()
}
