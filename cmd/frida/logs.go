package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/five82/frida/internal/logtail"
)

var logsOpts struct {
	lines   int
	level   string
	noColor bool
}

func newLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the tail of the daemon log file",
		Args:  cobra.NoArgs,
		RunE:  runLogs,
	}
	cmd.Flags().IntVarP(&logsOpts.lines, "lines", "n", 50, "Number of lines to show (0 for all)")
	cmd.Flags().StringVar(&logsOpts.level, "level", "", "Only show lines at or above this level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&logsOpts.noColor, "no-color", false, "Disable level highlighting")
	return cmd
}

func runLogs(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Logging.File == "" {
		return errors.New("logging.file is empty; the daemon logs to stdout only")
	}

	lines, err := logtail.Read(cfg.Logging.File, logtail.Options{
		Lines:    logsOpts.lines,
		MinLevel: logsOpts.level,
	})
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "no log lines in %s\n", cfg.Logging.File)
		return nil
	}

	out := cmd.OutOrStdout()
	for _, line := range lines {
		if !logsOpts.noColor {
			line = logtail.Colorize(line)
		}
		fmt.Fprintln(out, line)
	}
	return nil
}
