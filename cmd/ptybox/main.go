package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lelanhus/ptybox/internal/harnesserr"
	"github.com/lelanhus/ptybox/internal/obslog"
)

func main() {
	var logLevel string
	var logFormat string

	root := &cobra.Command{
		Use:   "ptybox",
		Short: "ptybox — deny-by-default PTY automation harness",
		Long:  "Drives a terminal program through a pseudo-terminal, asserting against canonical VT snapshots under a deny-by-default policy.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			format := obslog.FormatText
			if logFormat == "json" {
				format = obslog.FormatJSON
			}
			obslog.Init(logLevel, format, nil)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn, error")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", "text or json")

	root.AddCommand(
		execCmd(),
		runCmd(),
		driverCmd(),
		replayCmd(),
		replayReportCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps an error to the stable process exit code table (spec §6).
func exitCodeFor(err error) int {
	var herr *harnesserr.Error
	if harnesserr.As(err, &herr) {
		return herr.ExitCode()
	}
	return 1
}
