package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lelanhus/ptybox/internal/harnesserr"
	"github.com/lelanhus/ptybox/internal/replay"
)

func replayReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay-report <bundle-dir>",
		Short: "Print a previously computed replay.json without re-executing anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Join(args[0], "replay.json")
			data, err := os.ReadFile(path)
			if err != nil {
				return harnesserr.Wrap(harnesserr.KindIO, err, map[string]any{"file": path})
			}
			var report replay.Report
			if err := json.Unmarshal(data, &report); err != nil {
				return harnesserr.Wrap(harnesserr.KindIO, err, map[string]any{"file": path})
			}
			if err := printJSON(report); err != nil {
				return err
			}
			if report.Status != "match" {
				return harnesserr.New(harnesserr.KindReplayMismatch, report.Mismatch.ErrorString(), map[string]any{"kind": report.Mismatch.Kind})
			}
			return nil
		},
	}
	return cmd
}
