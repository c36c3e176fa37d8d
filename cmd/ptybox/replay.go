package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/lelanhus/ptybox/internal/clockwork"
	"github.com/lelanhus/ptybox/internal/harness"
)

func replayCmd() *cobra.Command {
	var filters []string
	var strict bool

	cmd := &cobra.Command{
		Use:   "replay <bundle-dir>",
		Short: "Re-execute a recorded run and compare it against its baseline (spec §4.10)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var callerStrict *bool
			if cmd.Flags().Changed("strict") {
				callerStrict = &strict
			}

			report, err := harness.RunReplay(context.Background(), args[0], filters, nil, callerStrict, hostInfo(), clockwork.System{})
			if perr := printJSON(report); perr != nil {
				return perr
			}
			return err
		},
	}
	cmd.Flags().StringSliceVar(&filters, "filter", nil, "Normalization filter to apply (repeatable): snapshot_id, run_id, run_timestamps, step_timestamps, observation_timestamp, session_id")
	cmd.Flags().BoolVar(&strict, "strict", false, "Disable all normalization filters and rules, comparing byte-for-byte")
	return cmd
}
