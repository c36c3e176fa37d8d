package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/lelanhus/ptybox/internal/clockwork"
	"github.com/lelanhus/ptybox/internal/harness"
	"github.com/lelanhus/ptybox/internal/model"
	"github.com/lelanhus/ptybox/internal/policy"
	"github.com/lelanhus/ptybox/internal/replay"
)

func driverCmd() *cobra.Command {
	var policyPath, artifactsDir string
	var rows, cols int

	cmd := &cobra.Command{
		Use:   "driver -- <command> [args...]",
		Short: "Speak the NDJSON request/response protocol on stdin/stdout against a spawned command",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			command, rest := args[0], args[1:]

			pol, err := loadPolicy(policyPath, command, mustGetwd())
			if err != nil {
				return err
			}
			if artifactsDir != "" {
				pol.Artifacts.Enabled = true
				pol.Artifacts.Dir = artifactsDir
			}

			eff, err := policy.NewValidator().Validate(pol, hostInfo())
			if err != nil {
				return err
			}

			rec, err := recorderFor(eff)
			if err != nil {
				return err
			}

			target := harness.Target{Command: command, Args: rest, InitialSize: model.Size{Rows: rows, Cols: cols}}
			result, runErr := harness.RunDriver(context.Background(), eff, target, rec, clockwork.System{}, os.Stdin, os.Stdout)
			resolved := replay.Resolve(nil, nil, nil, pol.Replay)
			if err := rec.Finalize(result, pol, nil, resolved); err != nil {
				return err
			}
			return runErr
		},
	}
	cmd.Flags().StringVar(&policyPath, "policy", "", "Policy document (JSON or YAML); deny-by-default if omitted")
	cmd.Flags().StringVar(&artifactsDir, "artifacts-dir", "", "Write an artifacts bundle here")
	cmd.Flags().IntVar(&rows, "rows", 24, "Initial terminal rows")
	cmd.Flags().IntVar(&cols, "cols", 80, "Initial terminal columns")
	return cmd
}
