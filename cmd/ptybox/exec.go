package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/lelanhus/ptybox/internal/artifacts"
	"github.com/lelanhus/ptybox/internal/clockwork"
	"github.com/lelanhus/ptybox/internal/harness"
	"github.com/lelanhus/ptybox/internal/model"
	"github.com/lelanhus/ptybox/internal/policy"
	"github.com/lelanhus/ptybox/internal/replay"
)

func execCmd() *cobra.Command {
	var policyPath, cwd, artifactsDir string
	var rows, cols int

	cmd := &cobra.Command{
		Use:   "exec -- <command> [args...]",
		Short: "Run a single command under a pseudo-terminal and report its final snapshot",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			command, rest := args[0], args[1:]
			if cwd == "" {
				cwd = mustGetwd()
			}

			pol, err := loadPolicy(policyPath, command, cwd)
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
			result, runErr := harness.RunExec(context.Background(), eff, target, rec, clockwork.System{})
			resolved := replay.Resolve(nil, nil, nil, pol.Replay)
			if err := rec.Finalize(result, pol, nil, resolved); err != nil {
				return err
			}
			if err := printJSON(result); err != nil {
				return err
			}
			return runErr
		},
	}
	cmd.Flags().StringVar(&policyPath, "policy", "", "Policy document (JSON or YAML); deny-by-default if omitted")
	cmd.Flags().StringVar(&cwd, "cwd", "", "Working directory (defaults to the current directory)")
	cmd.Flags().StringVar(&artifactsDir, "artifacts-dir", "", "Write an artifacts bundle here")
	cmd.Flags().IntVar(&rows, "rows", 24, "Initial terminal rows")
	cmd.Flags().IntVar(&cols, "cols", 80, "Initial terminal columns")
	return cmd
}

func recorderFor(eff policy.EffectivePolicy) (*harness.Recorder, error) {
	if !eff.Artifacts.Enabled {
		return harness.NewRecorder(nil), nil
	}
	w, err := artifacts.New(eff.Artifacts.Dir, eff.Artifacts.Overwrite)
	if err != nil {
		return nil, err
	}
	return harness.NewRecorder(w), nil
}
