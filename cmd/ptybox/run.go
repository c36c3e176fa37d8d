package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/lelanhus/ptybox/internal/clockwork"
	"github.com/lelanhus/ptybox/internal/harness"
	"github.com/lelanhus/ptybox/internal/policy"
	"github.com/lelanhus/ptybox/internal/replay"
)

func runCmd() *cobra.Command {
	var policyPath, scenarioPath, artifactsDir string

	cmd := &cobra.Command{
		Use:   "run --scenario <path>",
		Short: "Run a scenario document to completion, asserting each step (spec scenario runner)",
		RunE: func(cmd *cobra.Command, args []string) error {
			scenario, err := loadScenario(scenarioPath)
			if err != nil {
				return err
			}

			pol, err := loadPolicy(policyPath, scenario.RunConfig.Command, mustGetwd())
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

			result, runErr := harness.RunScenario(context.Background(), eff, scenario, rec, clockwork.System{})
			resolved := replay.Resolve(nil, nil, nil, pol.Replay)
			if err := rec.Finalize(result, pol, &scenario, resolved); err != nil {
				return err
			}
			if err := printJSON(result); err != nil {
				return err
			}
			return runErr
		},
	}
	cmd.Flags().StringVar(&scenarioPath, "scenario", "", "Scenario document (JSON or YAML)")
	cmd.Flags().StringVar(&policyPath, "policy", "", "Policy document (JSON or YAML); deny-by-default if omitted")
	cmd.Flags().StringVar(&artifactsDir, "artifacts-dir", "", "Write an artifacts bundle here")
	cmd.MarkFlagRequired("scenario")
	return cmd
}
