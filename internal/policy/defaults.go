package policy

// DefaultPolicy returns the driver loop's deny-by-default policy (spec
// §4.8): sandbox isolation, network disabled, no filesystem or environment
// grants beyond the single target executable, and every acknowledgement
// off. Callers still run it through Validate — this only builds the
// request, it does not bypass the invariants.
func DefaultPolicy(command, workingDir string) Policy {
	return Policy{
		PolicyVersion: 4,
		Sandbox:       SandboxIsolated,
		Network:       NetworkDisabled,
		FS:            FSPolicy{WorkingDir: workingDir},
		Exec:          ExecPolicy{AllowedExecutables: []string{command}},
		Budgets: Budgets{
			MaxRuntimeMS:     60_000,
			MaxSteps:         1000,
			MaxOutputBytes:   10 << 20,
			MaxSnapshotBytes: 1 << 20,
			MaxWaitMS:        30_000,
		},
		Artifacts: ArtifactsPolicy{Enabled: false},
	}
}
