package policy

// Decision is one line of a PolicyReport: a single capability and whether
// this policy allows it, without actually executing anything.
type Decision struct {
	Capability string `json:"capability"`
	Allowed    bool   `json:"allowed"`
	Reason     string `json:"reason,omitempty"`
}

// PolicyReport is the structured output of Explain — for human review, not
// enforcement (enforcement is Validate's job).
type PolicyReport struct {
	Decisions []Decision `json:"decisions"`
}

// Explain returns the allow/deny posture of p without executing anything,
// so a caller can review a policy before spending a run on it.
func Explain(p Policy) PolicyReport {
	var decisions []Decision

	decisions = append(decisions, Decision{
		Capability: "sandbox",
		Allowed:    p.Sandbox == SandboxIsolated,
		Reason:     string(p.Sandbox),
	})
	decisions = append(decisions, Decision{
		Capability: "network",
		Allowed:    p.Network == NetworkEnabled,
		Reason:     string(p.Network),
	})
	decisions = append(decisions, Decision{
		Capability: "filesystem_write",
		Allowed:    len(p.FS.AllowedWrite) > 0,
		Reason:     boolReason(len(p.FS.AllowedWrite) > 0, "allowed_write is non-empty", "allowed_write is empty"),
	})
	decisions = append(decisions, Decision{
		Capability: "shell_exec",
		Allowed:    p.Exec.AllowShell,
		Reason:     boolReason(p.Exec.AllowShell, "allow_shell=true", "allow_shell=false"),
	})
	decisions = append(decisions, Decision{
		Capability: "env_inherit",
		Allowed:    p.Env.Inherit,
		Reason:     boolReason(p.Env.Inherit, "inherit=true", "inherit=false"),
	})
	decisions = append(decisions, Decision{
		Capability: "artifacts",
		Allowed:    p.Artifacts.Enabled,
		Reason:     boolReason(p.Artifacts.Enabled, "artifacts.enabled=true", "artifacts.enabled=false"),
	})
	decisions = append(decisions, Decision{
		Capability: "replay_strict",
		Allowed:    p.Replay.Strict,
		Reason:     boolReason(p.Replay.Strict, "replay.strict=true", "replay.strict=false"),
	})

	return PolicyReport{Decisions: decisions}
}

func boolReason(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}
