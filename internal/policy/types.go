// Package policy implements the deny-by-default configuration model (spec
// §3, §4.1): typed configuration, validation in a fixed deterministic order,
// acknowledgement gates, and path canonicalization. It is modeled on the
// teacher's internal/egg/config.go (YAML-with-JSON-alias documents)
// generalized from "agent sandbox config" to the harness's full Policy
// entity. Fields decode through plain struct tags; list fields do not
// accept a bare scalar.
package policy

// SandboxMode selects whether the run is isolated by a platform sandbox.
type SandboxMode string

const (
	SandboxIsolated SandboxMode = "isolated"
	SandboxNone     SandboxMode = "none"
)

// NetworkMode gates outbound network access for the child process.
type NetworkMode string

const (
	NetworkDisabled NetworkMode = "disabled"
	NetworkEnabled  NetworkMode = "enabled"
)

// FSPolicy controls filesystem visibility.
type FSPolicy struct {
	AllowedRead  []string `json:"allowed_read,omitempty" yaml:"allowed_read,omitempty"`
	AllowedWrite []string `json:"allowed_write,omitempty" yaml:"allowed_write,omitempty"`
	WorkingDir   string   `json:"working_dir" yaml:"working_dir"`
}

// ExecPolicy controls which binaries may be spawned.
type ExecPolicy struct {
	AllowedExecutables []string `json:"allowed_executables,omitempty" yaml:"allowed_executables,omitempty"`
	AllowShell         bool     `json:"allow_shell,omitempty" yaml:"allow_shell,omitempty"`
}

// EnvPolicy controls the child process's environment (spec §4.3: built from
// inherit, then allowlist, then set — set wins).
type EnvPolicy struct {
	Allowlist []string          `json:"allowlist,omitempty" yaml:"allowlist,omitempty"`
	Set       map[string]string `json:"set,omitempty" yaml:"set,omitempty"`
	Inherit   bool              `json:"inherit,omitempty" yaml:"inherit,omitempty"`
}

// Budgets bounds every suspension point and resource consumer (spec §5).
type Budgets struct {
	MaxRuntimeMS      int64 `json:"max_runtime_ms,omitempty" yaml:"max_runtime_ms,omitempty"`
	MaxSteps          int64 `json:"max_steps,omitempty" yaml:"max_steps,omitempty"`
	MaxOutputBytes    int64 `json:"max_output_bytes,omitempty" yaml:"max_output_bytes,omitempty"`
	MaxSnapshotBytes  int64 `json:"max_snapshot_bytes,omitempty" yaml:"max_snapshot_bytes,omitempty"`
	MaxWaitMS         int64 `json:"max_wait_ms,omitempty" yaml:"max_wait_ms,omitempty"`
}

// ArtifactsPolicy controls whether/where a run's artifact bundle is written.
type ArtifactsPolicy struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	Dir       string `json:"dir,omitempty" yaml:"dir,omitempty"`
	Overwrite bool   `json:"overwrite,omitempty" yaml:"overwrite,omitempty"`
}

// NormalizationRuleTarget selects what a NormalizationRule rewrites.
type NormalizationRuleTarget string

const (
	NormalizeTranscript    NormalizationRuleTarget = "transcript"
	NormalizeSnapshotLines NormalizationRuleTarget = "snapshot_lines"
)

// NormalizationRule is a regex replacement applied before replay comparison.
type NormalizationRule struct {
	Target      NormalizationRuleTarget `json:"target" yaml:"target"`
	Pattern     string                  `json:"pattern" yaml:"pattern"`
	Replacement string                  `json:"replacement" yaml:"replacement"`
}

// ReplayPolicy configures the replay comparator's normalization behavior.
type ReplayPolicy struct {
	Strict                bool                `json:"strict,omitempty" yaml:"strict,omitempty"`
	NormalizationFilters  []string            `json:"normalization_filters,omitempty" yaml:"normalization_filters,omitempty"`
	NormalizationRules    []NormalizationRule `json:"normalization_rules,omitempty" yaml:"normalization_rules,omitempty"`
}

// Policy is the deny-by-default configuration owned by one run (spec §3).
type Policy struct {
	PolicyVersion    int             `json:"policy_version" yaml:"policy_version"`
	Sandbox          SandboxMode     `json:"sandbox" yaml:"sandbox"`
	SandboxUnsafeAck bool            `json:"sandbox_unsafe_ack,omitempty" yaml:"sandbox_unsafe_ack,omitempty"`
	Network          NetworkMode     `json:"network" yaml:"network"`
	NetworkUnsafeAck bool            `json:"network_unsafe_ack,omitempty" yaml:"network_unsafe_ack,omitempty"`
	FSWriteUnsafeAck bool            `json:"fs_write_unsafe_ack,omitempty" yaml:"fs_write_unsafe_ack,omitempty"`
	FSStrictWrite    bool            `json:"fs_strict_write,omitempty" yaml:"fs_strict_write,omitempty"`
	FS               FSPolicy        `json:"fs" yaml:"fs"`
	Exec             ExecPolicy      `json:"exec" yaml:"exec"`
	Env              EnvPolicy       `json:"env" yaml:"env"`
	Budgets          Budgets         `json:"budgets" yaml:"budgets"`
	Artifacts        ArtifactsPolicy `json:"artifacts" yaml:"artifacts"`
	Replay           ReplayPolicy    `json:"replay" yaml:"replay"`
}

// EffectivePolicy is a Policy after validation and canonicalization: every
// path is absolute with `.`/`..` and symlinks resolved. Used throughout the
// run in place of the caller-supplied Policy.
type EffectivePolicy struct {
	Policy
}

// HostInfo supplies the host-specific facts the validator needs to reject
// paths that resolve to filesystem root, the invoking user's home, or a
// known system root prefix.
type HostInfo struct {
	Home        string
	TempDir     string
	SystemRoots []string
}
