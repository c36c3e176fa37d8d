// Package sandboxprofile generates a host-specific isolation profile from an
// EffectivePolicy and probes whether the host can actually enforce it (spec
// §4.2). It is modeled on the teacher's internal/sandbox package: a platform
// interface with Linux (namespace-capability probe) and Darwin (Apple
// Containers) backends, generalized from "spawn an AI agent" to "spawn the
// policy's target command".
package sandboxprofile

import (
	"github.com/lelanhus/ptybox/internal/harnesserr"
	"github.com/lelanhus/ptybox/internal/policy"
)

// Mount describes one filesystem path the profile grants access to.
type Mount struct {
	Path     string `json:"path"`
	ReadOnly bool   `json:"read_only"`
}

// SandboxProfile describes the isolation derived from a policy: mounts,
// network capability, executable and working directory. It never claims to
// BE the enforcement. On Darwin, MountSpecs and DenyTmpfsArgs render it into
// Apple Containers flag syntax; the Linux backend only probes for namespace
// capability and has no renderer for the profile.
type SandboxProfile struct {
	Mounts         []Mount  `json:"mounts"`
	DenyPaths      []string `json:"deny_paths,omitempty"`
	NetworkAllowed bool     `json:"network_allowed"`
	Executable     string   `json:"executable"`
	WorkingDir     string   `json:"working_dir"`
}

// Availability reports whether a platform backend can actually enforce a
// requested sandbox. There is no "degraded" state — a backend is either
// Available or it isn't (spec §4.2: "never a silent downgrade").
type Availability string

const (
	Available   Availability = "available"
	Unavailable Availability = "unavailable"
)

// Backend is the per-platform sandbox implementation.
type Backend interface {
	// Probe reports whether this host can provide the backend's isolation.
	// The Linux backend checks root, CAP_SYS_ADMIN, the
	// unprivileged_userns_clone sysctl, then a trial user namespace; the
	// Darwin backend only checks that the `container` CLI is on PATH. No
	// backend runs a sandboxed command with a trial profile.
	Probe() Availability
}

// Generate builds a SandboxProfile from an effective policy. It never
// itself decides whether isolation is possible — call CheckAvailability first
// when eff.Sandbox is isolated, and treat an Unavailable host as an error
// per spec §4.2, not as a reason to generate a degraded profile.
func Generate(eff policy.EffectivePolicy, executable string) SandboxProfile {
	var mounts []Mount
	for _, r := range eff.FS.AllowedRead {
		mounts = append(mounts, Mount{Path: r, ReadOnly: true})
	}
	for _, w := range eff.FS.AllowedWrite {
		mounts = append(mounts, Mount{Path: w, ReadOnly: false})
	}
	return SandboxProfile{
		Mounts:         mounts,
		NetworkAllowed: eff.Network == policy.NetworkEnabled,
		Executable:     executable,
		WorkingDir:     eff.FS.WorkingDir,
	}
}

// CheckAvailability probes backend and returns SandboxUnavailable when the
// policy requires isolation but the host cannot provide it.
func CheckAvailability(eff policy.EffectivePolicy, backend Backend) error {
	if eff.Sandbox != policy.SandboxIsolated {
		return nil
	}
	if backend.Probe() == Available {
		return nil
	}
	return harnesserr.New(harnesserr.KindSandboxUnavailable,
		"requested sandbox isolation is not available on this host",
		map[string]any{"platform": platformName()})
}
