// Package harness wires the component packages (policy, sandboxprofile,
// ptysession, runner, driver, artifacts, replay) into the top-level
// operations spec §6 names: exec, run, driver, replay. Apart from
// OpenSession's allowed_executables check on the target command, it
// performs no validation or enforcement of its own — that belongs to the
// components — it only sequences them in the order spec §3's data-flow
// diagram describes.
package harness

import (
	"path/filepath"

	"github.com/lelanhus/ptybox/internal/clockwork"
	"github.com/lelanhus/ptybox/internal/harnesserr"
	"github.com/lelanhus/ptybox/internal/ids"
	"github.com/lelanhus/ptybox/internal/model"
	"github.com/lelanhus/ptybox/internal/policy"
	"github.com/lelanhus/ptybox/internal/ptysession"
	"github.com/lelanhus/ptybox/internal/sandboxprofile"
)

// Target describes the command to run, independent of whether it is driven
// by a single exec, a scenario, or the driver loop.
type Target struct {
	Command     string
	Args        []string
	InitialSize model.Size
}

// OpenSession checks sandbox availability, generates the sandbox profile,
// builds the child environment from eff.Env, and spawns the session. The
// returned SandboxProfile is informational only (for artifacts); this
// package does not itself enforce it — spec §4.2 treats enforcement as a
// platform-backend concern exercised by sandboxprofile.CheckAvailability.
// anchor must be the same Anchored the caller uses for the run's own
// started_at_ms/ended_at_ms, so the session's Observation.timestamp_ms
// shares the run's timebase (spec §3).
func OpenSession(eff policy.EffectivePolicy, target Target, runID string, anchor *clockwork.Anchored) (*ptysession.Session, sandboxprofile.SandboxProfile, error) {
	backend := sandboxprofile.NewBackend()
	if err := sandboxprofile.CheckAvailability(eff, backend); err != nil {
		return nil, sandboxprofile.SandboxProfile{}, err
	}
	profile := sandboxprofile.Generate(eff, target.Command)

	if !allowedExecutable(eff, target.Command) {
		return nil, sandboxprofile.SandboxProfile{}, harnesserr.New(harnesserr.KindPolicyDenied,
			"command is not in allowed_executables", map[string]any{"reason": "exec_not_allowed", "command": target.Command})
	}

	env := BuildEnv(eff.Env.Inherit, eff.Env.Allowlist, eff.Env.Set)
	size := target.InitialSize
	if size.Rows == 0 {
		size.Rows = 24
	}
	if size.Cols == 0 {
		size.Cols = 80
	}

	sess, err := ptysession.Spawn(ptysession.Config{
		Command:          target.Command,
		Args:             target.Args,
		CWD:              eff.FS.WorkingDir,
		InitialSize:      size,
		Env:              env,
		RunID:            runID,
		SessionID:        ids.Session(),
		MaxOutputBytes:   eff.Budgets.MaxOutputBytes,
		MaxSnapshotBytes: eff.Budgets.MaxSnapshotBytes,
	}, anchor)
	if err != nil {
		return nil, profile, err
	}
	return sess, profile, nil
}

func allowedExecutable(eff policy.EffectivePolicy, command string) bool {
	for _, allowed := range eff.Exec.AllowedExecutables {
		if filepath.Clean(allowed) == filepath.Clean(command) {
			return true
		}
	}
	return false
}
