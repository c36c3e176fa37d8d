package policy

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/lelanhus/ptybox/internal/harnesserr"
)

// Validator runs the fixed-order invariant checks of spec §4.1. The zero
// value is usable; AcceptedVersions defaults to DefaultAcceptedVersions and
// EvalSymlinks defaults to filepath.EvalSymlinks.
type Validator struct {
	AcceptedVersions map[int]bool
	EvalSymlinks     func(string) (string, error)
}

// NewValidator returns a Validator wired to the real filesystem.
func NewValidator() *Validator {
	return &Validator{
		AcceptedVersions: DefaultAcceptedVersions,
		EvalSymlinks:     filepath.EvalSymlinks,
	}
}

func denied(reason, message string, ctx map[string]any) *harnesserr.Error {
	if ctx == nil {
		ctx = map[string]any{}
	}
	ctx["reason"] = reason
	return harnesserr.New(harnesserr.KindPolicyDenied, message, ctx)
}

// Validate runs every invariant from spec §3 in the deterministic order
// spec §4.1 specifies, returning the first failure. On success it returns
// an EffectivePolicy with every path attribute canonicalized.
func (v *Validator) Validate(p Policy, host HostInfo) (EffectivePolicy, error) {
	accepted := v.AcceptedVersions
	if accepted == nil {
		accepted = DefaultAcceptedVersions
	}
	evalSymlinks := v.EvalSymlinks
	if evalSymlinks == nil {
		evalSymlinks = filepath.EvalSymlinks
	}

	// 1. Version check.
	if !accepted[p.PolicyVersion] {
		return EffectivePolicy{}, denied("unsupported_policy_version",
			fmt.Sprintf("policy_version %d is not in the accepted set", p.PolicyVersion),
			map[string]any{"policy_version": p.PolicyVersion})
	}

	eff := p

	// 2. Path canonicalization (every path attribute).
	pathFields := collectPathFields(&eff)
	canon := make(map[string]string, len(pathFields))
	for _, pf := range pathFields {
		if *pf.value == "" {
			continue
		}
		c, err := canonicalize(*pf.value, evalSymlinks)
		if err != nil {
			return EffectivePolicy{}, denied("canonicalize_failed", err.Error(),
				map[string]any{"path": *pf.value, "field": pf.name})
		}
		canon[pf.name+":"+*pf.value] = c
		*pf.value = c
	}

	// 3. Absolute-path checks (canonicalize leaves a relative input
	// relative, so it is caught here with the offending path in context).
	for _, pf := range pathFields {
		if *pf.value == "" {
			continue
		}
		if !filepath.IsAbs(*pf.value) {
			return EffectivePolicy{}, denied("path_not_absolute",
				fmt.Sprintf("%s must be absolute", pf.name),
				map[string]any{"path": *pf.value, "field": pf.name})
		}
	}

	// 4. Forbidden-root checks.
	for _, pf := range pathFields {
		if *pf.value == "" {
			continue
		}
		if isForbiddenRoot(*pf.value, host) {
			return EffectivePolicy{}, denied("forbidden_root",
				fmt.Sprintf("%s may not resolve to a forbidden root", pf.name),
				map[string]any{"path": *pf.value, "field": pf.name})
		}
	}

	// 5. Acknowledgement checks.
	if eff.Sandbox == SandboxNone && !eff.SandboxUnsafeAck {
		return EffectivePolicy{}, denied("missing_sandbox_ack",
			"sandbox=none requires sandbox_unsafe_ack=true", nil)
	}
	if eff.Network == NetworkEnabled && !eff.NetworkUnsafeAck {
		return EffectivePolicy{}, denied("missing_network_ack",
			"network=enabled requires network_unsafe_ack=true", nil)
	}
	if eff.Sandbox == SandboxNone && !eff.NetworkUnsafeAck {
		return EffectivePolicy{}, denied("missing_network_ack",
			"sandbox=none requires network_unsafe_ack=true regardless of network mode, because the sandbox is the only enforcement surface", nil)
	}
	if len(eff.FS.AllowedWrite) > 0 && !eff.FSWriteUnsafeAck {
		return EffectivePolicy{}, denied("missing_write_ack",
			"non-empty allowed_write requires fs_write_unsafe_ack=true", nil)
	}
	if eff.FSStrictWrite && !eff.FSWriteUnsafeAck {
		return EffectivePolicy{}, denied("missing_write_ack",
			"fs_strict_write=true requires fs_write_unsafe_ack=true", nil)
	}

	// 6. Containment checks.
	if eff.FS.WorkingDir == "" {
		return EffectivePolicy{}, denied("missing_working_dir", "working_dir is required", nil)
	}
	if !anyContains(eff.FS.AllowedRead, eff.FS.WorkingDir) && !anyContains(eff.FS.AllowedWrite, eff.FS.WorkingDir) {
		return EffectivePolicy{}, denied("working_dir_escapes_roots",
			"working_dir must lie inside some allowed_read or allowed_write root",
			map[string]any{"path": eff.FS.WorkingDir})
	}
	if eff.Artifacts.Enabled {
		if eff.Artifacts.Dir == "" {
			return EffectivePolicy{}, denied("missing_artifacts_dir", "artifacts.dir is required when artifacts.enabled", nil)
		}
		if !filepath.IsAbs(eff.Artifacts.Dir) {
			return EffectivePolicy{}, denied("path_not_absolute", "artifacts.dir must be absolute",
				map[string]any{"path": eff.Artifacts.Dir})
		}
		if !anyContains(eff.FS.AllowedWrite, eff.Artifacts.Dir) {
			return EffectivePolicy{}, denied("artifacts_dir_escapes_write_root",
				"artifacts.dir must lie inside allowed_write",
				map[string]any{"path": eff.Artifacts.Dir})
		}
	}

	// 7. Exec allowlist syntax.
	for _, exe := range eff.Exec.AllowedExecutables {
		if !filepath.IsAbs(exe) {
			return EffectivePolicy{}, denied("exec_not_absolute",
				"allowed_executables entries must be absolute", map[string]any{"path": exe})
		}
		if containsMetacharacter(exe) {
			return EffectivePolicy{}, denied("unsafe_path_metacharacter",
				"allowed_executables entry contains a sandbox DSL metacharacter", map[string]any{"path": exe})
		}
	}
	for _, pf := range pathFields {
		if *pf.value == "" {
			continue
		}
		if containsMetacharacter(*pf.value) {
			return EffectivePolicy{}, denied("unsafe_path_metacharacter",
				fmt.Sprintf("%s contains a sandbox DSL metacharacter", pf.name),
				map[string]any{"path": *pf.value, "field": pf.name})
		}
	}

	// 8. Symlink checks on policy paths: reject symlinks outside a small
	// allowlist of OS-managed paths (the canonical temp directory).
	for _, pf := range pathFields {
		if *pf.value == "" {
			continue
		}
		if linkTarget, isLink := readSymlink(*pf.value); isLink {
			if !isPrefixPath(host.TempDir, linkTarget) {
				return EffectivePolicy{}, denied("unsafe_symlink",
					fmt.Sprintf("%s resolves through a symlink outside the allowed temp-dir allowlist", pf.name),
					map[string]any{"path": *pf.value, "field": pf.name, "link_target": linkTarget})
			}
		}
	}

	return EffectivePolicy{Policy: eff}, nil
}

func readSymlink(path string) (target string, isLink bool) {
	info, err := os.Lstat(path)
	if err != nil || info.Mode()&os.ModeSymlink == 0 {
		return "", false
	}
	target, err = os.Readlink(path)
	if err != nil {
		return "", false
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(path), target)
	}
	return filepath.Clean(target), true
}

func anyContains(roots []string, path string) bool {
	for _, r := range roots {
		if r != "" && isPrefixPath(r, path) {
			return true
		}
	}
	return false
}

type pathField struct {
	name  string
	value *string
}

// collectPathFields returns every path-bearing attribute of p that the
// invariants in spec §3 require to be absolute and canonicalized.
func collectPathFields(p *Policy) []pathField {
	fields := []pathField{
		{"fs.working_dir", &p.FS.WorkingDir},
		{"artifacts.dir", &p.Artifacts.Dir},
	}
	for i := range p.FS.AllowedRead {
		fields = append(fields, pathField{"fs.allowed_read", &p.FS.AllowedRead[i]})
	}
	for i := range p.FS.AllowedWrite {
		fields = append(fields, pathField{"fs.allowed_write", &p.FS.AllowedWrite[i]})
	}
	return fields
}
