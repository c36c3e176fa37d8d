package sandboxprofile

import (
	"testing"

	"github.com/lelanhus/ptybox/internal/harnesserr"
	"github.com/lelanhus/ptybox/internal/policy"
)

type fakeBackend struct{ avail Availability }

func (f fakeBackend) Probe() Availability { return f.avail }

func TestGenerate(t *testing.T) {
	eff := policy.EffectivePolicy{Policy: policy.Policy{
		Sandbox: policy.SandboxIsolated,
		Network: policy.NetworkEnabled,
		FS: policy.FSPolicy{
			AllowedRead:  []string{"/usr/lib"},
			AllowedWrite: []string{"/tmp/work"},
			WorkingDir:   "/tmp/work",
		},
	}}

	got := Generate(eff, "/usr/bin/vim")

	if got.Executable != "/usr/bin/vim" {
		t.Errorf("Executable = %q, want /usr/bin/vim", got.Executable)
	}
	if got.WorkingDir != "/tmp/work" {
		t.Errorf("WorkingDir = %q, want /tmp/work", got.WorkingDir)
	}
	if !got.NetworkAllowed {
		t.Error("NetworkAllowed = false, want true")
	}
	if len(got.Mounts) != 2 {
		t.Fatalf("len(Mounts) = %d, want 2", len(got.Mounts))
	}
	if got.Mounts[0].Path != "/usr/lib" || !got.Mounts[0].ReadOnly {
		t.Errorf("Mounts[0] = %+v, want read-only /usr/lib", got.Mounts[0])
	}
	if got.Mounts[1].Path != "/tmp/work" || got.Mounts[1].ReadOnly {
		t.Errorf("Mounts[1] = %+v, want writable /tmp/work", got.Mounts[1])
	}
}

func TestGenerate_NetworkDisabled(t *testing.T) {
	eff := policy.EffectivePolicy{Policy: policy.Policy{Network: policy.NetworkDisabled}}
	got := Generate(eff, "/bin/sh")
	if got.NetworkAllowed {
		t.Error("NetworkAllowed = true, want false")
	}
}

func TestCheckAvailability_NotRequired(t *testing.T) {
	eff := policy.EffectivePolicy{Policy: policy.Policy{Sandbox: policy.SandboxNone}}
	if err := CheckAvailability(eff, fakeBackend{avail: Unavailable}); err != nil {
		t.Errorf("CheckAvailability() = %v, want nil when sandbox is none", err)
	}
}

func TestCheckAvailability_Available(t *testing.T) {
	eff := policy.EffectivePolicy{Policy: policy.Policy{Sandbox: policy.SandboxIsolated}}
	if err := CheckAvailability(eff, fakeBackend{avail: Available}); err != nil {
		t.Errorf("CheckAvailability() = %v, want nil when backend is available", err)
	}
}

func TestCheckAvailability_Unavailable(t *testing.T) {
	eff := policy.EffectivePolicy{Policy: policy.Policy{Sandbox: policy.SandboxIsolated}}
	err := CheckAvailability(eff, fakeBackend{avail: Unavailable})
	if err == nil {
		t.Fatal("CheckAvailability() = nil, want SandboxUnavailable error")
	}
	var herr *harnesserr.Error
	if !harnesserr.As(err, &herr) {
		t.Fatalf("error is not *harnesserr.Error: %v", err)
	}
	if herr.Kind != harnesserr.KindSandboxUnavailable {
		t.Errorf("Kind = %q, want %q", herr.Kind, harnesserr.KindSandboxUnavailable)
	}
}
