//go:build darwin

package sandboxprofile

import "os/exec"

func platformName() string {
	return "macOS: requires Apple Containers (macOS 26+, 'container' CLI)"
}

// darwinBackend probes for the Apple Containers CLI the way the teacher's
// sandbox/apple.go newPlatform does.
type darwinBackend struct{}

// NewBackend returns the Darwin sandbox backend.
func NewBackend() Backend { return darwinBackend{} }

func (darwinBackend) Probe() Availability {
	if _, err := exec.LookPath("container"); err != nil {
		return Unavailable
	}
	return Available
}
