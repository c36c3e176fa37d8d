//go:build !linux && !darwin

package sandboxprofile

func platformName() string {
	return "this platform has no sandbox backend available"
}

// otherBackend reports Unavailable unconditionally — the spec (§1 Non-goals)
// excludes Windows hosts and no other platform is in scope.
type otherBackend struct{}

// NewBackend returns the no-op backend for unsupported platforms.
func NewBackend() Backend { return otherBackend{} }

func (otherBackend) Probe() Availability { return Unavailable }
