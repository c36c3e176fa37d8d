//go:build linux

package sandboxprofile

import (
	"os"
	"os/exec"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

func platformName() string {
	return "linux: requires root or CAP_SYS_ADMIN (try: sudo setcap cap_sys_admin+ep /path/to/binary)"
}

// linuxBackend probes for user/mount-namespace capability the way the
// teacher's sandbox/linux.go hasNamespaceCapability does: root, then
// CAP_SYS_ADMIN via capget, then the unprivileged_userns_clone sysctl, then
// (as a last resort) an actual trial namespace creation.
type linuxBackend struct{}

// NewBackend returns the Linux sandbox backend.
func NewBackend() Backend { return linuxBackend{} }

func (linuxBackend) Probe() Availability {
	if hasNamespaceCapability() {
		return Available
	}
	return Unavailable
}

func hasNamespaceCapability() bool {
	if os.Geteuid() == 0 {
		return true
	}
	var hdr unix.CapUserHeader
	var data unix.CapUserData
	hdr.Version = unix.LINUX_CAPABILITY_VERSION_1
	hdr.Pid = 0
	if err := unix.Capget(&hdr, &data); err == nil {
		if data.Effective&(1<<unix.CAP_SYS_ADMIN) != 0 {
			return true
		}
	}
	if val, err := os.ReadFile("/proc/sys/kernel/unprivileged_userns_clone"); err == nil {
		return strings.TrimSpace(string(val)) == "1"
	}
	return probeUserNamespace()
}

// probeUserNamespace spawns a trivial child in a new user namespace to test
// support when no sysctl is present (e.g. WSL2, non-Debian kernels).
func probeUserNamespace() bool {
	cmd := exec.Command("true")
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Cloneflags: syscall.CLONE_NEWUSER,
		UidMappings: []syscall.SysProcIDMap{{
			ContainerID: os.Getuid(),
			HostID:      os.Getuid(),
			Size:        1,
		}},
		GidMappings: []syscall.SysProcIDMap{{
			ContainerID: os.Getgid(),
			HostID:      os.Getgid(),
			Size:        1,
		}},
	}
	return cmd.Run() == nil
}
