package common

import (
	"context"
	"os"

	"golang.org/x/sys/unix"
)

// Host exposes the parts of the running system that validation depends on.
type Host interface {
	Geteuid() int
	IsBlockDevice(path string) bool
	FileExists(path string) bool
}

// LocalHost is the Host backed by the running kernel.
type LocalHost struct{}

func (LocalHost) Geteuid() int {
	return unix.Geteuid()
}

func (LocalHost) IsBlockDevice(path string) bool {
	return BlockDeviceExists(path)
}

func (LocalHost) FileExists(path string) bool {
	return FileExists(path)
}

// IsRoot checks if running as root
func IsRoot(h Host) bool {
	return h.Geteuid() == 0
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// BlockDeviceExists reports whether path resolves to a block special file.
// Character devices such as /dev/null do not count.
func BlockDeviceExists(path string) bool {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return false
	}
	return st.Mode&unix.S_IFMT == unix.S_IFBLK
}

// IsMounted checks if a path is a mountpoint
func IsMounted(ctx context.Context, r Runner, path string) bool {
	_, err := r.Output(ctx, "mountpoint", "-q", path)
	return err == nil
}
