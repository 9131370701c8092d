//go:build linux

package gcs

import (
	"os"

	"golang.org/x/sys/unix"
)

// openTmpFile creates an O_TMPFILE anonymous file in dir. The file has no
// name and is reclaimed by the kernel when closed.
// Returns an error if O_TMPFILE is not supported (Linux < 3.11, some filesystems).
func openTmpFile(dir string) (*os.File, error) {
	fd, err := unix.Open(dir, unix.O_RDWR|unix.O_TMPFILE|unix.O_CLOEXEC, 0600)
	if err != nil {
		return nil, err
	}
	return os.NewFile(uintptr(fd), ""), nil
}
