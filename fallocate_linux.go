//go:build linux

package gcs

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// reserveExtent reserves disk blocks for length bytes at offset without
// changing the file size, so a full disk fails here rather than mid-write.
// Filesystems without fallocate support are not an error.
func reserveExtent(file *os.File, offset, length int64) error {
	if length <= 0 {
		return nil
	}
	err := unix.Fallocate(int(file.Fd()), unix.FALLOC_FL_KEEP_SIZE, offset, length)
	if errors.Is(err, unix.ENOSPC) {
		return err
	}
	return nil
}
