//go:build darwin

package gcs

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// reserveExtent reserves disk blocks for length bytes past the current end
// of file. On macOS, uses fcntl F_PREALLOCATE; the file size is unchanged.
func reserveExtent(file *os.File, offset, length int64) error {
	if length <= 0 {
		return nil
	}
	// F_PREALLOCATE with F_ALLOCATEALL - allocate all requested space or fail
	fst := unix.Fstore_t{
		Flags:   unix.F_ALLOCATEALL,
		Posmode: unix.F_PEOFPOSMODE,
		Offset:  0,
		Length:  length,
	}

	err := unix.FcntlFstore(file.Fd(), unix.F_PREALLOCATE, &fst)
	if errors.Is(err, unix.ENOSPC) {
		return err
	}
	return nil
}
