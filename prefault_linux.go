//go:build linux

package gcs

import (
	"os"

	"golang.org/x/sys/unix"
)

// adviseWillNeed asks the kernel to read ahead mapping[from:], the index
// and footer of an opened filter. from is rounded down to a page boundary.
// Best-effort: errors are ignored.
func adviseWillNeed(mapping []byte, from int) {
	from &^= os.Getpagesize() - 1
	if from < 0 || from >= len(mapping) {
		return
	}
	_ = unix.Madvise(mapping[from:], unix.MADV_WILLNEED)
}
