//go:build !linux && !darwin

package gcs

import "os"

// reserveExtent is a no-op on platforms without native fallocate.
// Space exhaustion surfaces from the write itself.
func reserveExtent(file *os.File, offset, length int64) error {
	return nil
}
