//go:build !linux

package gcs

import (
	"errors"
	"os"
)

// openTmpFile is unsupported outside Linux; callers fall back to a named temp file.
func openTmpFile(dir string) (*os.File, error) {
	return nil, errors.ErrUnsupported
}
