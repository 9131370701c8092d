//go:build !linux

package gcs

// adviseWillNeed is a no-op on non-Linux platforms.
func adviseWillNeed(mapping []byte, from int) {}
