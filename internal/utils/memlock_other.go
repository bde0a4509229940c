//go:build !linux

package utils

import "errors"

// LockMemory is only supported on linux.
func LockMemory() error {
	return errors.New("memory locking is not supported on this platform")
}
