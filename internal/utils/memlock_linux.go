//go:build linux

package utils

import "golang.org/x/sys/unix"

// LockMemory locks current and future pages of the process into RAM so the
// monitoring loop never stalls on a page fault.
func LockMemory() error {
	return unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE)
}
