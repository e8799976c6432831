//go:build unix

package health

import "golang.org/x/sys/unix"

// processAlive sends signal 0, which checks for existence without
// delivering anything.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || err == unix.EPERM
}
