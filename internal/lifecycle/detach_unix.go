//go:build !windows

package lifecycle

import "syscall"

// detached puts the worker in its own session so it is not killed with the
// dashboard's process group.
func detached() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
