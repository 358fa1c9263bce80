//go:build windows

package lifecycle

import "syscall"

func detached() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{}
}
