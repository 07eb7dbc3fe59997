package ioctl

import (
	"fmt"
	"syscall"
)

// Call does a plain ioctl system call on fd.
func Call(fd, command, arg uintptr) error {
	if _, _, errno := syscall.Syscall(syscall.SYS_IOCTL, fd, command, arg); errno != 0 {
		return fmt.Errorf("%s: %w", Command(command), errno)
	}
	return nil
}
