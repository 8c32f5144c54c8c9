//go:build unix

package proctl

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func platformKill(pid int, name string) error {
	sig := unix.SignalNum(name)
	if sig == 0 {
		return fmt.Errorf("signal %s not available on this platform", name)
	}
	return unix.Kill(pid, sig)
}

func platformSetPriority(pid, nice int) error {
	return unix.Setpriority(unix.PRIO_PROCESS, pid, nice)
}
