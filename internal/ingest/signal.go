package ingest

import (
	"errors"
	"syscall"
)

// processControl delivers termination signals to a relay's process group.
// Both methods treat an already-exited process as success.
type processControl interface {
	Interrupt(pid int) error
	Kill(pid int) error
}

// signalControl signals the process group created via Setpgid, falling back
// to the single process when the pid is not a group leader.
type signalControl struct{}

func (signalControl) Interrupt(pid int) error {
	return signalGroup(pid, syscall.SIGINT)
}

func (signalControl) Kill(pid int) error {
	return signalGroup(pid, syscall.SIGKILL)
}

func signalGroup(pid int, sig syscall.Signal) error {
	err := syscall.Kill(-pid, sig)
	if errors.Is(err, syscall.ESRCH) {
		err = syscall.Kill(pid, sig)
	}
	if errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return err
}
