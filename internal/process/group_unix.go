// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

//go:build !windows

package process

import (
	"os"
	"os/exec"
	"syscall"
)

// configure starts the child as the leader of a new process group so the
// group can be signalled as a unit.
func configure(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func terminateTree(p *os.Process) error {
	return signalGroup(p, syscall.SIGTERM)
}

func killTree(p *os.Process) error {
	return signalGroup(p, syscall.SIGKILL)
}

func signalGroup(p *os.Process, sig syscall.Signal) error {
	if err := syscall.Kill(-p.Pid, sig); err != nil {
		if err == syscall.ESRCH {
			return nil
		}
		// Fall back to the process itself if the group is gone.
		return p.Signal(sig)
	}
	return nil
}
