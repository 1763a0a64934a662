// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

//go:build windows

package process

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
)

const createNoWindow = 0x08000000

// configure hides the console window and puts the child in a new process
// group.
func configure(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: createNoWindow | syscall.CREATE_NEW_PROCESS_GROUP,
	}
}

// terminateTree asks the process tree to close.
func terminateTree(p *os.Process) error {
	return taskkill(p.Pid, false)
}

// killTree force-kills the process tree, falling back to killing the
// process alone when taskkill is unavailable.
func killTree(p *os.Process) error {
	if err := taskkill(p.Pid, true); err != nil {
		if kerr := p.Kill(); kerr != nil {
			return fmt.Errorf("%v; kill: %w", err, kerr)
		}
	}
	return nil
}

func taskkill(pid int, force bool) error {
	args := []string{"/T", "/PID", strconv.Itoa(pid)}
	if force {
		args = append([]string{"/F"}, args...)
	}
	cmd := exec.Command("taskkill", args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{HideWindow: true, CreationFlags: createNoWindow}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("taskkill: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
