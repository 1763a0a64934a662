// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package process

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// preflightTimeout bounds the "--version" probe.
const preflightTimeout = 5 * time.Second

// ErrNotInstalled means the converter is missing from PATH or does not
// answer a version query.
var ErrNotInstalled = errors.New("converter is not installed or not in PATH")

// prober abstracts the version probe for testing.
type prober interface {
	LookPath(file string) (string, error)
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// osProber is the production prober backed by os/exec.
type osProber struct{}

func (osProber) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (osProber) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	configure(cmd)
	return cmd.Output()
}

// CheckInstalled verifies that exe is on PATH and answers "--version"
// within five seconds. It returns the first line of the version output.
func CheckInstalled(ctx context.Context, exe string) (string, error) {
	return checkInstalled(ctx, osProber{}, exe)
}

func checkInstalled(ctx context.Context, p prober, exe string) (string, error) {
	path, err := p.LookPath(exe)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrNotInstalled, exe, err)
	}

	ctx, cancel := context.WithTimeout(ctx, preflightTimeout)
	defer cancel()

	out, err := p.Output(ctx, path, "--version")
	if err != nil {
		return "", fmt.Errorf("%w: %s --version: %v", ErrNotInstalled, exe, err)
	}

	first, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	return strings.TrimSpace(first), nil
}
