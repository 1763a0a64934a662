// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package process

import (
	"io"
	"log/slog"
	"time"
)

// Terminate stops h and its descendants: a graceful request first, then a
// forced kill if the process is still alive after grace. Errors are
// logged and never returned, so shutdown paths can always proceed.
func Terminate(h *Handle, grace time.Duration, logger *slog.Logger) {
	if h == nil || h.Exited() {
		return
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	pid := h.Pid()

	if err := terminateTree(h.cmd.Process); err != nil {
		logger.Warn("Graceful termination failed", slog.Int("pid", pid), slog.String("error", err.Error()))
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-h.done:
		logger.Info("Child process terminated", slog.Int("pid", pid))
		return
	case <-timer.C:
	}

	logger.Warn("Child process did not exit, forcing kill", slog.Int("pid", pid), slog.Duration("grace", grace))
	if err := killTree(h.cmd.Process); err != nil {
		logger.Error("Force kill failed", slog.Int("pid", pid), slog.String("error", err.Error()))
	}
}

// TerminateCurrent terminates the tracker's current process, if any.
func (t *Tracker) TerminateCurrent(grace time.Duration, logger *slog.Logger) {
	Terminate(t.Current(), grace, logger)
}
