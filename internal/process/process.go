// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package process runs the external converter, captures its output, and
// terminates it (with its whole process group) on shutdown.
package process

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// DefaultGrace is how long Terminate waits after the graceful signal
// before force-killing.
const DefaultGrace = 5 * time.Second

// Result is the outcome of one converter invocation. Launch failures are
// reported with ExitCode -1 and the error text in Stderr.
type Result struct {
	Success  bool
	Stdout   string
	Stderr   string
	ExitCode int
}

// Handle is a running child process.
type Handle struct {
	cmd  *exec.Cmd
	done chan struct{}
}

// Pid returns the child's process id.
func (h *Handle) Pid() int { return h.cmd.Process.Pid }

// Exited reports whether the child has been reaped.
func (h *Handle) Exited() bool {
	select {
	case <-h.done:
		return true
	default:
	}
	return false
}

// Done is closed once the child has exited.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Tracker records the session's current child process so that shutdown
// can terminate it. It is written by worker goroutines and read by the
// control goroutine.
type Tracker struct {
	mu      sync.Mutex
	current *Handle
}

// Current returns the tracked process, or nil.
func (t *Tracker) Current() *Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

func (t *Tracker) set(h *Handle) {
	t.mu.Lock()
	t.current = h
	t.mu.Unlock()
}

func (t *Tracker) clear(h *Handle) {
	t.mu.Lock()
	if t.current == h {
		t.current = nil
	}
	t.mu.Unlock()
}

// Executor launches converter processes.
type Executor struct {
	tracker *Tracker
	grace   time.Duration
	logger  *slog.Logger
}

// NewExecutor returns an executor that reports its running child to
// tracker (which may be nil). A nil logger discards output.
func NewExecutor(tracker *Tracker, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Executor{
		tracker: tracker,
		grace:   DefaultGrace,
		logger:  logger.With(slog.String("component", "process")),
	}
}

// Run executes argv to completion with stdout and stderr captured. The
// child runs in its own process group without a console window. tempFile,
// when non-empty, is removed on every return path; a removal failure is
// logged only. Cancelling ctx terminates the child's process group.
func (e *Executor) Run(ctx context.Context, argv []string, tempFile string) Result {
	defer e.removeTemp(tempFile)

	if len(argv) == 0 {
		return Result{ExitCode: -1, Stderr: "empty command"}
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	configure(cmd)

	if err := cmd.Start(); err != nil {
		e.logger.Error("Converter launch failed", slog.String("command", argv[0]), slog.String("error", err.Error()))
		return Result{ExitCode: -1, Stderr: err.Error()}
	}

	h := &Handle{cmd: cmd, done: make(chan struct{})}
	if e.tracker != nil {
		e.tracker.set(h)
		defer e.tracker.clear(h)
	}

	stop := context.AfterFunc(ctx, func() {
		e.logger.Warn("Context cancelled, terminating converter", slog.Int("pid", h.Pid()))
		Terminate(h, e.grace, e.logger)
	})
	defer stop()

	waitErr := cmd.Wait()
	close(h.done)

	res := Result{
		Stdout:   decode(stdout.Bytes()),
		Stderr:   decode(stderr.Bytes()),
		ExitCode: cmd.ProcessState.ExitCode(),
	}
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		// I/O copy failure after a successful start.
		if res.Stderr == "" {
			res.Stderr = waitErr.Error()
		}
		if res.ExitCode == 0 {
			res.ExitCode = -1
		}
	}
	res.Success = res.ExitCode == 0

	if res.Success {
		e.logger.Info("Converter finished", slog.Int("pid", h.Pid()))
	} else {
		msg := strings.TrimSpace(res.Stderr)
		if msg == "" {
			msg = "Unknown error"
		}
		e.logger.Error("Converter failed", slog.Int("exit_code", res.ExitCode), slog.String("stderr", msg))
	}
	return res
}

func (e *Executor) removeTemp(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			e.logger.Warn("Could not delete temp metadata file", slog.String("path", path), slog.String("error", err.Error()))
		}
		return
	}
	e.logger.Debug("Temp metadata file deleted", slog.String("path", path))
}

// decode converts captured output to a string, replacing invalid UTF-8.
func decode(b []byte) string {
	return strings.ToValidUTF8(string(b), "\uFFFD")
}
