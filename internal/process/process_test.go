// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

//go:build !windows

package process

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "meta.md")
	require.NoError(t, os.WriteFile(path, []byte("---\n---\n"), 0o644))
	return path
}

func TestRunSuccess(t *testing.T) {
	e := NewExecutor(nil, nil)
	tmp := tempFile(t)

	res := e.Run(context.Background(), []string{"sh", "-c", "echo converted; echo note >&2"}, tmp)

	assert.True(t, res.Success)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "converted\n", res.Stdout)
	assert.Equal(t, "note\n", res.Stderr)
	assert.NoFileExists(t, tmp)
}

func TestRunNonZeroExit(t *testing.T) {
	e := NewExecutor(nil, nil)
	tmp := tempFile(t)

	res := e.Run(context.Background(), []string{"sh", "-c", "echo 'bad input' >&2; exit 3"}, tmp)

	assert.False(t, res.Success)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "bad input\n", res.Stderr)
	assert.NoFileExists(t, tmp)
}

func TestRunLaunchFailure(t *testing.T) {
	e := NewExecutor(nil, nil)
	tmp := tempFile(t)

	res := e.Run(context.Background(), []string{filepath.Join(t.TempDir(), "no-such-pandoc")}, tmp)

	assert.False(t, res.Success)
	assert.Equal(t, -1, res.ExitCode)
	assert.Empty(t, res.Stdout)
	assert.NotEmpty(t, res.Stderr)
	assert.NoFileExists(t, tmp)
}

func TestRunEmptyCommand(t *testing.T) {
	res := NewExecutor(nil, nil).Run(context.Background(), nil, "")
	assert.False(t, res.Success)
	assert.Equal(t, -1, res.ExitCode)
}

func TestRunMissingTempFileIsNotAnError(t *testing.T) {
	res := NewExecutor(nil, nil).Run(context.Background(), []string{"true"}, filepath.Join(t.TempDir(), "gone.md"))
	assert.True(t, res.Success)
}

func TestRunInvalidUTF8Replaced(t *testing.T) {
	res := NewExecutor(nil, nil).Run(context.Background(), []string{"sh", "-c", `printf 'a\377b'`}, "")
	assert.Equal(t, "a�b", res.Stdout)
}

// startTracked runs argv in the background and waits until the tracker
// reports it.
func startTracked(t *testing.T, ctx context.Context, argv []string) (*Tracker, <-chan Result) {
	t.Helper()
	tr := &Tracker{}
	e := NewExecutor(tr, nil)
	results := make(chan Result, 1)
	go func() { results <- e.Run(ctx, argv, "") }()

	require.Eventually(t, func() bool { return tr.Current() != nil }, 5*time.Second, 10*time.Millisecond)
	return tr, results
}

func TestTrackerClearedAfterRun(t *testing.T) {
	tr, results := startTracked(t, context.Background(), []string{"sh", "-c", "sleep 0.2"})
	res := <-results
	assert.True(t, res.Success)
	assert.Nil(t, tr.Current())
}

func TestTerminateCurrentGraceful(t *testing.T) {
	tr, results := startTracked(t, context.Background(), []string{"sh", "-c", "sleep 30"})
	h := tr.Current()

	start := time.Now()
	tr.TerminateCurrent(2*time.Second, nil)

	select {
	case res := <-results:
		assert.False(t, res.Success)
		assert.True(t, h.Exited())
		assert.Less(t, time.Since(start), 2*time.Second)
	case <-time.After(5 * time.Second):
		t.Fatal("process was not terminated")
	}
}

func TestTerminateEscalatesToKill(t *testing.T) {
	// The shell and its sleep child both ignore SIGTERM.
	tr, results := startTracked(t, context.Background(), []string{"sh", "-c", `trap "" TERM; sleep 30`})

	grace := 200 * time.Millisecond
	start := time.Now()
	tr.TerminateCurrent(grace, nil)

	select {
	case res := <-results:
		assert.False(t, res.Success)
		assert.Equal(t, -1, res.ExitCode)
		assert.GreaterOrEqual(t, time.Since(start), grace)
	case <-time.After(5 * time.Second):
		t.Fatal("process was not killed")
	}
}

func TestTerminateNilAndExited(t *testing.T) {
	Terminate(nil, time.Second, nil)

	var tr Tracker
	tr.TerminateCurrent(time.Second, nil)
	assert.Nil(t, tr.Current())
}

func TestRunContextCancelTerminates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	_, results := startTracked(t, ctx, []string{"sh", "-c", "sleep 30"})
	cancel()

	select {
	case res := <-results:
		assert.False(t, res.Success)
	case <-time.After(10 * time.Second):
		t.Fatal("cancel did not stop the process")
	}
}
