// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pandoc-runner/internal/process"
)

// fakeRunner writes the output file unless the input base name is in fail.
type fakeRunner struct {
	fail   map[string]bool
	stdout string
}

func (r *fakeRunner) Run(_ context.Context, argv []string, tempFile string) process.Result {
	if tempFile != "" {
		defer os.Remove(tempFile)
	}
	if r.fail[filepath.Base(argv[1])] {
		return process.Result{Stderr: "pandoc: could not parse", ExitCode: 64}
	}
	if err := os.WriteFile(argv[3], []byte("out"), 0o644); err != nil {
		return process.Result{Stderr: err.Error(), ExitCode: 1}
	}
	return process.Result{Success: true, Stdout: r.stdout}
}

type testEnv struct {
	dataDir  string
	appDir   string
	runner   *fakeRunner
	opened   []string
	missing  bool
	probeErr error
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return &testEnv{dataDir: t.TempDir(), appDir: t.TempDir(), runner: &fakeRunner{}}
}

func (e *testEnv) run(ctx context.Context, args ...string) (string, string, error) {
	a := newApp()
	a.runner = e.runner
	a.open = func(url string) error {
		e.opened = append(e.opened, url)
		return nil
	}
	a.checkInstalled = func(context.Context, string) (string, error) {
		if e.missing {
			return "", process.ErrNotInstalled
		}
		return "pandoc 3.1.9", nil
	}

	a.probe = func(context.Context, string) error { return e.probeErr }

	root := newRootCmd(a)
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--data-dir", e.dataDir, "--app-dir", e.appDir}, args...))
	err := root.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

func (e *testEnv) exec(args ...string) (string, string, error) {
	return e.run(context.Background(), args...)
}

func writeDoc(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("# Doc\n"), 0o644))
}

func TestConvertExitCodes(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T, e *testEnv, dir string) []string
		wantErr string
	}{
		{
			name: "single file success",
			setup: func(t *testing.T, e *testEnv, dir string) []string {
				writeDoc(t, filepath.Join(dir, "a.md"))
				return []string{"-i", filepath.Join(dir, "a.md"), "-o", filepath.Join(dir, "a.html")}
			},
		},
		{
			name: "nonexistent input",
			setup: func(t *testing.T, e *testEnv, dir string) []string {
				return []string{"-i", filepath.Join(dir, "nope.md"), "-o", filepath.Join(dir, "out.html")}
			},
			wantErr: "input path does not exist",
		},
		{
			name: "unknown profile",
			setup: func(t *testing.T, e *testEnv, dir string) []string {
				writeDoc(t, filepath.Join(dir, "a.md"))
				return []string{"-i", filepath.Join(dir, "a.md"), "-o", filepath.Join(dir, "a.html"), "-p", "ghost"}
			},
			wantErr: "profile 'ghost' not found",
		},
		{
			name: "converter missing",
			setup: func(t *testing.T, e *testEnv, dir string) []string {
				e.missing = true
				writeDoc(t, filepath.Join(dir, "a.md"))
				return []string{"-i", filepath.Join(dir, "a.md"), "-o", filepath.Join(dir, "a.html")}
			},
			wantErr: "not installed",
		},
		{
			name: "single file failure",
			setup: func(t *testing.T, e *testEnv, dir string) []string {
				e.runner.fail = map[string]bool{"bad.md": true}
				writeDoc(t, filepath.Join(dir, "bad.md"))
				return []string{"-i", filepath.Join(dir, "bad.md"), "-o", filepath.Join(dir, "bad.html")}
			},
			wantErr: "exit code 64",
		},
		{
			name: "folder with one failure",
			setup: func(t *testing.T, e *testEnv, dir string) []string {
				e.runner.fail = map[string]bool{"2.md": true}
				for _, n := range []string{"1.md", "2.md", "3.md"} {
					writeDoc(t, filepath.Join(dir, "in", n))
				}
				return []string{"-i", filepath.Join(dir, "in"), "-o", filepath.Join(dir, "out")}
			},
			wantErr: "1 of 3 file(s) failed",
		},
		{
			name: "folder success",
			setup: func(t *testing.T, e *testEnv, dir string) []string {
				writeDoc(t, filepath.Join(dir, "in", "a.md"))
				writeDoc(t, filepath.Join(dir, "in", "sub", "b.rst"))
				return []string{"-i", filepath.Join(dir, "in"), "-o", filepath.Join(dir, "out"), "-f", "docx"}
			},
		},
		{
			name: "bad format",
			setup: func(t *testing.T, e *testEnv, dir string) []string {
				writeDoc(t, filepath.Join(dir, "a.md"))
				return []string{"-i", filepath.Join(dir, "a.md"), "-o", filepath.Join(dir, "a.odt"), "-f", "odt"}
			},
			wantErr: "odt",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			dir := t.TempDir()
			args := append([]string{"convert"}, tt.setup(t, e, dir)...)

			_, _, err := e.exec(args...)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConvertEchoesStdoutAndStderr(t *testing.T) {
	e := newTestEnv(t)
	e.runner.stdout = "[WARNING] missing title"
	dir := t.TempDir()
	writeDoc(t, filepath.Join(dir, "a.md"))

	stdout, _, err := e.exec("convert", "-i", filepath.Join(dir, "a.md"), "-o", filepath.Join(dir, "out"))
	require.NoError(t, err)
	assert.Contains(t, stdout, "[WARNING] missing title")
	assert.FileExists(t, filepath.Join(dir, "out", "a.html"))

	e.runner.fail = map[string]bool{"a.md": true}
	_, stderr, err := e.exec("convert", "-i", filepath.Join(dir, "a.md"), "-o", filepath.Join(dir, "b.html"))
	require.Error(t, err)
	assert.Contains(t, stderr, "pandoc: could not parse")
}

func TestConvertFolderOutputs(t *testing.T) {
	e := newTestEnv(t)
	dir := t.TempDir()
	writeDoc(t, filepath.Join(dir, "in", "a.md"))
	writeDoc(t, filepath.Join(dir, "in", "sub", "b.md"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "in", "logo.png"), []byte("png"), 0o644))

	_, stderr, err := e.exec("convert", "-i", filepath.Join(dir, "in"), "-o", filepath.Join(dir, "out"), "-f", "epub")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "out", "a.epub"))
	assert.FileExists(t, filepath.Join(dir, "out", "sub", "b.epub"))
	assert.FileExists(t, filepath.Join(dir, "out", "logo.png"))
	assert.Contains(t, stderr, "[1/2] a.md")
	assert.Contains(t, stderr, "[2/2] "+filepath.Join("sub", "b.md"))
}

func TestProfileCommands(t *testing.T) {
	e := newTestEnv(t)

	out, _, err := e.exec("profile", "list")
	require.NoError(t, err)
	assert.Equal(t, "default\n", out)

	_, _, err = e.exec("profile", "new", "book")
	require.NoError(t, err)
	_, _, err = e.exec("profile", "new", "book")
	assert.Error(t, err)
	_, _, err = e.exec("profile", "new", "a/b")
	assert.Error(t, err)

	_, _, err = e.exec("profile", "set", "book", "-f", "pdf", "--exclude", "*.tmp,drafts", "--mermaid-mode", "browser")
	require.NoError(t, err)

	out, _, err = e.exec("profile", "show", "book")
	require.NoError(t, err)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, "pdf", rec["output_format"])
	assert.Equal(t, []any{"*.tmp", "drafts"}, rec["exclude_patterns"])
	assert.Equal(t, "browser", rec["mermaid_mode"])

	out, _, err = e.exec("profile", "show", "book", "--yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "output_format: pdf")

	_, _, err = e.exec("profile", "set", "book", "--mermaid-mode", "dot")
	assert.Error(t, err)

	out, _, err = e.exec("profile", "list")
	require.NoError(t, err)
	assert.Equal(t, "book\ndefault\n", out)

	_, _, err = e.exec("profile", "delete", "default")
	assert.Error(t, err)
	_, _, err = e.exec("profile", "delete", "book")
	require.NoError(t, err)
	_, _, err = e.exec("profile", "delete", "book")
	assert.Error(t, err)
}

func TestProfileSetLanguage(t *testing.T) {
	e := newTestEnv(t)
	_, _, err := e.exec("profile", "set-language", "ja")
	require.NoError(t, err)

	out, _, err := e.exec("profile", "show")
	require.NoError(t, err)
	assert.Contains(t, out, `"language": "ja"`)
}

func TestHistoryRecordsConversions(t *testing.T) {
	e := newTestEnv(t)
	dir := t.TempDir()
	writeDoc(t, filepath.Join(dir, "a.md"))
	_, _, err := e.exec("convert", "-i", filepath.Join(dir, "a.md"), "-o", filepath.Join(dir, "a.html"))
	require.NoError(t, err)

	out, _, err := e.exec("history", "--json")
	require.NoError(t, err)
	var runs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "file", runs[0]["kind"])
	assert.Equal(t, float64(1), runs[0]["succeeded"])

	out, _, err = e.exec("history")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "STARTED"))
}

func TestCheck(t *testing.T) {
	e := newTestEnv(t)
	out, _, err := e.exec("check")
	require.NoError(t, err)
	assert.Contains(t, out, "pandoc 3.1.9")
	assert.Contains(t, out, "mermaid mode")

	e.missing = true
	_, stderr, err := e.exec("check")
	require.Error(t, err)
	assert.True(t, errors.Is(err, process.ErrNotInstalled))
	assert.Contains(t, stderr, "Warning:")
}

func TestCheckProbesPlantUMLServer(t *testing.T) {
	e := newTestEnv(t)
	_, _, err := e.exec("profile", "set", "default", "--plantuml-server", "--plantuml-server-url", "http://renderer.invalid/plantuml")
	require.NoError(t, err)

	out, _, err := e.exec("check")
	require.NoError(t, err)
	assert.Contains(t, out, "server http://renderer.invalid/plantuml (reachable)")

	e.probeErr = errors.New("renderer server unreachable")
	out, _, err = e.exec("check")
	require.NoError(t, err)
	assert.Contains(t, out, "(renderer server unreachable)")
}

func TestPreviewServesExistingPage(t *testing.T) {
	e := newTestEnv(t)
	dir := t.TempDir()
	page := filepath.Join(dir, "page.html")
	require.NoError(t, os.WriteFile(page, []byte("<p>hi</p>"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, _, err := e.run(ctx, "preview", page)
	require.NoError(t, err)
	require.Len(t, e.opened, 1)
	assert.True(t, strings.HasSuffix(e.opened[0], "/page.html"))
	assert.Contains(t, out, e.opened[0])
}

func TestPreviewArgs(t *testing.T) {
	e := newTestEnv(t)
	_, _, err := e.exec("preview")
	assert.Error(t, err)
	_, _, err = e.exec("preview", "x.html", "-i", "y.md")
	assert.Error(t, err)
	_, _, err = e.exec("preview", "-i", "y.md")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, _, err := newTestEnv(t).exec("version")
	require.NoError(t, err)
	assert.Equal(t, "pandoc-runner dev\n", out)
}
