// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package metadata

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pandoc-runner/pkg/types"
)

func writeInput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.md")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// splitOutput separates the injected front matter from the body.
func splitOutput(t *testing.T, path string) (map[string]any, string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	require.True(t, strings.HasPrefix(content, "---\n"), "output must start with front matter: %q", content)

	parts := strings.SplitN(content, "---\n", 3)
	require.Len(t, parts, 3)
	var fm map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(parts[1]), &fm))
	return fm, strings.TrimPrefix(parts[2], "\n")
}

func browserConfig() types.ServiceConfig {
	cfg := types.DefaultServiceConfig()
	cfg.MermaidMode = types.MermaidBrowser
	return cfg
}

func TestInjectNotNeeded(t *testing.T) {
	cfg := types.DefaultServiceConfig()
	cfg.MermaidMode = types.MermaidCLI
	in := NewInjector(cfg, Environment{}, t.TempDir(), nil)

	path, err := in.Inject(writeInput(t, "# Doc"), types.Overrides{})
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestInjectStripsExistingFrontMatter(t *testing.T) {
	in := NewInjector(browserConfig(), Environment{}, t.TempDir(), nil)
	input := writeInput(t, "---\nfoo: bar\n---\n\n# Body")

	path, err := in.Inject(input, types.Overrides{})
	require.NoError(t, err)
	require.NotEmpty(t, path)
	t.Cleanup(func() { os.Remove(path) })

	fm, body := splitOutput(t, path)
	assert.Equal(t, "# Body", body)
	assert.Equal(t, "browser", fm["mermaid_mode"])
	assert.NotContains(t, fm, "foo")
}

func TestInjectPrecedence(t *testing.T) {
	tests := []struct {
		name     string
		cfg      func() types.ServiceConfig
		env      Environment
		ov       types.Overrides
		wantJava string
		wantJar  string
	}{
		{
			name: "override beats profile and env",
			cfg: func() types.ServiceConfig {
				c := types.DefaultServiceConfig()
				c.JavaPath = "/profile/java"
				return c
			},
			env:      Environment{JavaPath: "/env/java", PlantUMLJar: "/env/plantuml.jar"},
			ov:       types.Overrides{JavaPath: "/override/java"},
			wantJava: "/override/java",
			wantJar:  "/env/plantuml.jar",
		},
		{
			name: "profile beats env",
			cfg: func() types.ServiceConfig {
				c := types.DefaultServiceConfig()
				c.PlantUMLJar = "/profile/plantuml.jar"
				return c
			},
			env:      Environment{JavaPath: "/env/java", PlantUMLJar: "/env/plantuml.jar"},
			wantJava: "/env/java",
			wantJar:  "/profile/plantuml.jar",
		},
		{
			name: "backslashes become forward slashes",
			cfg: func() types.ServiceConfig {
				c := types.DefaultServiceConfig()
				c.MermaidMode = types.MermaidCLI
				return c
			},
			ov:       types.Overrides{JavaPath: `C:\Java\bin\java.exe`, PlantUMLJar: `C:\tools\plantuml.jar`},
			wantJava: "C:/Java/bin/java.exe",
			wantJar:  "C:/tools/plantuml.jar",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := NewInjector(tt.cfg(), tt.env, t.TempDir(), nil)
			path, err := in.Inject(writeInput(t, "# Doc\n"), tt.ov)
			require.NoError(t, err)
			require.NotEmpty(t, path)
			t.Cleanup(func() { os.Remove(path) })

			fm, body := splitOutput(t, path)
			assert.Equal(t, tt.wantJava, fm["java_path"])
			assert.Equal(t, tt.wantJar, fm["plantuml_jar"])
			assert.NotContains(t, fm, "plantuml_server")
			assert.Equal(t, "# Doc\n", body)
		})
	}
}

func TestInjectRemoteServer(t *testing.T) {
	cfg := types.DefaultServiceConfig()
	cfg.MermaidMode = types.MermaidCLI
	cfg.PlantUMLUseServer = true
	cfg.PlantUMLServerURL = "https://plantuml.example.com/plantuml"
	cfg.JavaPath = "/profile/java"
	in := NewInjector(cfg, Environment{PlantUMLJar: "/env/plantuml.jar"}, t.TempDir(), nil)

	path, err := in.Inject(writeInput(t, "text"), types.Overrides{})
	require.NoError(t, err)
	t.Cleanup(func() { os.Remove(path) })

	fm, _ := splitOutput(t, path)
	assert.Equal(t, true, fm["plantuml_server"])
	assert.Equal(t, "https://plantuml.example.com/plantuml", fm["plantuml_server_url"])
	assert.Equal(t, "mmdc", fm["mermaid_mode"])
	assert.NotContains(t, fm, "java_path")
	assert.NotContains(t, fm, "plantuml_jar")
}

func TestInjectMissingInput(t *testing.T) {
	dir := t.TempDir()
	in := NewInjector(browserConfig(), Environment{}, dir, nil)

	path, err := in.Inject(filepath.Join(dir, "missing.md"), types.Overrides{})
	require.Error(t, err)
	assert.Empty(t, path)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no temp file may be left behind")
}

func TestInjectUnwritableTempDir(t *testing.T) {
	in := NewInjector(browserConfig(), Environment{}, filepath.Join(t.TempDir(), "missing"), nil)
	path, err := in.Inject(writeInput(t, "# Doc"), types.Overrides{})
	require.Error(t, err)
	assert.Empty(t, path)
}

func TestStripFrontMatter(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no front matter", "# Title\n\ntext", "# Title\n\ntext"},
		{"front matter removed", "---\ntitle: x\n---\n# Title", "# Title"},
		{"blank lines after block dropped", "---\ntitle: x\n---\n\n\n# Title", "# Title"},
		{"unterminated block kept", "---\ntitle: x\n# Title", "---\ntitle: x\n# Title"},
		{"crlf delimiters", "---\r\ntitle: x\r\n---\r\n\r\n# Title", "# Title"},
		{"horizontal rule later is untouched", "# Title\n\n---\n\nmore", "# Title\n\n---\n\nmore"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripFrontMatter(tt.in))
		})
	}
}
