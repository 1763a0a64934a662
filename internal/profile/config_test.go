// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pandoc-runner/pkg/types"
)

func TestApplyResolvesPaths(t *testing.T) {
	s := newTestStore(t)
	data := s.paths.DataDir
	css := filepath.Join(data, "stylesheets", "github.css")
	require.NoError(t, os.MkdirAll(filepath.Dir(css), 0o755))
	require.NoError(t, os.WriteFile(css, []byte("body{}"), 0o644))

	require.NoError(t, s.Save("work", Record{
		"filters":             []any{"filters/a.lua", "", "/abs/b.lua"},
		"exclude_patterns":    []any{"*.tmp"},
		"css_file":            "stylesheets/github.css",
		"embed_css":           false,
		"output_format":       "pdf",
		"java_path":           "/usr/bin/java",
		"plantuml_use_server": true,
		"mermaid_mode":        "browser",
		"language":            "en",
	}))

	cfg := types.DefaultServiceConfig()
	require.NoError(t, s.Apply("work", &cfg))

	assert.Equal(t, []string{filepath.Join(normalize(data), "filters", "a.lua"), filepath.Clean("/abs/b.lua")}, cfg.Filters)
	assert.Equal(t, []string{"*.tmp"}, cfg.ExcludePatterns)
	assert.Equal(t, normalize(css), cfg.CSSFile)
	assert.False(t, cfg.EmbedCSS)
	assert.Equal(t, types.FormatPDF, cfg.OutputFormat)
	assert.Equal(t, filepath.Clean("/usr/bin/java"), cfg.JavaPath)
	assert.Equal(t, "", cfg.PlantUMLJar)
	assert.True(t, cfg.PlantUMLUseServer)
	assert.Equal(t, types.DefaultPlantUMLServerURL, cfg.PlantUMLServerURL)
	assert.Equal(t, types.MermaidBrowser, cfg.MermaidMode)
	assert.Equal(t, "en", cfg.Language)
	assert.Equal(t, types.DefaultExecutable, cfg.Executable)
}

func TestApplyMissingProfile(t *testing.T) {
	s := newTestStore(t)
	cfg := types.DefaultServiceConfig()
	require.ErrorIs(t, s.Apply("ghost", &cfg), ErrNotFound)
}

func TestSaveConfigKeepsUnknownKeys(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save("work", Record{"custom": "x", "output_format": "html"}))

	cfg := types.DefaultServiceConfig()
	cfg.OutputFormat = types.FormatDOCX
	cfg.Filters = []string{filepath.Join(s.paths.DataDir, "filters", "a.lua")}
	require.NoError(t, s.SaveConfig("work", cfg))

	rec, err := s.Load("work")
	require.NoError(t, err)
	assert.Equal(t, "x", rec["custom"])
	assert.Equal(t, "docx", rec["output_format"])
	assert.Equal(t, []any{filepath.Join("filters", "a.lua")}, rec["filters"])
	assert.Nil(t, rec["css_file"])
}

func TestSaveConfigThenApply(t *testing.T) {
	s := newTestStore(t)
	cfg := types.DefaultServiceConfig()
	cfg.ExcludePatterns = []string{"drafts", "*.bak"}
	cfg.PlantUMLJar = filepath.Join(s.paths.DataDir, "plantuml.jar")
	cfg.MermaidMode = types.MermaidCLI
	require.NoError(t, s.SaveConfig("roundtrip", cfg))

	got := types.DefaultServiceConfig()
	require.NoError(t, s.Apply("roundtrip", &got))
	assert.Equal(t, cfg.ExcludePatterns, got.ExcludePatterns)
	assert.Equal(t, normalize(cfg.PlantUMLJar), got.PlantUMLJar)
	assert.Equal(t, types.MermaidCLI, got.MermaidMode)
}

func TestDecodeDefaults(t *testing.T) {
	p, err := Decode(Record{})
	require.NoError(t, err)
	assert.Equal(t, types.DefaultProfile(), p)
}
