// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package command builds the converter's argument vector from a
// ServiceConfig. Build is deterministic: it reads extensions and checks
// whether the stylesheet exists, and touches nothing else.
package command

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/pandoc-runner/pkg/types"
)

const (
	flagOutput       = "-o"
	flagLuaFilter    = "--lua-filter"
	flagExtractMedia = "--extract-media"
	flagCSS          = "--css"
	flagPDFEngine    = "--pdf-engine=lualatex"
	flagVariable     = "-V"
	flagStandalone   = "--standalone"
	flagMathJax      = "--mathjax"
	flagEmbed        = "--embed-resources"

	// cjkDocumentClass is a LuaLaTeX class that typesets Japanese and other
	// CJK text. PDF output always uses it.
	cjkDocumentClass = "documentclass=ltjsarticle"

	mediaDir = "media"
)

// extractMedia lists input-extension/output-format pairs that lose
// embedded images unless they are extracted next to the output.
var extractMedia = map[string][]types.OutputFormat{
	"docx": {types.FormatMarkdown, types.FormatHTML},
	"html": {types.FormatMarkdown},
}

// Build returns the argv for converting input to output. When
// metadataFile is non-empty it replaces input as the file handed to the
// converter; input is still used to decide on media extraction.
func Build(input, output string, cfg types.ServiceConfig, metadataFile string) []string {
	exe := cfg.Executable
	if exe == "" {
		exe = types.DefaultExecutable
	}

	actual := input
	if metadataFile != "" {
		actual = metadataFile
	}
	argv := []string{exe, actual, flagOutput, output}

	for _, f := range cfg.Filters {
		argv = append(argv, flagLuaFilter, f)
	}

	inExt := strings.TrimPrefix(strings.ToLower(filepath.Ext(input)), ".")
	for _, f := range extractMedia[inExt] {
		if f == cfg.OutputFormat {
			argv = append(argv, flagExtractMedia, filepath.Join(filepath.Dir(output), mediaDir))
			break
		}
	}

	css := stylesheet(cfg.CSSFile)
	if cfg.OutputFormat != types.FormatDOCX && css != "" {
		argv = append(argv, flagCSS, css)
	}

	if cfg.OutputFormat == types.FormatPDF {
		argv = append(argv, flagPDFEngine, flagVariable, cjkDocumentClass)
	}

	switch cfg.OutputFormat {
	case types.FormatHTML, types.FormatPDF, types.FormatEPUB:
		argv = append(argv, flagStandalone)
		if cfg.OutputFormat == types.FormatHTML {
			argv = append(argv, flagMathJax)
		}
		if css != "" && cfg.EmbedCSS {
			argv = append(argv, flagEmbed)
		}
	}

	return argv
}

// stylesheet returns path when it names an existing file. A configured but
// missing stylesheet is skipped without error.
func stylesheet(path string) string {
	if path == "" {
		return ""
	}
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// String renders argv for logging.
func String(argv []string) string {
	return strings.Join(argv, " ")
}
