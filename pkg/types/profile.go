// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
)

// OutputFormat is the converter output format selected by a profile or
// the --format flag.
type OutputFormat string

const (
	FormatHTML     OutputFormat = "html"
	FormatPDF      OutputFormat = "pdf"
	FormatDOCX     OutputFormat = "docx"
	FormatEPUB     OutputFormat = "epub"
	FormatMarkdown OutputFormat = "markdown"
)

// OutputFormats lists every supported output format in display order.
var OutputFormats = []OutputFormat{FormatHTML, FormatPDF, FormatDOCX, FormatEPUB, FormatMarkdown}

var formatExtensions = map[OutputFormat]string{
	FormatHTML:     ".html",
	FormatPDF:      ".pdf",
	FormatDOCX:     ".docx",
	FormatEPUB:     ".epub",
	FormatMarkdown: ".md",
}

// ParseOutputFormat validates s against the supported formats.
func ParseOutputFormat(s string) (OutputFormat, error) {
	f := OutputFormat(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := formatExtensions[f]; !ok {
		return "", fmt.Errorf("unsupported output format %q: use html, pdf, docx, epub, or markdown", s)
	}
	return f, nil
}

// Extension returns the file extension (with leading dot) written for f.
// Unknown formats fall back to ".html".
func (f OutputFormat) Extension() string {
	if ext, ok := formatExtensions[f]; ok {
		return ext
	}
	return ".html"
}

// MermaidMode selects how Mermaid diagrams are rendered.
type MermaidMode string

const (
	// MermaidCLI renders diagrams with the mmdc executable during conversion.
	MermaidCLI MermaidMode = "mmdc"
	// MermaidBrowser renders diagrams in the browser and posts the SVGs back
	// to the capture server.
	MermaidBrowser MermaidMode = "browser"
)

// DefaultPlantUMLServerURL is the public PlantUML rendering service.
const DefaultPlantUMLServerURL = "http://www.plantuml.com/plantuml"

// Profile record keys, as persisted in <data>/profiles/<name>.json.
const (
	KeyFilters           = "filters"
	KeyExcludePatterns   = "exclude_patterns"
	KeyCSSFile           = "css_file"
	KeyEmbedCSS          = "embed_css"
	KeyOutputFormat      = "output_format"
	KeyLanguage          = "language"
	KeyJavaPath          = "java_path"
	KeyPlantUMLJar       = "plantuml_jar"
	KeyPlantUMLUseServer = "plantuml_use_server"
	KeyPlantUMLServerURL = "plantuml_server_url"
	KeyMermaidMode       = "mermaid_mode"
)

// ConversionProfile is the typed view of a persisted profile record.
// Nullable fields are pointers so that a JSON null survives a round trip.
// Path fields hold the stored form: relative to the data directory when
// the file lives under it, absolute otherwise.
type ConversionProfile struct {
	Filters           []string     `json:"filters"`
	ExcludePatterns   []string     `json:"exclude_patterns"`
	CSSFile           *string      `json:"css_file"`
	EmbedCSS          bool         `json:"embed_css"`
	OutputFormat      OutputFormat `json:"output_format"`
	Language          *string      `json:"language"`
	JavaPath          *string      `json:"java_path"`
	PlantUMLJar       *string      `json:"plantuml_jar"`
	PlantUMLUseServer bool         `json:"plantuml_use_server"`
	PlantUMLServerURL string       `json:"plantuml_server_url"`
	MermaidMode       MermaidMode  `json:"mermaid_mode"`
}

// DefaultProfile returns the built-in profile created on first run.
// A nil Language means auto-detect.
func DefaultProfile() ConversionProfile {
	return ConversionProfile{
		Filters:           []string{},
		ExcludePatterns:   []string{},
		EmbedCSS:          true,
		OutputFormat:      FormatHTML,
		PlantUMLServerURL: DefaultPlantUMLServerURL,
		MermaidMode:       MermaidCLI,
	}
}
