// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// DefaultExecutable is the converter binary looked up on PATH.
const DefaultExecutable = "pandoc"

// ServiceConfig is the live configuration of a conversion session: a
// profile with every path resolved to an absolute path. An empty string
// means the setting is unset; there are no optional fields to probe for.
type ServiceConfig struct {
	// Executable is the converter binary (default "pandoc").
	Executable string

	// Filters are Lua filter paths, applied in order as a pipeline.
	Filters []string

	// ExcludePatterns are glob patterns that remove files from folder jobs.
	ExcludePatterns []string

	// CSSFile is the stylesheet applied to non-DOCX outputs.
	CSSFile string

	// EmbedCSS embeds the stylesheet and other resources into the output.
	EmbedCSS bool

	OutputFormat OutputFormat

	// Language is the UI locale tag; empty means auto-detect.
	Language string

	// JavaPath and PlantUMLJar locate the local PlantUML renderer.
	JavaPath    string
	PlantUMLJar string

	// PlantUMLUseServer selects the remote rendering service instead of
	// the local renderer.
	PlantUMLUseServer bool
	PlantUMLServerURL string

	MermaidMode MermaidMode
}

// DefaultServiceConfig returns the configuration used before any profile
// has been loaded.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Executable:        DefaultExecutable,
		EmbedCSS:          true,
		OutputFormat:      FormatHTML,
		PlantUMLServerURL: DefaultPlantUMLServerURL,
		MermaidMode:       MermaidBrowser,
	}
}

// Clone returns a deep copy so callers can hand a snapshot to a worker
// without sharing slices.
func (c ServiceConfig) Clone() ServiceConfig {
	out := c
	out.Filters = append([]string(nil), c.Filters...)
	out.ExcludePatterns = append([]string(nil), c.ExcludePatterns...)
	return out
}

// Overrides are per-invocation renderer settings that take precedence over
// the profile. They are never persisted unless explicitly saved.
type Overrides struct {
	JavaPath    string
	PlantUMLJar string
}
