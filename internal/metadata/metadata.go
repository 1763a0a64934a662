// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metadata writes a temporary copy of an input document with the
// diagram renderer settings embedded as YAML front matter. Diagram filters
// read these keys from the document metadata at conversion time.
package metadata

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pandoc-runner/pkg/types"
)

const tempPattern = "pandoc-meta-*.md"

// Environment carries renderer locations supplied by the process
// environment (JAVA_PATH, PLANTUML_JAR). They are the lowest-precedence
// source.
type Environment struct {
	JavaPath    string
	PlantUMLJar string
}

// frontMatter is the injected block. Field order is the emitted key order.
type frontMatter struct {
	MermaidMode       string `yaml:"mermaid_mode,omitempty"`
	PlantUMLServer    bool   `yaml:"plantuml_server,omitempty"`
	PlantUMLServerURL string `yaml:"plantuml_server_url,omitempty"`
	JavaPath          string `yaml:"java_path,omitempty"`
	PlantUMLJar       string `yaml:"plantuml_jar,omitempty"`
}

// Injector creates transient metadata files for one session.
type Injector struct {
	cfg     types.ServiceConfig
	env     Environment
	tempDir string
	logger  *slog.Logger
}

// NewInjector returns an injector for cfg. tempDir may be empty to use the
// system temporary directory. A nil logger discards output.
func NewInjector(cfg types.ServiceConfig, env Environment, tempDir string, logger *slog.Logger) *Injector {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Injector{cfg: cfg, env: env, tempDir: tempDir, logger: logger.With(slog.String("component", "metadata"))}
}

// resolve computes the front matter for ov. Renderer paths are taken from
// the override, then the profile, then the environment. When the remote
// PlantUML service is enabled local renderer paths are not emitted. needed
// is false when mermaid mode is mmdc and nothing else is configured.
func (in *Injector) resolve(ov types.Overrides) (fm frontMatter, needed bool) {
	java := firstNonEmpty(ov.JavaPath, in.cfg.JavaPath, in.env.JavaPath)
	jar := firstNonEmpty(ov.PlantUMLJar, in.cfg.PlantUMLJar, in.env.PlantUMLJar)
	useServer := in.cfg.PlantUMLUseServer
	mode := in.cfg.MermaidMode

	if java == "" && jar == "" && !useServer && (mode == "" || mode == types.MermaidCLI) {
		return fm, false
	}

	fm.MermaidMode = string(mode)
	if useServer {
		fm.PlantUMLServer = true
		fm.PlantUMLServerURL = in.cfg.PlantUMLServerURL
		return fm, true
	}
	// Forward slashes keep Windows paths valid as plain YAML scalars.
	fm.JavaPath = strings.ReplaceAll(java, `\`, "/")
	fm.PlantUMLJar = strings.ReplaceAll(jar, `\`, "/")
	return fm, true
}

// Inject writes the augmented copy of input and returns its path. It
// returns "" and a nil error when no injection is needed. On failure any
// partially written file is removed and "" is returned with the error.
// The caller owns the returned file and must delete it.
func (in *Injector) Inject(input string, ov types.Overrides) (string, error) {
	fm, needed := in.resolve(ov)
	if !needed {
		return "", nil
	}

	header, err := yaml.Marshal(fm)
	if err != nil {
		return "", fmt.Errorf("encoding front matter: %w", err)
	}
	content, err := os.ReadFile(input)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", input, err)
	}

	f, err := os.CreateTemp(in.tempDir, tempPattern)
	if err != nil {
		return "", fmt.Errorf("creating metadata file: %w", err)
	}
	path := f.Name()

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(header)
	buf.WriteString("---\n\n")
	buf.WriteString(StripFrontMatter(string(content)))

	_, werr := f.Write(buf.Bytes())
	cerr := f.Close()
	if werr != nil || cerr != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			in.logger.Warn("Could not remove partial metadata file",
				slog.String("path", path), slog.String("error", rmErr.Error()))
		}
		if werr == nil {
			werr = cerr
		}
		return "", fmt.Errorf("writing metadata file: %w", werr)
	}

	in.logger.Debug("Metadata file created", slog.String("input", input), slog.String("path", path))
	return path, nil
}

// StripFrontMatter removes a leading front-matter block. A document that
// starts with a "---" line and contains a second "---" delimiter loses
// everything up to and including the second delimiter, plus the blank
// lines that followed it. Anything else is returned unchanged.
func StripFrontMatter(content string) string {
	delim := "---\n"
	if strings.HasPrefix(content, "---\r\n") {
		delim = "---\r\n"
	} else if !strings.HasPrefix(content, delim) {
		return content
	}

	parts := strings.SplitN(content, delim, 3)
	if len(parts) < 3 {
		return content
	}
	return strings.TrimLeft(parts[2], "\r\n")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
