// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pdiddy/pandoc-runner/pkg/types"
)

// Decode converts a record to its typed form. Missing keys take the
// built-in defaults.
func Decode(rec Record) (types.ConversionProfile, error) {
	p := types.DefaultProfile()
	data, err := json.Marshal(rec)
	if err != nil {
		return p, fmt.Errorf("encoding record: %w", err)
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("decoding profile: %w", err)
	}
	if p.OutputFormat == "" {
		p.OutputFormat = types.FormatHTML
	}
	if p.MermaidMode == "" {
		p.MermaidMode = types.MermaidCLI
	}
	return p, nil
}

// Apply loads the profile name into cfg, resolving stored paths against
// the data directory. The executable is left untouched.
func (s *Store) Apply(name string, cfg *types.ServiceConfig) error {
	rec, err := s.Load(name)
	if err != nil {
		return err
	}
	p, err := Decode(rec)
	if err != nil {
		return fmt.Errorf("profile %s: %w", name, err)
	}

	data := s.paths.DataDir
	var filters []string
	for _, f := range p.Filters {
		if f != "" {
			filters = append(filters, Resolve(data, f))
		}
	}
	cfg.Filters = filters
	cfg.ExcludePatterns = append([]string(nil), p.ExcludePatterns...)
	cfg.CSSFile = Resolve(data, deref(p.CSSFile))
	cfg.EmbedCSS = p.EmbedCSS
	cfg.OutputFormat = p.OutputFormat
	cfg.Language = deref(p.Language)
	cfg.JavaPath = Resolve(data, deref(p.JavaPath))
	cfg.PlantUMLJar = Resolve(data, deref(p.PlantUMLJar))
	cfg.PlantUMLUseServer = p.PlantUMLUseServer
	cfg.PlantUMLServerURL = p.PlantUMLServerURL
	cfg.MermaidMode = p.MermaidMode

	s.logger.Info("Profile loaded", slog.String("name", name))
	return nil
}

// Snapshot converts cfg to a record with paths in stored form.
func (s *Store) Snapshot(cfg types.ServiceConfig) Record {
	data := s.paths.DataDir
	filters := make([]any, 0, len(cfg.Filters))
	for _, f := range cfg.Filters {
		filters = append(filters, Relativize(data, f))
	}
	excludes := make([]any, 0, len(cfg.ExcludePatterns))
	for _, p := range cfg.ExcludePatterns {
		excludes = append(excludes, p)
	}
	return Record{
		types.KeyFilters:           filters,
		types.KeyExcludePatterns:   excludes,
		types.KeyCSSFile:           nullable(Relativize(data, cfg.CSSFile)),
		types.KeyEmbedCSS:          cfg.EmbedCSS,
		types.KeyOutputFormat:      string(cfg.OutputFormat),
		types.KeyLanguage:          nullable(cfg.Language),
		types.KeyJavaPath:          nullable(Relativize(data, cfg.JavaPath)),
		types.KeyPlantUMLJar:       nullable(Relativize(data, cfg.PlantUMLJar)),
		types.KeyPlantUMLUseServer: cfg.PlantUMLUseServer,
		types.KeyPlantUMLServerURL: cfg.PlantUMLServerURL,
		types.KeyMermaidMode:       string(cfg.MermaidMode),
	}
}

// SaveConfig persists cfg as the profile name. Keys already in the stored
// record that cfg does not describe are kept.
func (s *Store) SaveConfig(name string, cfg types.ServiceConfig) error {
	rec, err := s.Load(name)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		rec = Record{}
	}
	for k, v := range s.Snapshot(cfg) {
		rec[k] = v
	}
	return s.Save(name, rec)
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
