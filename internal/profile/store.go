// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package profile persists named conversion profiles as JSON records under
// the data directory and converts them to and from the live ServiceConfig.
//
// Records are kept as generic maps so that keys this version does not know
// about survive a load/save round trip. On load, keys missing from a record
// are filled from the master default template and the enriched record is
// written back, which migrates profiles saved by older versions.
package profile

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdiddy/pandoc-runner/internal/appdir"
	"github.com/pdiddy/pandoc-runner/pkg/types"
)

// DefaultName is the profile that always exists and cannot be deleted.
const DefaultName = "default"

const fileExt = ".json"

// invalidNameChars are rejected in profile names; they are unsafe in file
// names on at least one supported platform.
const invalidNameChars = `/\:*?"<>|`

var (
	ErrNotFound         = errors.New("profile not found")
	ErrExists           = errors.New("profile already exists")
	ErrInvalidName      = errors.New("invalid profile name")
	ErrDefaultProtected = errors.New("the default profile cannot be deleted")
)

//go:embed default.json
var builtinDefault []byte

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Record is one persisted profile.
type Record map[string]any

// Store reads and writes profiles in paths.ProfileDir().
type Store struct {
	paths  appdir.Paths
	logger *slog.Logger
}

// NewStore creates a store rooted at paths. A nil logger discards output.
func NewStore(paths appdir.Paths, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{paths: paths, logger: logger.With(slog.String("component", "profile"))}
}

// Paths returns the configuration context the store was built with.
func (s *Store) Paths() appdir.Paths { return s.paths }

// ValidateName rejects empty names and names containing path or shell
// metacharacters.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidName)
	}
	if strings.ContainsAny(name, invalidNameChars) {
		return fmt.Errorf("%w: %q contains one of %s", ErrInvalidName, name, invalidNameChars)
	}
	return nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.paths.ProfileDir(), name+fileExt)
}

// Save writes rec as the profile name, replacing any existing record.
func (s *Store) Save(name string, rec Record) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := os.MkdirAll(s.paths.ProfileDir(), 0o755); err != nil {
		return fmt.Errorf("creating profile directory: %w", err)
	}
	if err := writeRecord(s.path(name), rec); err != nil {
		return fmt.Errorf("saving profile %s: %w", name, err)
	}
	s.logger.Info("Profile saved", slog.String("name", name))
	return nil
}

// Load reads the profile name. It returns ErrNotFound when no record
// exists. Keys present in the master template but absent from the record
// are added with the template's value and the record is written back;
// existing values are never changed.
func (s *Store) Load(name string) (Record, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	path := s.path(name)
	rec, err := readRecord(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("loading profile %s: %w", name, err)
	}

	added := 0
	for key, value := range s.master() {
		if _, ok := rec[key]; !ok {
			rec[key] = value
			added++
		}
	}
	if added > 0 {
		if err := writeRecord(path, rec); err != nil {
			s.logger.Warn("Could not persist migrated profile",
				slog.String("name", name), slog.String("error", err.Error()))
		} else {
			s.logger.Info("Profile migrated", slog.String("name", name), slog.Int("keys_added", added))
		}
	}
	return rec, nil
}

// InitDefault creates the default profile from the built-in template when
// it does not exist yet.
func (s *Store) InitDefault() error {
	if _, err := os.Stat(s.path(DefaultName)); err == nil {
		return nil
	}
	rec, err := decodeRecord(builtinDefault)
	if err != nil {
		return fmt.Errorf("decoding built-in default profile: %w", err)
	}
	return s.Save(DefaultName, rec)
}

// List returns the sorted names of all stored profiles. The default
// profile is always included.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.paths.ProfileDir())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading profile directory: %w", err)
	}

	names := []string{}
	hasDefault := false
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != fileExt {
			continue
		}
		n := strings.TrimSuffix(e.Name(), fileExt)
		if n == DefaultName {
			hasDefault = true
		}
		names = append(names, n)
	}
	if !hasDefault {
		names = append(names, DefaultName)
	}
	sort.Strings(names)
	return names, nil
}

// Create adds a new profile initialised from the master template.
func (s *Store) Create(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if _, err := os.Stat(s.path(name)); err == nil {
		return fmt.Errorf("%w: %s", ErrExists, name)
	}
	return s.Save(name, s.master())
}

// Delete removes a profile. The default profile is protected.
func (s *Store) Delete(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if name == DefaultName {
		return ErrDefaultProtected
	}
	if err := os.Remove(s.path(name)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("deleting profile %s: %w", name, err)
	}
	s.logger.Info("Profile deleted", slog.String("name", name))
	return nil
}

// SetLanguage stores the UI locale in the default profile. An empty lang
// stores null (auto-detect).
func (s *Store) SetLanguage(lang string) error {
	rec, err := s.Load(DefaultName)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		rec = Record{}
	}
	rec[types.KeyLanguage] = nullable(lang)
	return s.Save(DefaultName, rec)
}

// master returns the schema template: the shipped default.json in the app
// directory when readable, otherwise the built-in template.
func (s *Store) master() Record {
	if data, err := os.ReadFile(s.paths.MasterDefault()); err == nil {
		if rec, err := decodeRecord(data); err == nil {
			return rec
		}
		s.logger.Warn("Master default profile is unreadable, using built-in template",
			slog.String("path", s.paths.MasterDefault()))
	}
	rec, _ := decodeRecord(builtinDefault)
	return rec
}

func readRecord(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decodeRecord(data)
}

func decodeRecord(data []byte) (Record, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parsing profile JSON: %w", err)
	}
	if rec == nil {
		rec = Record{}
	}
	return rec, nil
}

func writeRecord(path string, rec Record) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		return fmt.Errorf("marshaling profile: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
