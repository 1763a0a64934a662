// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package appdir resolves the application's directories and seeds the
// per-user data directory on first launch. The resolved Paths value is
// passed explicitly to every component that reads or writes user data.
package appdir

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
)

// appName is the directory name used under the platform data root.
const appName = "PandocGUI"

const (
	profilesDir    = "profiles"
	stylesheetsDir = "stylesheets"
	filtersDir     = "filters"
	historyFile    = "history.db"
)

// Paths is the configuration context shared by the profile store, the
// history store and the conversion service.
type Paths struct {
	// AppDir holds the shipped profiles/, stylesheets/ and filters/ folders.
	AppDir string

	// DataDir is the per-user writable root. Profile path fields are
	// stored relative to it.
	DataDir string
}

// ProfileDir is where named profiles are stored as JSON files.
func (p Paths) ProfileDir() string { return filepath.Join(p.DataDir, profilesDir) }

// MasterDefault is the shipped default profile used as the schema template.
func (p Paths) MasterDefault() string {
	return filepath.Join(p.AppDir, profilesDir, "default.json")
}

// HistoryDB is the conversion history database path.
func (p Paths) HistoryDB() string { return filepath.Join(p.DataDir, historyFile) }

// Resolve returns Paths for the current platform. Empty arguments select
// the defaults: the executable's directory for appDir and the platform
// data directory for dataDir.
func Resolve(appDir, dataDir string) (Paths, error) {
	if appDir == "" {
		exe, err := os.Executable()
		if err != nil {
			return Paths{}, fmt.Errorf("locating executable: %w", err)
		}
		appDir = filepath.Dir(exe)
	}
	if dataDir == "" {
		d, err := DefaultDataDir()
		if err != nil {
			return Paths{}, err
		}
		dataDir = d
	}

	absApp, err := filepath.Abs(appDir)
	if err != nil {
		return Paths{}, fmt.Errorf("resolving app dir %s: %w", appDir, err)
	}
	absData, err := filepath.Abs(dataDir)
	if err != nil {
		return Paths{}, fmt.Errorf("resolving data dir %s: %w", dataDir, err)
	}
	return Paths{AppDir: absApp, DataDir: absData}, nil
}

// DefaultDataDir returns the platform data directory:
//
//	Windows: %LOCALAPPDATA%\PandocGUI
//	macOS:   ~/Library/Application Support/PandocGUI
//	other:   $XDG_DATA_HOME/PandocGUI or ~/.local/share/PandocGUI
func DefaultDataDir() (string, error) {
	return dataDir(runtime.GOOS, os.Getenv, os.UserHomeDir)
}

func dataDir(goos string, getenv func(string) string, home func() (string, error)) (string, error) {
	h, err := home()
	if err != nil {
		return "", fmt.Errorf("locating home directory: %w", err)
	}

	switch goos {
	case "windows":
		base := getenv("LOCALAPPDATA")
		if base == "" {
			base = h
		}
		return filepath.Join(base, appName), nil
	case "darwin":
		return filepath.Join(h, "Library", "Application Support", appName), nil
	default:
		base := getenv("XDG_DATA_HOME")
		if base == "" {
			base = filepath.Join(h, ".local", "share")
		}
		return filepath.Join(base, appName), nil
	}
}

// Init creates the data directory layout and copies the shipped folders
// into it. profiles/ and stylesheets/ are copied only when absent so user
// edits survive upgrades; filters/ is refreshed on every start by
// overwriting the shipped files while leaving user-added filters alone.
func (p Paths) Init() error {
	for _, name := range []string{profilesDir, stylesheetsDir} {
		src := filepath.Join(p.AppDir, name)
		dst := filepath.Join(p.DataDir, name)
		if !isDir(src) || exists(dst) {
			continue
		}
		if err := copyTree(src, dst); err != nil {
			return fmt.Errorf("seeding %s: %w", name, err)
		}
	}

	if err := p.refreshFilters(); err != nil {
		return err
	}

	if err := os.MkdirAll(p.ProfileDir(), 0o755); err != nil {
		return fmt.Errorf("creating profile directory: %w", err)
	}
	return nil
}

func (p Paths) refreshFilters() error {
	src := filepath.Join(p.AppDir, filtersDir)
	dst := filepath.Join(p.DataDir, filtersDir)
	if !isDir(src) {
		return nil
	}
	if !exists(dst) {
		if err := copyTree(src, dst); err != nil {
			return fmt.Errorf("seeding filters: %w", err)
		}
		return nil
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("reading %s: %w", src, err)
	}
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if err := CopyFile(filepath.Join(src, e.Name()), filepath.Join(dst, e.Name())); err != nil {
			return fmt.Errorf("updating filter %s: %w", e.Name(), err)
		}
	}
	return nil
}

// CopyFile copies src to dst byte for byte and carries over the file mode
// and modification time.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	// OpenFile only applies the mode when it creates dst.
	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return CopyFile(path, target)
	})
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
