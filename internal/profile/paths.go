// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package profile

import (
	"path/filepath"
	"strings"
)

// Relativize returns the stored form of path: relative to dataDir when the
// path lies under it, absolute otherwise. An empty path stays empty.
func Relativize(dataDir, path string) string {
	if path == "" {
		return ""
	}
	abs := normalize(path)
	root := normalize(dataDir)

	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return abs
	}
	return rel
}

// Resolve reverses Relativize. Absolute inputs are returned cleaned;
// relative inputs are joined onto dataDir. An empty input stays empty.
func Resolve(dataDir, stored string) string {
	if stored == "" {
		return ""
	}
	if filepath.IsAbs(stored) {
		return filepath.Clean(stored)
	}
	return normalize(filepath.Join(normalize(dataDir), stored))
}

// normalize makes path absolute and resolves symlinks in its longest
// existing prefix, so that a data directory reached through a symlink
// compares equal whether or not the file itself exists yet.
func normalize(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}

	rest := ""
	dir := abs
	for {
		if real, err := filepath.EvalSymlinks(dir); err == nil {
			return filepath.Join(real, rest)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return abs
		}
		rest = filepath.Join(filepath.Base(dir), rest)
		dir = parent
	}
}
