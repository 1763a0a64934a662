//go:build mage

// Package main contains Mage build targets for pandoc-runner developer tooling.
package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir  = "bin"
	binName = "pandoc-runner"
	cmdPkg  = "./cmd/pandoc-runner"
)

// appDirs are the seed folders the binary copies into a new data directory.
var appDirs = []string{
	"profiles",
	"filters",
	"stylesheets",
}

// Init lays out bin/ as an application directory: the seed folders next
// to the binary and the shipped default profile.
func Init() error {
	for _, dir := range appDirs {
		path := filepath.Join(binDir, dir)
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
		fmt.Println("  ", path)
	}
	data, err := os.ReadFile(filepath.Join("internal", "profile", "default.json"))
	if err != nil {
		return fmt.Errorf("reading default profile: %w", err)
	}
	dst := filepath.Join(binDir, "profiles", "default.json")
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", dst, err)
	}
	fmt.Println("  ", dst)
	fmt.Println("Application directory initialized.")
	return nil
}

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	version, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil {
		version = "dev"
	}
	out := filepath.Join(binDir, binName)
	if err := sh.RunV("go", "build", "-ldflags", "-X main.version="+version, "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s (%s)\n", out, version)
	return nil
}

// Test runs the unit tests with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Lint runs go vet.
func Lint() error {
	return sh.RunV("go", "vet", "./...")
}

// Check runs Lint and Test.
func Check() {
	mg.SerialDeps(Lint, Test)
}

// Stats prints non-blank line counts for Go code, tests and the shipped
// Lua filters and stylesheets, plus the word count of the docs.
func Stats() error {
	var st treeStats
	if err := filepath.WalkDir(".", st.visit); err != nil {
		return err
	}

	fmt.Printf("Go (production):  %6d lines\n", st.goLines)
	fmt.Printf("Go (tests):       %6d lines\n", st.testLines)
	fmt.Printf("Lua filters:      %6d lines\n", st.luaLines)
	fmt.Printf("Stylesheets:      %6d lines\n", st.cssLines)
	fmt.Printf("Docs, profiles:   %6d words\n", st.docWords)
	return nil
}

type treeStats struct {
	goLines, testLines, luaLines, cssLines, docWords int
}

func (st *treeStats) visit(path string, d fs.DirEntry, err error) error {
	if err != nil {
		return err
	}
	if d.IsDir() {
		if path != "." && (d.Name() == ".git" || d.Name() == binDir) {
			return filepath.SkipDir
		}
		return nil
	}

	var counter *int
	words := false
	switch ext := filepath.Ext(path); {
	case strings.HasSuffix(path, "_test.go"):
		counter = &st.testLines
	case ext == ".go":
		counter = &st.goLines
	case ext == ".lua":
		counter = &st.luaLines
	case ext == ".css":
		counter = &st.cssLines
	case ext == ".md" || ext == ".yaml" || ext == ".yml":
		counter, words = &st.docWords, true
	default:
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if words {
		*counter += len(strings.Fields(string(data)))
		return nil
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) != "" {
			*counter++
		}
	}
	return nil
}
