//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Convert builds the binary and converts input into output with the
// default profile, e.g. mage convert docs site.
func Convert(input, output string) error {
	mg.Deps(Init, Build)
	return sh.RunV("./bin/"+binName, "convert", "-i", input, "-o", output)
}

// Preview builds the binary and serves an HTML page until interrupted.
func Preview(page string) error {
	mg.Deps(Build)
	return sh.RunV("./bin/"+binName, "preview", page)
}
