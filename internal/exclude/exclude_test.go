// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package exclude

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldExclude(t *testing.T) {
	patterns := []string{"*.tmp", "__pycache__"}
	tests := []struct {
		path string
		want bool
	}{
		{"a/b.tmp", true},
		{"a/__pycache__/c.py", true},
		{"a/b.py", false},
		{"b.tmp", true},
		{"__pycache__", true},
		{"deep/x/y/__pycache__/z/w.pyc", true},
		{"a/not__pycache__/c.py", false},
		{"a/b.tmpl", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldExclude(filepath.FromSlash(tt.path), patterns))
		})
	}
}

func TestMatchModes(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		path    string
		want    bool
	}{
		{"file name glob", "*.md", "docs/readme.md", true},
		{"full relative path", "docs/draft.md", "docs/draft.md", true},
		{"full path does not match other dir", "docs/draft.md", "notes/draft.md", false},
		{"star crosses separators", "docs/*", "docs/a/b/c.md", true},
		{"directory name glob", "build*", "build-out/x.html", true},
		{"question mark", "v?.md", "v1.md", true},
		{"question mark one char", "v?.md", "v10.md", false},
		{"char class", "[ab].md", "b.md", true},
		{"negated class", "[!ab].md", "c.md", true},
		{"negated class rejects", "[!ab].md", "a.md", false},
		{"range", "ch[0-9].md", "ch7.md", true},
		{"unterminated bracket is literal", "x[.md", "x[.md", true},
		{"reversed range matches nothing", "[z-a].txt", "b.txt", false},
		{"reversed range beside valid range", "[z-a0-9].txt", "7.txt", true},
		{"negated reversed range matches any", "[!z-a].txt", "b.txt", true},
		{"empty brackets are literal", "x[]", "x[]", true},
		{"negated empty brackets are literal", "x[!]", "x[!]", true},
		{"trailing hyphen is literal", "[a-].md", "-.md", true},
		{"trailing hyphen keeps first char", "[a-].md", "a.md", true},
		{"trailing hyphen is not a range", "[a-].md", "b.md", false},
		{"bracket first in class", "[]a].md", "].md", true},
		{"regexp metachars are literal", "a+b.md", "a+b.md", true},
		{"dot is literal", "a.md", "abmd", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New([]string{tt.pattern})
			assert.Equal(t, tt.want, m.Match(filepath.FromSlash(tt.path)))
		})
	}
}

func TestEmptyPatterns(t *testing.T) {
	assert.False(t, ShouldExclude("a/b.md", nil))
	m := New([]string{"", ""})
	assert.Equal(t, 0, m.Len())
	assert.False(t, m.Match("a/b.md"))
}

func TestAnyPatternMatches(t *testing.T) {
	m := New([]string{"*.bak", "node_modules", "secret.md"})
	assert.Equal(t, 3, m.Len())
	assert.True(t, m.Match("x/node_modules/pkg/readme.md"))
	assert.True(t, m.Match("secret.md"))
	assert.True(t, m.Match("a/b/c.bak"))
	assert.False(t, m.Match("a/b/c.md"))
}

func TestOddClassesCompile(t *testing.T) {
	patterns := []string{"[z-a].txt", "[]", "[!]", "[a-]", "[!z-a]", "[]-]", "[^]"}
	m := New(patterns)
	assert.Empty(t, m.Invalid())
	assert.Equal(t, len(patterns), m.Len())
	assert.NotPanics(t, func() { ShouldExclude("a/b.txt", []string{"[z-a].txt"}) })
	assert.False(t, ShouldExclude("a/b.txt", []string{"[z-a].txt"}))
}
