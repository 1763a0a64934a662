// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package exclude decides which files a folder conversion skips.
//
// A pattern excludes a relative path when it glob-matches the file name,
// the whole relative path, or any single segment of it. The segment rule
// lets a bare directory name such as "__pycache__" exclude everything
// beneath a directory of that name at any depth. There is no negation.
//
// Globs follow shell fnmatch rules: "*" matches any run of characters
// including the path separator, "?" matches one character, and "[...]" /
// "[!...]" match character classes.
package exclude

import (
	"fmt"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
)

// ShouldExclude reports whether rel matches any of patterns. It compiles
// the patterns on every call; use a Matcher for repeated checks.
func ShouldExclude(rel string, patterns []string) bool {
	return New(patterns).Match(rel)
}

// Matcher holds a compiled pattern set.
type Matcher struct {
	patterns []*regexp.Regexp
	invalid  []string
}

// New compiles patterns. Empty patterns are ignored, and patterns that do
// not compile are skipped and reported by Invalid.
func New(patterns []string) *Matcher {
	m := &Matcher{}
	for _, p := range patterns {
		if p == "" {
			continue
		}
		re, err := compile(p)
		if err != nil {
			m.invalid = append(m.invalid, p)
			continue
		}
		m.patterns = append(m.patterns, re)
	}
	return m
}

// Invalid returns the patterns New skipped.
func (m *Matcher) Invalid() []string { return m.invalid }

// Len returns the number of active patterns.
func (m *Matcher) Len() int { return len(m.patterns) }

// Match reports whether rel, a path relative to the input root, is
// excluded.
func (m *Matcher) Match(rel string) bool {
	if len(m.patterns) == 0 || rel == "" {
		return false
	}
	rel = filepath.ToSlash(filepath.Clean(rel))
	segments := strings.Split(rel, "/")
	name := segments[len(segments)-1]

	for _, re := range m.patterns {
		if re.MatchString(name) || re.MatchString(rel) {
			return true
		}
		for _, seg := range segments {
			if re.MatchString(seg) {
				return true
			}
		}
	}
	return false
}

// compile translates an fnmatch glob into an anchored regular expression.
// Matching is case-insensitive on Windows, as file names are there.
func compile(pattern string) (*regexp.Regexp, error) {
	pattern = filepath.ToSlash(pattern)
	var b strings.Builder
	b.WriteString(`(?s`)
	if runtime.GOOS == "windows" {
		b.WriteString(`i`)
	}
	b.WriteString(`)^`)

	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch c {
		case '*':
			b.WriteString(`.*`)
		case '?':
			b.WriteString(`.`)
		case '[':
			end, class, ok := charClass(pattern, i)
			if !ok {
				b.WriteString(`\[`)
				continue
			}
			b.WriteString(class)
			i = end
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteString(`$`)

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("compiling pattern %q: %w", pattern, err)
	}
	return re, nil
}

// matchNothing is a class no character belongs to.
const matchNothing = `[^\x00-\x{10FFFF}]`

// charClass parses a bracket expression starting at pattern[start] == '['.
// It returns the index of the closing ']' and the regexp class. ok is false
// when the bracket is unterminated, in which case '[' is literal.
//
// Reversed ranges such as "z-a" are dropped. A class left empty matches
// nothing, and its negation matches any character.
func charClass(pattern string, start int) (end int, class string, ok bool) {
	j := start + 1
	if j < len(pattern) && pattern[j] == '!' {
		j++
	}
	if j < len(pattern) && pattern[j] == ']' {
		j++
	}
	for j < len(pattern) && pattern[j] != ']' {
		j++
	}
	if j >= len(pattern) {
		return 0, "", false
	}

	body := []rune(pattern[start+1 : j])
	negate := len(body) > 0 && body[0] == '!'
	if negate {
		body = body[1:]
	}

	var items strings.Builder
	for k := 0; k < len(body); k++ {
		if k+2 < len(body) && body[k+1] == '-' {
			lo, hi := body[k], body[k+2]
			k += 2
			if lo > hi {
				continue
			}
			writeClassRune(&items, lo)
			items.WriteByte('-')
			writeClassRune(&items, hi)
			continue
		}
		writeClassRune(&items, body[k])
	}

	switch {
	case items.Len() == 0 && negate:
		return j, `.`, true
	case items.Len() == 0:
		return j, matchNothing, true
	case negate:
		return j, `[^` + items.String() + `]`, true
	default:
		return j, `[` + items.String() + `]`, true
	}
}

func writeClassRune(b *strings.Builder, r rune) {
	switch r {
	case '\\', '[', ']', '^', '-':
		b.WriteByte('\\')
	}
	b.WriteRune(r)
}
