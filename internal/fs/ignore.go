package fs

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// IgnoreFileName is the per-project ignore file, read from the project root.
const IgnoreFileName = ".rewindignore"

// ignorePattern is a parsed ignore pattern with its matching strategy.
type ignorePattern struct {
	pattern   string
	matchPath bool // true = match against relative path; false = match against basename only
}

// IgnoreMatcher checks file paths against a set of ignore patterns.
// Patterns without '/' match against any single path component, so ".git"
// ignores everything beneath a .git directory.
// Patterns with '/' match against the full relative path from the project root.
type IgnoreMatcher struct {
	patterns []ignorePattern
}

// NewIgnoreMatcher creates an IgnoreMatcher from raw pattern strings.
// Blank lines and lines starting with '#' are skipped.
func NewIgnoreMatcher(rawPatterns []string) *IgnoreMatcher {
	var patterns []ignorePattern
	for _, raw := range rawPatterns {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		patterns = append(patterns, ignorePattern{
			pattern:   raw,
			matchPath: strings.Contains(raw, "/"),
		})
	}
	return &IgnoreMatcher{patterns: patterns}
}

// Match reports whether the given relative path should be ignored.
// relativePath should use filepath separators and be relative to the project root.
func (m *IgnoreMatcher) Match(relativePath string) bool {
	if len(m.patterns) == 0 {
		return false
	}

	normalized := filepath.ToSlash(filepath.Clean(relativePath))
	if relativePath == "" || normalized == "." {
		return false
	}
	components := strings.Split(normalized, "/")

	for _, p := range m.patterns {
		if p.matchPath {
			// A path pattern also covers everything beneath the directory it names.
			for i := 1; i <= len(components); i++ {
				if matched, _ := path.Match(p.pattern, strings.Join(components[:i], "/")); matched {
					return true
				}
			}
			continue
		}
		for _, c := range components {
			// Bad patterns never match.
			if matched, _ := path.Match(p.pattern, c); matched {
				return true
			}
		}
	}
	return false
}

// LoadIgnoreMatcher combines the configured patterns with those in the
// project's ignore file. The ignore file itself is always ignored.
func LoadIgnoreMatcher(projectRoot string, configured []string) (*IgnoreMatcher, error) {
	fromFile, err := ParseIgnoreFile(filepath.Join(projectRoot, IgnoreFileName))
	if err != nil {
		return nil, err
	}

	patterns := append([]string{IgnoreFileName}, configured...)
	return NewIgnoreMatcher(append(patterns, fromFile...)), nil
}

// ParseIgnoreFile reads an ignore file and returns the raw pattern strings.
// Returns nil and no error if the file does not exist.
func ParseIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return patterns, nil
}
