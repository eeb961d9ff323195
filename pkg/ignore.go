package findduplicatefiles

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// IgnoreManager matches root-relative paths against ignore patterns.
//
// Patterns are Go regular expressions, one per line in an ignore file.
// Lines starting with # and blank lines are skipped.
type IgnoreManager struct {
	ignorePath string
	patterns   []*regexp.Regexp
}

// NewIgnoreManager creates an ignore manager with the given patterns
func NewIgnoreManager(patterns ...string) (*IgnoreManager, error) {
	im := &IgnoreManager{}
	for _, p := range patterns {
		if err := im.AddPattern(p); err != nil {
			return nil, err
		}
	}
	return im, nil
}

// LoadIgnoreFile loads ignore patterns from the file at path
func LoadIgnoreFile(path string) (*IgnoreManager, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ignore file: %w", err)
	}
	defer file.Close()

	im := &IgnoreManager{ignorePath: path}
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		pattern, err := regexp.Compile(line)
		if err != nil {
			return nil, fmt.Errorf("invalid regex pattern at line %d: %s - %w", lineNum, line, err)
		}
		im.patterns = append(im.patterns, pattern)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading ignore file: %w", err)
	}

	return im, nil
}

// AddPattern adds a new ignore pattern
func (im *IgnoreManager) AddPattern(patternStr string) error {
	pattern, err := regexp.Compile(patternStr)
	if err != nil {
		return fmt.Errorf("invalid regex pattern: %s - %w", patternStr, err)
	}

	im.patterns = append(im.patterns, pattern)
	return nil
}

// ShouldIgnore checks if a path should be ignored based on patterns.
// A nil manager ignores nothing.
func (im *IgnoreManager) ShouldIgnore(relativePath string) bool {
	if im == nil {
		return false
	}

	// Normalise path separators to forward slashes for consistent pattern matching
	normalisedPath := filepath.ToSlash(relativePath)

	for _, pattern := range im.patterns {
		if pattern.MatchString(normalisedPath) {
			return true
		}
	}

	return false
}

// Patterns returns the source text of every loaded pattern
func (im *IgnoreManager) Patterns() []string {
	if im == nil {
		return nil
	}
	out := make([]string, len(im.patterns))
	for i, p := range im.patterns {
		out[i] = p.String()
	}
	return out
}

// Path returns the file the patterns were loaded from, if any
func (im *IgnoreManager) Path() string {
	if im == nil {
		return ""
	}
	return im.ignorePath
}
