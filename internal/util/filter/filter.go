// Package filter matches remote entry names against include/exclude
// globs and search terms.
package filter

import (
	"path"
	"strings"
)

// Config holds filter configuration.
type Config struct {
	// Include patterns (glob-style). Empty means include all.
	// Example: []string{"*.dat", "*.txt"}
	Include []string

	// Exclude patterns (glob-style). Takes precedence over Include.
	Exclude []string

	// Search terms (case-insensitive substring match).
	// A name must contain ALL search terms to be included.
	Search []string
}

// IsEmpty reports whether the config filters nothing out.
func (c Config) IsEmpty() bool {
	return len(c.Include) == 0 && len(c.Exclude) == 0 && len(c.Search) == 0
}

// Match reports whether name passes the filter.
// Malformed patterns never match.
func Match(name string, config Config) bool {
	for _, pattern := range config.Exclude {
		if matched, _ := path.Match(pattern, name); matched {
			return false
		}
	}

	if len(config.Include) > 0 {
		included := false
		for _, pattern := range config.Include {
			if matched, _ := path.Match(pattern, name); matched {
				included = true
				break
			}
		}
		if !included {
			return false
		}
	}

	lower := strings.ToLower(name)
	for _, term := range config.Search {
		if !strings.Contains(lower, strings.ToLower(term)) {
			return false
		}
	}
	return true
}

// Apply returns the items whose name passes the filter. Items for which
// keep returns true are retained without matching, e.g. directories.
func Apply[T any](items []T, config Config, name func(T) string, keep func(T) bool) []T {
	if config.IsEmpty() {
		return items
	}
	filtered := make([]T, 0, len(items))
	for _, it := range items {
		if (keep != nil && keep(it)) || Match(name(it), config) {
			filtered = append(filtered, it)
		}
	}
	return filtered
}

// ParsePatternList parses a comma-separated list of patterns into a slice.
// Example: "*.dat,*.txt" -> []string{"*.dat", "*.txt"}
func ParsePatternList(patternStr string) []string {
	if patternStr == "" {
		return nil
	}
	parts := strings.Split(patternStr, ",")
	patterns := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			patterns = append(patterns, trimmed)
		}
	}
	return patterns
}
