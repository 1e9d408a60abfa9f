// Package pattern implements include/exclude scoping of file paths using
// regular-expression pattern lists.
package pattern

import (
	"regexp"
	"strings"
)

// WarnFunc receives patterns that fail to compile. May be nil.
type WarnFunc func(pattern string, err error)

// Parse splits a raw pattern list into trimmed, non-empty entries.
// Entries are newline-separated when the raw string contains a newline,
// otherwise comma-separated.
func Parse(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	sep := ","
	if strings.Contains(raw, "\n") {
		sep = "\n"
	}

	var patterns []string
	for _, entry := range strings.Split(raw, sep) {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		patterns = append(patterns, entry)
	}
	return patterns
}

// Matches reports whether any pattern matches candidate as an unanchored
// regular expression. An empty pattern list or empty candidate never
// matches. Patterns that fail to compile are reported through warn and
// treated as non-matching; they never abort the evaluation.
func Matches(patterns []string, candidate string, warn WarnFunc) bool {
	if len(patterns) == 0 || candidate == "" {
		return false
	}

	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			if warn != nil {
				warn(p, err)
			}
			continue
		}
		if re.MatchString(candidate) {
			return true
		}
	}
	return false
}

// InScope applies the file-inclusion policy: a path is in scope iff the
// include list is empty or matches it, and the exclude list does not.
// Exclude always wins over include.
func InScope(include, exclude []string, path string, warn WarnFunc) bool {
	if len(include) > 0 && !Matches(include, path, warn) {
		return false
	}
	return !Matches(exclude, path, warn)
}
