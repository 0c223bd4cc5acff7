package util

import (
	"path"
	"sort"
	"strings"
)

// NormalizePath cleans a path for cross-platform comparison: forward slashes,
// no leading "./".
func NormalizePath(s string) string {
	trimmed := strings.TrimSpace(strings.ReplaceAll(s, "\\", "/"))
	clean := path.Clean(trimmed)
	if clean == "." {
		return ""
	}
	return strings.TrimPrefix(clean, "./")
}

// HasPathPrefix returns true when p equals prefix or is contained within prefix.
func HasPathPrefix(p, prefix string) bool {
	p = NormalizePath(p)
	prefix = NormalizePath(prefix)
	if p == "" || prefix == "" {
		return p == prefix
	}
	if p == prefix {
		return true
	}
	return strings.HasPrefix(p, prefix+"/")
}

// SortedStringKeys returns the map's keys in sorted order.
func SortedStringKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
