package util

import (
	"path"
	"path/filepath"
	"strings"
)

// NormalizePatternPath cleans s to forward slashes without a leading "./".
// The current directory normalizes to "".
func NormalizePatternPath(s string) string {
	trimmed := strings.TrimSpace(strings.ReplaceAll(s, "\\", "/"))
	clean := path.Clean(trimmed)
	if clean == "." {
		return ""
	}
	return strings.TrimPrefix(clean, "./")
}

// HasPathPrefix reports whether p equals prefix or lies below it.
func HasPathPrefix(p, prefix string) bool {
	p = NormalizePatternPath(p)
	prefix = NormalizePatternPath(prefix)
	if p == "" || prefix == "" {
		return p == prefix
	}
	if p == prefix {
		return true
	}
	return strings.HasPrefix(p, prefix+"/")
}

// RelativeUnder returns p relative to the first root containing it. The
// current directory contains every relative path. Paths outside all roots
// fall back to their base name.
func RelativeUnder(roots []string, p string) string {
	for _, root := range roots {
		if NormalizePatternPath(root) != "" && !HasPathPrefix(p, root) {
			continue
		}
		if filepath.IsAbs(root) != filepath.IsAbs(p) {
			continue
		}
		if rel, err := filepath.Rel(root, p); err == nil && rel != "." && !strings.HasPrefix(rel, "..") {
			return rel
		}
	}
	return filepath.Base(p)
}
