package elision

import (
	"os"
	"path/filepath"
	"strings"
)

// SpecifierLocator decides whether a module specifier names something that
// exists. Implementations must be safe for concurrent use.
type SpecifierLocator interface {
	Locate(fromPath, specifier string) bool
}

var resolvableExtensions = []string{".ts", ".tsx", ".d.ts", ".mts", ".cts", ".js", ".jsx", ".mjs", ".cjs"}

// FileLocator checks relative specifiers against the file system. Bare
// specifiers (packages) are accepted without lookup.
type FileLocator struct {
	stat func(string) (os.FileInfo, error)
}

func NewFileLocator() *FileLocator {
	return &FileLocator{stat: os.Stat}
}

func (l *FileLocator) Locate(fromPath, specifier string) bool {
	if !IsRelativeSpecifier(specifier) {
		return true
	}
	for _, candidate := range Candidates(fromPath, specifier) {
		if info, err := l.stat(candidate); err == nil && !info.IsDir() {
			return true
		}
	}
	return false
}

func IsRelativeSpecifier(specifier string) bool {
	return strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../") || specifier == "." || specifier == ".."
}

// Candidates lists, in lookup order, the files a relative specifier written
// in fromPath may resolve to. Bare specifiers have no candidates.
func Candidates(fromPath, specifier string) []string {
	if !IsRelativeSpecifier(specifier) {
		return nil
	}
	return candidates(filepath.Join(filepath.Dir(fromPath), filepath.FromSlash(specifier)))
}

// candidates lists the paths a relative specifier may resolve to, including
// `.js` specifiers written for files authored as `.ts`.
func candidates(base string) []string {
	out := []string{base}
	stem := base
	switch ext := filepath.Ext(base); ext {
	case ".js", ".jsx", ".mjs", ".cjs":
		stem = strings.TrimSuffix(base, ext)
		out = append(out, stem+strings.Replace(ext, "j", "t", 1))
	}
	for _, ext := range resolvableExtensions {
		out = append(out, stem+ext)
	}
	for _, ext := range resolvableExtensions {
		out = append(out, filepath.Join(base, "index"+ext))
	}
	return out
}
