package app

import (
	"io/fs"
	"path/filepath"
	"sort"

	"elision/internal/core/errors"
	"elision/internal/shared/util"
)

// ScanDirectories lists the analysable source files under paths, skipping
// excluded directories and files and the rewrite output directory.
func (a *App) ScanDirectories(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string

	rewriteDir := a.Config().Output.RewriteDir
	for _, root := range uniqueScanRoots(paths) {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			base := filepath.Base(path)
			if d.IsDir() {
				if path != root && a.excludedDir(base) {
					return filepath.SkipDir
				}
				if rewriteDir != "" && path != root && util.HasPathPrefix(path, rewriteDir) {
					return filepath.SkipDir
				}
				return nil
			}

			if !a.parser.IsSupportedPath(path) || a.excludedFile(base) {
				return nil
			}
			if !seen[path] {
				seen[path] = true
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "scan directory"), errors.CtxPath, root)
		}
	}

	sort.Strings(files)
	return files, nil
}

func (a *App) excludedDir(base string) bool {
	for _, g := range a.excludeDirs {
		if g.Match(base) {
			return true
		}
	}
	return false
}

func (a *App) excludedFile(base string) bool {
	for _, g := range a.excludeFiles {
		if g.Match(base) {
			return true
		}
	}
	return false
}

// uniqueScanRoots cleans paths and drops roots nested inside another root.
func uniqueScanRoots(paths []string) []string {
	cleaned := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		cleaned = append(cleaned, filepath.Clean(p))
	}
	sort.Strings(cleaned)

	out := make([]string, 0, len(cleaned))
	for _, p := range cleaned {
		nested := false
		for _, kept := range out {
			if util.HasPathPrefix(p, kept) {
				nested = true
				break
			}
		}
		if !nested {
			out = append(out, p)
		}
	}
	return out
}
