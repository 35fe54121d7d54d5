package app

import (
	"context"
	"log/slog"

	"elision/internal/engine/elision"
	"elision/internal/engine/loader"
	"elision/internal/engine/rewrite"
)

// RuntimeOrder simulates loading entry after rewriting: it returns the
// analysed modules in the order they would be initialized. Modules whose
// only imports were elided never appear. Package specifiers and specifiers
// outside the analysed set are ignored.
func (a *App) RuntimeOrder(ctx context.Context, entry string) ([]string, error) {
	results := a.Results()
	known := make(map[string]bool, len(results))
	for _, res := range results {
		known[res.Path] = true
	}

	registry := loader.NewRegistry()
	for _, res := range results {
		if err := registry.Define(res.Path, runtimeDeps(res, known), nil); err != nil {
			return nil, err
		}
	}
	if err := registry.Load(ctx, entry); err != nil {
		return nil, err
	}
	return registry.Order(), nil
}

func runtimeDeps(res *elision.Result, known map[string]bool) []string {
	var deps []string
	for _, spec := range rewrite.RuntimeSpecifiers(res) {
		resolved := ""
		for _, candidate := range elision.Candidates(res.Path, spec) {
			if known[candidate] {
				resolved = candidate
				break
			}
		}
		if resolved == "" {
			if elision.IsRelativeSpecifier(spec) {
				slog.Debug("runtime dependency outside analysed files", "path", res.Path, "specifier", spec)
			}
			continue
		}
		deps = append(deps, resolved)
	}
	return deps
}
