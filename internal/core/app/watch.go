package app

import (
	"context"
	"log/slog"
	"os"
	"sort"

	"elision/internal/core/config"
	"elision/internal/core/errors"
	"elision/internal/core/ports"
	"elision/internal/engine/elision"
	"elision/internal/shared/util"
	"elision/internal/watcher"
)

// StartWatcher watches the configured paths and re-analyses changed files.
// It returns once the watcher is running; updates are delivered through the
// handler registered with SetUpdateHandler.
func (a *App) StartWatcher(ctx context.Context) error {
	cfg := a.Config()
	w, err := watcher.NewWatcher(
		cfg.Watch.Debounce,
		cfg.Exclude.Dirs,
		cfg.Exclude.Files,
		func(ctx context.Context, paths []string) {
			if _, err := a.HandleChanges(ctx, paths); err != nil {
				slog.Error("failed to handle changes", "error", err)
			}
		},
	)
	if err != nil {
		return err
	}
	w.SetExtensions(a.parser.SupportedExtensions())
	if rate := cfg.Watch.MaxBatchesPerSecond; rate > 0 {
		w.SetLimiter(util.NewLimiter(rate, 1))
	}
	if err := w.Watch(ctx, cfg.WatchPaths); err != nil {
		_ = w.Close()
		return err
	}
	a.activeWatcher = w
	slog.Info("watching for changes", "paths", cfg.WatchPaths)
	return nil
}

// WatchConfig reloads analysis and output settings when the config file at
// path changes. Scan roots and exclusions require a restart.
func (a *App) WatchConfig(ctx context.Context, path string) error {
	cw := config.NewWatcher(path, func(cfg *config.Config) {
		a.ApplyConfig(cfg)
		if _, err := a.AnalyzeAll(ctx); err != nil {
			slog.Error("re-analysis after config change failed", "error", err)
			return
		}
		a.publish(nil, nil)
	})
	if err := cw.Start(ctx); err != nil {
		return err
	}
	a.configWatcher = cw
	return nil
}

// HandleChanges re-analyses the changed paths. Deleted files are dropped
// from the results. With specifier checks enabled a change can alter the
// diagnostics of other modules, so the whole cache is flushed and every
// known module is re-analysed.
func (a *App) HandleChanges(ctx context.Context, paths []string) (ports.WatchUpdate, error) {
	rewriteDir := a.Config().Output.RewriteDir
	var changed, removed []string
	for _, path := range paths {
		if rewriteDir != "" && util.HasPathPrefix(path, rewriteDir) {
			continue
		}
		a.cache.EvictPath(path)
		if _, err := os.Stat(path); err != nil {
			removed = append(removed, path)
			continue
		}
		if !a.parser.IsSupportedPath(path) {
			continue
		}
		changed = append(changed, path)
	}
	if len(changed) == 0 && len(removed) == 0 {
		return ports.WatchUpdate{}, nil
	}

	a.mu.Lock()
	for _, path := range removed {
		delete(a.results, path)
		delete(a.failures, path)
	}
	a.mu.Unlock()

	targets := changed
	if a.AnalyzerOptions().Locator != nil {
		a.cache.EvictAll()
		targets = a.knownPaths(changed)
	}

	if _, err := a.AnalyzeFiles(ctx, targets); err != nil {
		return ports.WatchUpdate{}, err
	}

	results := make([]*elision.Result, 0, len(targets))
	for _, path := range targets {
		if res, ok := a.Result(path); ok {
			results = append(results, res)
		}
	}
	if _, err := a.WriteRewrites(results); err != nil {
		slog.Warn("failed to write rewrites", "error", err)
	}
	for _, path := range removed {
		if target := a.RewriteTarget(path); target != "" {
			if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
				slog.Warn("failed to remove stale rewrite", "path", target, "error", err)
			}
		}
	}

	update := a.publish(changed, removed)
	slog.Info("re-analysed changes", "changed", len(changed), "removed", len(removed), "errors", update.Errors)
	return update, nil
}

// knownPaths merges extra into the set of currently analysed paths.
func (a *App) knownPaths(extra []string) []string {
	set := make(map[string]bool)
	a.mu.RLock()
	for path := range a.results {
		set[path] = true
	}
	for path := range a.failures {
		set[path] = true
	}
	a.mu.RUnlock()
	for _, path := range extra {
		set[path] = true
	}
	out := make([]string, 0, len(set))
	for path := range set {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

func (a *App) publish(changed, removed []string) ports.WatchUpdate {
	update := ports.WatchUpdate{Changed: changed, Removed: removed}
	for _, res := range a.Results() {
		update.Files++
		if res.HasErrors() {
			update.Errors++
		}
	}
	rendered, err := a.Render()
	if err != nil {
		slog.Warn("failed to render report", "error", errors.AddContext(err, errors.CtxOperation, "watch"))
	} else {
		update.Rendered = rendered
	}
	a.emitUpdate(update)
	return update
}
