package app

import (
	"context"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"elision/internal/core/config"
	"elision/internal/core/errors"
	"elision/internal/core/ports"
	"elision/internal/data/history"
	"elision/internal/engine/cache"
	"elision/internal/engine/elision"
	"elision/internal/engine/parser"
	"elision/internal/watcher"

	"github.com/gobwas/glob"
)

// App owns the analysis pipeline for one project: scanning, the per-module
// analyzer, the result cache, reporting, history and watch mode.
type App struct {
	// cfg is replaced whole on reload and never mutated in place.
	cfg atomic.Pointer[config.Config]

	parser   ports.CodeParser
	analyzer *elision.Analyzer
	cache    *cache.Results
	history  ports.HistoryStore

	excludeDirs  []glob.Glob
	excludeFiles []glob.Glob

	mu       sync.RWMutex
	results  map[string]*elision.Result
	failures map[string]error

	updateMu sync.RWMutex
	onUpdate func(ports.WatchUpdate)

	activeWatcher *watcher.Watcher
	configWatcher *config.Watcher
}

func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	registry, err := parser.BuildLanguageRegistry(cfg.LanguageOverrides())
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "build language registry")
	}
	loader, err := parser.NewGrammarLoaderWithRegistry(registry)
	if err != nil {
		return nil, err
	}

	excludeDirs, err := compileGlobs(cfg.Exclude.Dirs)
	if err != nil {
		return nil, err
	}
	excludeFiles, err := compileGlobs(cfg.Exclude.Files)
	if err != nil {
		return nil, err
	}

	a := &App{
		parser:       parser.NewParser(loader),
		analyzer:     elision.New(cfg.AnalyzerOptions()),
		cache:        cache.NewResults(cfg.Cache.Capacity),
		excludeDirs:  excludeDirs,
		excludeFiles: excludeFiles,
		results:      make(map[string]*elision.Result),
		failures:     make(map[string]error),
	}
	a.cfg.Store(cfg)

	if cfg.History.Enabled {
		store, err := history.Open(cfg.History.Path, cfg.History.BusyTimeout)
		if err != nil {
			return nil, err
		}
		a.history = store
	}
	return a, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeValidationError, "invalid exclude pattern "+p)
		}
		out = append(out, g)
	}
	return out, nil
}

// SetUpdateHandler registers a callback for watch-mode updates.
func (a *App) SetUpdateHandler(fn func(ports.WatchUpdate)) {
	a.updateMu.Lock()
	defer a.updateMu.Unlock()
	a.onUpdate = fn
}

func (a *App) emitUpdate(u ports.WatchUpdate) {
	a.updateMu.RLock()
	fn := a.onUpdate
	a.updateMu.RUnlock()
	if fn != nil {
		fn(u)
	}
}

// SetHistoryStore replaces the history backend; nil disables recording.
func (a *App) SetHistoryStore(store ports.HistoryStore) {
	a.history = store
}

func (a *App) AnalyzerOptions() elision.Options {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.analyzer.Options()
}

// Config returns the current configuration snapshot. Callers must not
// modify it.
func (a *App) Config() *config.Config {
	return a.cfg.Load()
}

// ApplyConfig swaps in the analysis and output settings of cfg. Cached
// results keyed by the old options are no longer hit.
func (a *App) ApplyConfig(cfg *config.Config) {
	a.mu.Lock()
	next := *a.Config()
	next.Analysis = cfg.Analysis
	next.Output = cfg.Output
	a.analyzer = elision.New(cfg.AnalyzerOptions())
	a.cfg.Store(&next)
	a.mu.Unlock()
	slog.Info("analysis options updated", "options", cfg.AnalyzerOptions().Fingerprint())
}

// Results returns the current module results sorted by path.
func (a *App) Results() []*elision.Result {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]*elision.Result, 0, len(a.results))
	for _, res := range a.results {
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Result returns the stored analysis of path.
func (a *App) Result(path string) (*elision.Result, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	res, ok := a.results[path]
	return res, ok
}

// HasErrors reports whether any stored module has an error diagnostic.
func (a *App) HasErrors() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, res := range a.results {
		if res.HasErrors() {
			return true
		}
	}
	return false
}

func (a *App) workerCount() int {
	if n := a.Config().Workers.Count; n > 0 {
		return n
	}
	return runtime.NumCPU()
}

func (a *App) Close(ctx context.Context) error {
	if a.configWatcher != nil {
		a.configWatcher.Stop()
	}
	if a.activeWatcher != nil {
		if err := a.activeWatcher.Close(); err != nil {
			slog.Warn("close watcher", "error", err)
		}
	}
	if a.history != nil {
		return a.history.Close()
	}
	return nil
}
