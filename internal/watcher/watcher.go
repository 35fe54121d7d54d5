package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"elision/internal/core/errors"
	"elision/internal/shared/observability"
	"elision/internal/shared/util"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
)

// Watcher batches file system changes to source files and hands them to a
// callback once the tree has been quiet for the debounce interval.
type Watcher struct {
	fsWatcher    *fsnotify.Watcher
	excludeDirs  []glob.Glob
	excludeFiles []glob.Glob
	extensions   map[string]bool
	limiter      *util.Limiter
	onChange     func(ctx context.Context, paths []string)
	callbackMu   sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]struct{}
	debounce  time.Duration
	timer     *time.Timer

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewWatcher(debounce time.Duration, excludeDirs, excludeFiles []string, onChange func(context.Context, []string)) (*Watcher, error) {
	if onChange == nil {
		return nil, errors.New(errors.CodeValidationError, "watcher callback must not be nil")
	}

	compiledDirs, err := compileAll(excludeDirs)
	if err != nil {
		return nil, err
	}
	compiledFiles, err := compileAll(excludeFiles)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "create fsnotify watcher")
	}

	return &Watcher{
		fsWatcher:    fsw,
		excludeDirs:  compiledDirs,
		excludeFiles: compiledFiles,
		extensions:   map[string]bool{".ts": true, ".tsx": true, ".mts": true, ".cts": true},
		onChange:     onChange,
		pending:      make(map[string]struct{}),
		debounce:     debounce,
		done:         make(chan struct{}),
	}, nil
}

func compileAll(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeValidationError, fmt.Sprintf("invalid exclude pattern %q", pattern))
		}
		out = append(out, g)
	}
	return out, nil
}

// SetExtensions replaces the set of file extensions that trigger callbacks.
func (w *Watcher) SetExtensions(exts []string) {
	filter := make(map[string]bool, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" {
			filter[ext] = true
		}
	}
	w.extensions = filter
}

// SetLimiter throttles how often batches are delivered. A nil limiter
// delivers every batch immediately.
func (w *Watcher) SetLimiter(l *util.Limiter) {
	w.limiter = l
}

// Watch adds every non-excluded directory under paths and starts delivering
// batches until ctx is cancelled or Close is called.
func (w *Watcher) Watch(ctx context.Context, paths []string) error {
	for _, path := range paths {
		if err := w.watchRecursive(path); err != nil {
			return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "watch directory"), errors.CtxPath, path)
		}
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	go w.run()
	return nil
}

func (w *Watcher) watchRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if path != root && w.shouldExcludeDir(path) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

func (w *Watcher) run() {
	defer close(w.done)
	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			observability.WatcherEventsTotal.Inc()

			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if !w.shouldExcludeDir(event.Name) {
						if err := w.watchRecursive(event.Name); err != nil {
							slog.Warn("failed to watch new directory", "path", event.Name, "error", err)
						} else {
							w.enqueueExistingFiles(event.Name)
						}
					}
					continue
				}
			}

			if w.shouldExcludeFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.scheduleChange(event.Name)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) scheduleChange(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.pending[path] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flushChanges)
}

func (w *Watcher) flushChanges() {
	w.callbackMu.Lock()
	defer w.callbackMu.Unlock()

	if w.limiter != nil {
		throttled, err := w.limiter.Throttle(w.ctx)
		if throttled {
			observability.WatcherThrottledTotal.Inc()
		}
		if err != nil {
			return
		}
	}

	w.pendingMu.Lock()
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		paths = append(paths, path)
	}
	w.pending = make(map[string]struct{})
	w.pendingMu.Unlock()

	if len(paths) == 0 || w.ctx.Err() != nil {
		return
	}
	sort.Strings(paths)
	w.onChange(w.ctx, paths)
}

func (w *Watcher) shouldExcludeDir(path string) bool {
	base := filepath.Base(path)
	for _, g := range w.excludeDirs {
		if g.Match(base) {
			return true
		}
	}
	return false
}

func (w *Watcher) shouldExcludeFile(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	if !w.extensions[strings.ToLower(filepath.Ext(base))] {
		return true
	}
	for _, g := range w.excludeFiles {
		if g.Match(base) {
			return true
		}
	}
	return false
}

func (w *Watcher) enqueueExistingFiles(root string) {
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil || info.IsDir() {
			return nil
		}
		if !w.shouldExcludeFile(path) {
			w.scheduleChange(path)
		}
		return nil
	})
}

// Close stops event delivery and waits for the event loop to exit.
func (w *Watcher) Close() error {
	w.pendingMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pendingMu.Unlock()
	if w.cancel != nil {
		w.cancel()
	}
	err := w.fsWatcher.Close()
	if w.ctx != nil {
		<-w.done
	}
	return err
}
