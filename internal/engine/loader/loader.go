package loader

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"elision/internal/core/errors"
)

// InitFunc runs a module's top-level code.
type InitFunc func(ctx context.Context) error

type module struct {
	id   string
	deps []string
	init InitFunc

	once sync.Once
	err  error
}

// Registry models the runtime module loader: every module is initialized at
// most once per registry, after the modules it still imports at runtime.
type Registry struct {
	mu      sync.Mutex
	modules map[string]*module

	// loadMu serializes loads; module evaluation is single-threaded.
	loadMu sync.Mutex
	order  []string
}

func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]*module)}
}

// Define registers a module with the ids of its runtime dependencies.
func (r *Registry) Define(id string, deps []string, init InitFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.modules[id]; ok {
		return errors.AddContext(errors.New(errors.CodeValidationError, "module already defined"), errors.CtxPath, id)
	}
	r.modules[id] = &module{id: id, deps: append([]string(nil), deps...), init: init}
	return nil
}

// Load initializes id and, first, its dependencies. A module already on the
// current load path is skipped, which lets cycles observe partially
// initialized modules instead of deadlocking.
func (r *Registry) Load(ctx context.Context, id string) error {
	r.loadMu.Lock()
	defer r.loadMu.Unlock()
	return r.load(ctx, id, make(map[string]bool))
}

func (r *Registry) load(ctx context.Context, id string, visiting map[string]bool) error {
	if visiting[id] {
		slog.Debug("module cycle", "path", id)
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	m, ok := r.modules[id]
	r.mu.Unlock()
	if !ok {
		return errors.AddContext(errors.New(errors.CodeNotFound, "module not defined"), errors.CtxPath, id)
	}

	visiting[id] = true
	defer delete(visiting, id)

	m.once.Do(func() {
		for _, dep := range m.deps {
			if err := r.load(ctx, dep, visiting); err != nil {
				m.err = fmt.Errorf("load %s: %w", dep, err)
				return
			}
		}
		if m.init != nil {
			if m.err = m.init(ctx); m.err != nil {
				return
			}
		}
		r.order = append(r.order, id)
	})
	return m.err
}

// Loaded reports whether id has been initialized.
func (r *Registry) Loaded(id string) bool {
	r.loadMu.Lock()
	defer r.loadMu.Unlock()
	for _, done := range r.order {
		if done == id {
			return true
		}
	}
	return false
}

// Order returns module ids in initialization order.
func (r *Registry) Order() []string {
	r.loadMu.Lock()
	defer r.loadMu.Unlock()
	return append([]string(nil), r.order...)
}
