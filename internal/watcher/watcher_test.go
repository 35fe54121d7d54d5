package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"elision/internal/core/errors"
	"elision/internal/shared/util"
)

func TestNewWatcher_RejectsNilCallback(t *testing.T) {
	w, err := NewWatcher(100*time.Millisecond, nil, nil, nil)
	if !errors.IsCode(err, errors.CodeValidationError) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if w != nil {
		t.Fatal("expected nil watcher when callback is invalid")
	}
}

func TestNewWatcher_RejectsBadGlob(t *testing.T) {
	_, err := NewWatcher(time.Millisecond, []string{"["}, nil, func(context.Context, []string) {})
	if !errors.IsCode(err, errors.CodeValidationError) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestWatcher_DeliversSourceChanges(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.Mkdir(filepath.Join(tmpDir, "node_modules"), 0o755); err != nil {
		t.Fatal(err)
	}

	changed := make(chan []string, 4)
	w, err := NewWatcher(100*time.Millisecond, []string{"node_modules"}, []string{"*.d.ts"}, func(_ context.Context, paths []string) {
		changed <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	w.SetLimiter(util.NewLimiter(100, 1))
	defer w.Close()

	if err := w.Watch(context.Background(), []string{tmpDir}); err != nil {
		t.Fatal(err)
	}

	source := filepath.Join(tmpDir, "a.ts")
	for _, name := range []string{"ignored.txt", "types.d.ts", filepath.Join("node_modules", "dep.ts")} {
		if err := os.WriteFile(filepath.Join(tmpDir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(source, []byte("export const a = 1;"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case paths := <-changed:
		if len(paths) != 1 || paths[0] != source {
			t.Errorf("expected only %s, got %v", source, paths)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for file change event")
	}
}

func TestWatcher_PicksUpNewDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	changed := make(chan []string, 4)
	w, err := NewWatcher(100*time.Millisecond, nil, nil, func(_ context.Context, paths []string) {
		changed <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	w.SetExtensions([]string{".tsx"})
	defer w.Close()
	if err := w.Watch(context.Background(), []string{tmpDir}); err != nil {
		t.Fatal(err)
	}

	sub := filepath.Join(tmpDir, "pkg")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	target := filepath.Join(sub, "view.tsx")
	if err := os.WriteFile(target, []byte("export {}"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(3 * time.Second)
	for {
		select {
		case paths := <-changed:
			for _, p := range paths {
				if p == target {
					return
				}
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", target)
		}
	}
}

func TestWatcher_CloseWithoutWatch(t *testing.T) {
	w, err := NewWatcher(time.Millisecond, nil, nil, func(context.Context, []string) {})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}
