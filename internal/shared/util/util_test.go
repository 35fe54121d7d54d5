package util

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNormalizePatternPath(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"./src/a.ts":     "src/a.ts",
		`src\lib\b.ts`:   "src/lib/b.ts",
		" ./out/ ":       "out",
		".":              "",
		"a/../b/./c.tsx": "b/c.tsx",
	}
	for in, want := range cases {
		if got := NormalizePatternPath(in); got != want {
			t.Errorf("NormalizePatternPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHasPathPrefix(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		path     string
		prefix   string
		expected bool
	}{
		{name: "Equal", path: "out", prefix: "./out", expected: true},
		{name: "Nested", path: "out/src/a.ts", prefix: "out", expected: true},
		{name: "SiblingWithSharedPrefix", path: "output/a.ts", prefix: "out", expected: false},
		{name: "CurrentDir", path: ".", prefix: "", expected: true},
		{name: "CurrentDirPrefix", path: "src", prefix: ".", expected: false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := HasPathPrefix(tc.path, tc.prefix); got != tc.expected {
				t.Fatalf("expected %v, got %v", tc.expected, got)
			}
		})
	}
}

func TestRelativeUnder(t *testing.T) {
	t.Parallel()

	roots := []string{"/repo/lib", "/repo/src"}
	if got := RelativeUnder(roots, "/repo/src/app/main.ts"); got != filepath.Join("app", "main.ts") {
		t.Fatalf("unexpected relative path %q", got)
	}
	if got := RelativeUnder(roots, "/elsewhere/x.ts"); got != "x.ts" {
		t.Fatalf("expected base name fallback, got %q", got)
	}
	if got := RelativeUnder([]string{"."}, "src/a.ts"); got != filepath.Join("src", "a.ts") {
		t.Fatalf("current directory root should keep the path, got %q", got)
	}
}

func TestSortedStringKeys(t *testing.T) {
	t.Parallel()

	keys := SortedStringKeys(map[string]int{"b": 2, "a": 1, "c": 3})
	expected := []string{"a", "b", "c"}
	if len(keys) != len(expected) {
		t.Fatalf("expected %d keys, got %d", len(expected), len(keys))
	}
	for i, key := range expected {
		if keys[i] != key {
			t.Fatalf("expected %q at %d, got %q", key, i, keys[i])
		}
	}
}

func TestWriteFileWithDirs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "file.ts")

	for _, content := range []string{"first", "second"} {
		if err := WriteFileWithDirs(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write failed: %v", err)
		}
		got, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if string(got) != content {
			t.Fatalf("expected %q, got %q", content, got)
		}
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("temporary files left behind: %v", entries)
	}
}

func TestLimiter(t *testing.T) {
	// 10 tokens per second, burst of 2
	l := NewLimiter(10, 2)

	if !l.Allow() || !l.Allow() {
		t.Fatal("expected burst tokens to be allowed")
	}
	if l.Allow() {
		t.Error("expected third token to be rejected (burst exhausted)")
	}

	time.Sleep(150 * time.Millisecond)
	if !l.Allow() {
		t.Error("expected token to be refilled after wait")
	}
}

func TestLimiter_Throttle(t *testing.T) {
	l := NewLimiter(100, 1)
	ctx := context.Background()

	throttled, err := l.Throttle(ctx)
	if err != nil || throttled {
		t.Fatalf("first token should pass immediately, got %v, %v", throttled, err)
	}

	start := time.Now()
	throttled, err = l.Throttle(ctx)
	if err != nil {
		t.Fatalf("Throttle failed: %v", err)
	}
	if !throttled || time.Since(start) < 5*time.Millisecond {
		t.Error("expected the second token to wait")
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := NewLimiter(0.001, 1).Throttle(cancelled); err != nil {
		t.Fatalf("burst token must not need the context, got %v", err)
	}
	slow := NewLimiter(0.001, 1)
	slow.Allow()
	if _, err := slow.Throttle(cancelled); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	l := NewLimiter(0, 0)
	for i := 0; i < 100; i++ {
		if !l.Allow() {
			t.Fatalf("unlimited limiter rejected event %d", i)
		}
	}
}
