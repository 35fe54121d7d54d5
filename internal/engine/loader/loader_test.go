package loader

import (
	"context"
	"fmt"
	"path"
	"sync"
	"testing"

	"elision/internal/core/errors"
	"elision/internal/engine/elision"
	"elision/internal/engine/parser"
	"elision/internal/engine/rewrite"
)

func TestRegistry_LoadsDependenciesFirstAndOnce(t *testing.T) {
	r := NewRegistry()
	counts := make(map[string]int)
	record := func(id string) InitFunc {
		return func(context.Context) error {
			counts[id]++
			return nil
		}
	}

	for id, deps := range map[string][]string{
		"main": {"a", "b"},
		"a":    {"shared"},
		"b":    {"shared"},
	} {
		if err := r.Define(id, deps, record(id)); err != nil {
			t.Fatal(err)
		}
	}
	if err := r.Define("shared", nil, record("shared")); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := r.Load(ctx, "main"); err != nil {
			t.Fatal(err)
		}
	}

	for id, n := range counts {
		if n != 1 {
			t.Errorf("%s initialized %d times", id, n)
		}
	}
	want := []string{"shared", "a", "b", "main"}
	got := r.Order()
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("expected order %v, got %v", want, got)
	}
}

func TestRegistry_Cycle(t *testing.T) {
	r := NewRegistry()
	_ = r.Define("a", []string{"b"}, nil)
	_ = r.Define("b", []string{"a"}, nil)

	if err := r.Load(context.Background(), "a"); err != nil {
		t.Fatal(err)
	}
	if !r.Loaded("a") || !r.Loaded("b") {
		t.Fatalf("expected both modules loaded, order %v", r.Order())
	}
}

func TestRegistry_Errors(t *testing.T) {
	r := NewRegistry()
	if err := r.Load(context.Background(), "missing"); !errors.IsCode(err, errors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}

	_ = r.Define("bad", nil, func(context.Context) error { return fmt.Errorf("boom") })
	_ = r.Define("user", []string{"bad"}, nil)
	if err := r.Load(context.Background(), "user"); err == nil {
		t.Fatal("expected dependency failure")
	}
	if r.Loaded("user") || r.Loaded("bad") {
		t.Fatal("failed modules must not count as loaded")
	}
	if err := r.Define("user", nil, nil); !errors.IsCode(err, errors.CodeValidationError) {
		t.Fatalf("expected duplicate definition error, got %v", err)
	}
}

func TestRegistry_ConcurrentLoads(t *testing.T) {
	r := NewRegistry()
	var mu sync.Mutex
	n := 0
	_ = r.Define("side", nil, func(context.Context) error {
		mu.Lock()
		n++
		mu.Unlock()
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.Load(context.Background(), "side"); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if n != 1 {
		t.Fatalf("expected one initialization, got %d", n)
	}
}

const typeOnlyConsumer = `import { Value, type ValueData } from "./provider";

export interface Record {
  getValue(): Value;
  setValue(value: Value): void;
}

export function processRecord(value: Value, callback: (result: Value) => void): Value {
  callback(value);
  return value;
}
`

const valueConsumer = `import { Value } from "./provider";

export const current = new Value(1);
`

// defineFromSource analyzes code and registers it with the dependencies the
// rewritten module still loads.
func defineFromSource(t *testing.T, r *Registry, id, code string, init InitFunc) {
	t.Helper()
	loader, err := parser.NewGrammarLoader()
	if err != nil {
		t.Fatal(err)
	}
	src, err := parser.NewParser(loader).Parse(id+".ts", []byte(code))
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	res, err := elision.New(elision.DefaultOptions()).Analyze(src, nil)
	if err != nil {
		t.Fatal(err)
	}

	var deps []string
	for _, spec := range rewrite.RuntimeSpecifiers(res) {
		deps = append(deps, path.Clean(path.Join(path.Dir(id), spec)))
	}
	if err := r.Define(id, deps, init); err != nil {
		t.Fatal(err)
	}
}

func TestScenario_ProviderSideEffect(t *testing.T) {
	tests := []struct {
		name     string
		consumer string
		want     int
	}{
		{"type positions only", typeOnlyConsumer, 0},
		{"constructed value", valueConsumer, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			sideEffects := 0
			if err := r.Define("provider", nil, func(context.Context) error {
				sideEffects++
				return nil
			}); err != nil {
				t.Fatal(err)
			}
			defineFromSource(t, r, "consumer", tt.consumer, nil)
			defineFromSource(t, r, "other", tt.consumer, nil)

			ctx := context.Background()
			for _, id := range []string{"consumer", "other", "consumer"} {
				if err := r.Load(ctx, id); err != nil {
					t.Fatal(err)
				}
			}
			if sideEffects != tt.want {
				t.Fatalf("provider side effect ran %d times, want %d", sideEffects, tt.want)
			}
		})
	}
}
