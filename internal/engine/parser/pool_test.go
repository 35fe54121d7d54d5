package parser

import (
	"sync"
	"testing"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// tsLanguage returns the tree-sitter TypeScript grammar for test use.
func tsLanguage() *sitter.Language {
	return sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())
}

func TestParserPool_GetPut(t *testing.T) {
	pool := NewParserPool(tsLanguage())

	sp := pool.Get()
	if sp == nil {
		t.Fatal("expected non-nil parser from pool")
	}
	if pool.Leased() != 1 {
		t.Fatalf("expected 1 leased parser, got %d", pool.Leased())
	}

	pool.Put(sp)
	if pool.Leased() != 0 {
		t.Fatalf("expected 0 leased parsers after Put, got %d", pool.Leased())
	}
}

func TestParserPool_PutNil(t *testing.T) {
	pool := NewParserPool(tsLanguage())

	// Put(nil) must be a no-op.
	pool.Put(nil)
	if pool.Leased() != 0 {
		t.Fatalf("expected 0 leased parsers, got %d", pool.Leased())
	}
}

func TestParserPool_ParsesValidTypeScript(t *testing.T) {
	pool := NewParserPool(tsLanguage())

	tree := pool.Parse([]byte("import type { A } from \"./a\";\nconst x: A = 1;\n"))
	if tree == nil {
		t.Fatal("expected non-nil parse tree for valid TypeScript source")
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil || root.HasError() {
		t.Fatalf("expected error-free root node")
	}
	if pool.Leased() != 0 {
		t.Fatalf("Parse must return its parser, leased=%d", pool.Leased())
	}
}

func TestParserPool_ConcurrentAccess(t *testing.T) {
	pool := NewParserPool(tsLanguage())

	const goroutines = 20
	const iters = 50

	var wg sync.WaitGroup
	wg.Add(goroutines)

	src := []byte("export function run(): void {}\n")

	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < iters; j++ {
				tree := pool.Parse(src)
				if tree == nil {
					t.Errorf("expected non-nil parse tree")
					continue
				}
				tree.Close()
			}
		}()
	}

	wg.Wait()
}

func TestParserPool_LanguageSetAfterReset(t *testing.T) {
	pool := NewParserPool(tsLanguage())

	sp := pool.Get()
	sp.Reset()
	pool.Put(sp)

	sp2 := pool.Get()
	defer pool.Put(sp2)

	tree := sp2.Parse([]byte("let ok: boolean = true;\n"), nil)
	if tree == nil {
		t.Fatal("parser should still parse correctly after Reset")
	}
	defer tree.Close()
}
