package elision

import (
	"os"
	"path/filepath"
	"testing"
)

func testDecl(kind DeclarationKind, bindings ...*ImportBinding) (*ImportDeclaration, []UsageVerdict) {
	decl := &ImportDeclaration{Kind: kind, Specifier: "./m"}
	for i, b := range bindings {
		b.ID = i
		b.decl = decl
		decl.Bindings = append(decl.Bindings, b)
	}
	return decl, make([]UsageVerdict, len(bindings))
}

func named(name string) *ImportBinding {
	return &ImportBinding{LocalName: name, OriginalName: name, Kind: BindingNamed}
}

func TestDecide(t *testing.T) {
	opts := DefaultOptions()

	decl, usage := testDecl(DeclImport, named("A"), named("B"), named("C"))
	usage[0], usage[1], usage[2] = TypeOnly, ValueUsed, Unused
	if got := decide(decl, usage, opts, ""); got.String() != "retain-subset(B)" {
		t.Errorf("expected retain-subset(B), got %s", got)
	}

	usage[0], usage[1], usage[2] = ValueUsed, ValueUsed, ValueUsed
	if got := decide(decl, usage, opts, ""); got.Kind != RetainWhole {
		t.Errorf("expected retain-whole, got %s", got)
	}

	usage[0], usage[1], usage[2] = TypeOnly, Unused, TypeOnly
	if got := decide(decl, usage, opts, ""); got.Kind != ElideWhole {
		t.Errorf("expected elide-whole, got %s", got)
	}

	if got := decide(decl, usage, opts, "forced"); got.Kind != RetainWhole || got.Reason != "forced" {
		t.Errorf("expected forced retain-whole, got %s (%s)", got, got.Reason)
	}

	decl.Malformed = true
	if got := decide(decl, usage, opts, ""); got.Kind != RetainWhole {
		t.Errorf("malformed: expected retain-whole, got %s", got)
	}
}

func TestDecide_NamespaceAtomic(t *testing.T) {
	ns := &ImportBinding{LocalName: "ns", Kind: BindingNamespace}
	decl, usage := testDecl(DeclImport, &ImportBinding{LocalName: "D", Kind: BindingDefault}, ns)
	usage[1] = ValueUsed
	if got := decide(decl, usage, DefaultOptions(), ""); got.Kind != RetainWhole {
		t.Fatalf("expected retain-whole, got %s", got)
	}
}

func TestDecide_TypeOnlyNeverRetained(t *testing.T) {
	typed := named("T")
	typed.Declared = DeclaredTypeOnly
	decl, usage := testDecl(DeclImport, typed, named("V"))
	usage[0], usage[1] = ValueUsed, ValueUsed

	got := decide(decl, usage, DefaultOptions(), "")
	if got.String() != "retain-subset(V)" {
		t.Fatalf("expected retain-subset(V), got %s", got)
	}
}

func TestDecide_DeclarationForms(t *testing.T) {
	opts := DefaultOptions()

	side, usage := testDecl(DeclSideEffect)
	if got := decide(side, usage, opts, ""); got.Kind != RetainWhole {
		t.Errorf("side effect: expected retain-whole, got %s", got)
	}

	all, usage := testDecl(DeclReExportAll)
	if got := decide(all, usage, opts, ""); got.Kind != RetainWhole {
		t.Errorf("export *: expected retain-whole, got %s", got)
	}
	all.TypeOnly = true
	if got := decide(all, usage, opts, ""); got.Kind != ElideWhole {
		t.Errorf("export type *: expected elide-whole, got %s", got)
	}

	empty, usage := testDecl(DeclImport)
	if got := decide(empty, usage, opts, ""); got.Kind != ElideWhole {
		t.Errorf("empty: expected elide-whole, got %s", got)
	}
}

func TestUsageVerdict_Join(t *testing.T) {
	tests := []struct {
		a, b, want UsageVerdict
	}{
		{Unused, TypeOnly, TypeOnly},
		{TypeOnly, Unused, TypeOnly},
		{TypeOnly, ValueUsed, ValueUsed},
		{ValueUsed, TypeOnly, ValueUsed},
		{ValueUsed, Unused, ValueUsed},
	}
	for _, tt := range tests {
		if got := tt.a.join(tt.b); got != tt.want {
			t.Errorf("%s join %s = %s, want %s", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestScope_LookupAndShadowing(t *testing.T) {
	module := newScope(ScopeModule, nil)
	imported := named("A")
	module.declare(&Declaration{Name: "A", Meaning: MeaningAll, Binding: imported})

	fn := newScope(ScopeFunction, module)
	fn.declare(&Declaration{Name: "A", Meaning: MeaningValue})
	block := newScope(ScopeBlock, fn)

	if d := block.Lookup("A", MeaningValue); d == nil || d.Binding != nil {
		t.Fatalf("value lookup must find the local, got %+v", d)
	}
	if d := block.Lookup("A", MeaningType); d == nil || d.Binding != imported {
		t.Fatalf("type lookup must reach the import, got %+v", d)
	}
	if d := block.Lookup("B", MeaningAll); d != nil {
		t.Fatalf("expected nil, got %+v", d)
	}
	if block.varScope() != fn {
		t.Fatal("var scope of a block is the enclosing function")
	}

	merged := module.declare(&Declaration{Name: "A", Meaning: MeaningValue})
	if !merged.Merged || merged.Binding != imported {
		t.Fatalf("redeclaring an import must merge, got %+v", merged)
	}
}

func TestFileLocator(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.ts", "lib/index.tsx", "c.ts"} {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("export {}\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	from := filepath.Join(dir, "main.ts")
	l := NewFileLocator()
	tests := map[string]bool{
		"./a":       true,
		"./a.ts":    true,
		"./c.js":    true,
		"./lib":     true,
		"./missing": false,
		"../nope":   false,
		"react":     true,
	}
	for spec, want := range tests {
		if got := l.Locate(from, spec); got != want {
			t.Errorf("Locate(%q) = %v, want %v", spec, got, want)
		}
	}
}
