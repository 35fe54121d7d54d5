package elision

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"elision/internal/engine/parser"
)

// BindingKind is the syntactic shape of an imported name.
type BindingKind int

const (
	BindingDefault BindingKind = iota
	BindingNamed
	BindingNamespace
)

var bindingKindNames = [...]string{
	BindingDefault:   "default",
	BindingNamed:     "named",
	BindingNamespace: "namespace",
}

func (k BindingKind) String() string { return bindingKindNames[k] }

func (k BindingKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// DeclaredMeaning is what the import syntax itself asserts about a binding.
type DeclaredMeaning int

const (
	DeclaredValueAndType DeclaredMeaning = iota
	DeclaredTypeOnly
)

func (m DeclaredMeaning) String() string {
	if m == DeclaredTypeOnly {
		return "type-only"
	}
	return "value-and-type"
}

func (m DeclaredMeaning) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// DeclarationKind distinguishes the statement forms that can load a module.
type DeclarationKind int

const (
	// DeclImport is `import ... from "m"`.
	DeclImport DeclarationKind = iota
	// DeclSideEffect is `import "m"`.
	DeclSideEffect
	// DeclImportEquals is `import x = require("m")`.
	DeclImportEquals
	// DeclReExport is `export { a, b as c } from "m"`.
	DeclReExport
	// DeclReExportAll is `export * from "m"` and `export * as ns from "m"`.
	DeclReExportAll
)

var declarationKindNames = [...]string{
	DeclImport:       "import",
	DeclSideEffect:   "side-effect",
	DeclImportEquals: "import-equals",
	DeclReExport:     "re-export",
	DeclReExportAll:  "re-export-all",
}

func (k DeclarationKind) String() string { return declarationKindNames[k] }

func (k DeclarationKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// ImportBinding is one name introduced by an import or re-export declaration.
// Bindings are created by the import table builder and never mutated.
type ImportBinding struct {
	// ID indexes the binding within its module.
	ID int `json:"-" yaml:"-"`
	// LocalName is the name visible in the module; for re-exports it is the
	// exported name.
	LocalName string `json:"local_name" yaml:"local_name"`
	// OriginalName is the name in the source module, for named bindings.
	OriginalName string          `json:"original_name,omitempty" yaml:"original_name,omitempty"`
	Kind         BindingKind     `json:"kind" yaml:"kind"`
	Declared     DeclaredMeaning `json:"declared" yaml:"declared"`
	Span         parser.Span     `json:"span" yaml:"span"`

	decl *ImportDeclaration
}

func (b *ImportBinding) Declaration() *ImportDeclaration { return b.decl }

// Specifier renders the binding the way it appears in an import list.
func (b *ImportBinding) Specifier() string {
	switch b.Kind {
	case BindingNamespace:
		return "* as " + b.LocalName
	case BindingNamed:
		if b.OriginalName != "" && b.OriginalName != b.LocalName {
			return QuoteName(b.OriginalName) + " as " + b.LocalName
		}
	}
	return b.LocalName
}

// QuoteName renders an import or export name, quoting names that are not
// identifiers such as `"a-b"`.
func QuoteName(name string) string {
	if IsIdentifierName(name) {
		return name
	}
	return strconv.Quote(name)
}

func IsIdentifierName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || r == '$' || unicode.IsLetter(r):
		case i > 0 && unicode.IsDigit(r):
		default:
			return false
		}
	}
	return true
}

// ImportDeclaration is one top-level statement that may load a module at
// runtime.
type ImportDeclaration struct {
	Index int             `json:"index" yaml:"index"`
	Kind  DeclarationKind `json:"kind" yaml:"kind"`
	// Specifier is the unquoted module specifier.
	Specifier string `json:"specifier" yaml:"specifier"`
	// RawSpecifier keeps the original quotes for rewriting.
	RawSpecifier string `json:"-" yaml:"-"`
	// Attributes is the raw `with { ... }` clause, if any.
	Attributes string `json:"-" yaml:"-"`
	// TypeOnly is set for statement-level `import type` / `export type`.
	TypeOnly     bool             `json:"type_only,omitempty" yaml:"type_only,omitempty"`
	Bindings     []*ImportBinding `json:"bindings,omitempty" yaml:"bindings,omitempty"`
	Span         parser.Span      `json:"span" yaml:"span"`
	HasSemicolon bool             `json:"-" yaml:"-"`
	// Malformed declarations are always retained whole.
	Malformed bool `json:"malformed,omitempty" yaml:"malformed,omitempty"`
}

func (d *ImportDeclaration) String() string {
	names := make([]string, 0, len(d.Bindings))
	for _, b := range d.Bindings {
		names = append(names, b.Specifier())
	}
	return fmt.Sprintf("%s %q {%s}", d.Kind, d.Specifier, strings.Join(names, ", "))
}

// ContextKind classifies the syntactic position of an identifier occurrence.
type ContextKind int

const (
	TypePosition ContextKind = iota
	ValuePosition
	Ambiguous
)

var contextKindNames = [...]string{
	TypePosition:  "type",
	ValuePosition: "value",
	Ambiguous:     "ambiguous",
}

func (k ContextKind) String() string { return contextKindNames[k] }

func (k ContextKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Reference is one identifier occurrence that could name an imported binding.
type Reference struct {
	Name    string      `json:"name" yaml:"name"`
	Span    parser.Span `json:"span" yaml:"span"`
	Context ContextKind `json:"context" yaml:"context"`
	// Declaration is nil when the name does not resolve in the module.
	Declaration *Declaration `json:"-" yaml:"-"`
	// Binding is set when the nearest declaration is an import binding.
	Binding *ImportBinding `json:"-" yaml:"-"`
}

// UnresolvedName is a free identifier left for the external name checker.
type UnresolvedName struct {
	Name    string      `json:"name" yaml:"name"`
	Span    parser.Span `json:"span" yaml:"span"`
	Context ContextKind `json:"context" yaml:"context"`
}

// UsageVerdict accumulates how a binding is referenced. The zero value is
// Unused; values only ever move upward.
type UsageVerdict int

const (
	Unused UsageVerdict = iota
	TypeOnly
	ValueUsed
)

var usageVerdictNames = [...]string{
	Unused:    "unused",
	TypeOnly:  "type-only",
	ValueUsed: "value-used",
}

func (v UsageVerdict) String() string { return usageVerdictNames[v] }

func (v UsageVerdict) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

// join is the monotone union used to accumulate occurrences.
func (v UsageVerdict) join(other UsageVerdict) UsageVerdict {
	if other > v {
		return other
	}
	return v
}

// VerdictKind is the three-valued answer consumed by the import rewriter.
type VerdictKind int

const (
	ElideWhole VerdictKind = iota
	RetainWhole
	RetainSubset
)

var verdictKindNames = [...]string{
	ElideWhole:   "elide-whole",
	RetainWhole:  "retain-whole",
	RetainSubset: "retain-subset",
}

func (k VerdictKind) String() string { return verdictKindNames[k] }

func (k VerdictKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// ElisionVerdict is the decision for one import declaration.
type ElisionVerdict struct {
	Kind VerdictKind `json:"kind" yaml:"kind"`
	// Retained lists local names kept by RetainSubset, in declared order.
	Retained []string `json:"retained,omitempty" yaml:"retained,omitempty"`
	Reason   string   `json:"reason,omitempty" yaml:"reason,omitempty"`
}

func (v ElisionVerdict) String() string {
	if v.Kind == RetainSubset {
		return fmt.Sprintf("%s(%s)", v.Kind, strings.Join(v.Retained, ", "))
	}
	return v.Kind.String()
}

// Equal compares verdicts including retained names and their order.
func (v ElisionVerdict) Equal(other ElisionVerdict) bool {
	if v.Kind != other.Kind || len(v.Retained) != len(other.Retained) {
		return false
	}
	for i := range v.Retained {
		if v.Retained[i] != other.Retained[i] {
			return false
		}
	}
	return true
}
