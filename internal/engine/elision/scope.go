package elision

import (
	"elision/internal/engine/parser"
)

type ScopeKind int

const (
	ScopeModule ScopeKind = iota
	ScopeFunction
	ScopeClass
	ScopeBlock
	// ScopeParameters sits between a function's enclosing scope and its
	// body. Default values resolve here and cannot see body declarations.
	ScopeParameters
	// ScopeTypeParams holds names that only exist for the type checker:
	// interface and alias type parameters, `infer` and mapped-type keys.
	ScopeTypeParams
)

var scopeKindNames = [...]string{
	ScopeModule:     "module",
	ScopeFunction:   "function",
	ScopeClass:      "class",
	ScopeBlock:      "block",
	ScopeParameters: "parameters",
	ScopeTypeParams: "type-params",
}

func (k ScopeKind) String() string { return scopeKindNames[k] }

// Meaning is the set of namespaces a declaration occupies. TypeScript keeps
// values, types and namespaces apart, so `type X` does not shadow a value X.
type Meaning uint8

const (
	MeaningValue Meaning = 1 << iota
	MeaningType
	MeaningNamespace

	MeaningAll = MeaningValue | MeaningType | MeaningNamespace
)

// Declaration is one scope entry.
type Declaration struct {
	Name    string
	Meaning Meaning
	Span    parser.Span
	// Binding is set when the entry was introduced by an import.
	Binding *ImportBinding
	// Merged is set when an import binding shares its entry with a local
	// declaration of the same name. References to merged entries cannot be
	// classified from syntax alone.
	Merged bool
}

// Scope owns its name table. The parent link is only followed for lookup.
type Scope struct {
	Kind   ScopeKind
	parent *Scope
	names  map[string]*Declaration
}

func newScope(kind ScopeKind, parent *Scope) *Scope {
	return &Scope{Kind: kind, parent: parent, names: make(map[string]*Declaration)}
}

func (s *Scope) Parent() *Scope { return s.parent }

// declare adds d, merging meanings with an existing entry of the same name.
func (s *Scope) declare(d *Declaration) *Declaration {
	existing, ok := s.names[d.Name]
	if !ok {
		s.names[d.Name] = d
		return d
	}
	existing.Meaning |= d.Meaning
	if existing.Binding != nil || d.Binding != nil {
		existing.Merged = true
		if existing.Binding == nil {
			existing.Binding = d.Binding
		}
	}
	return existing
}

// Lookup walks outward and returns the nearest declaration occupying any of
// the wanted meanings.
func (s *Scope) Lookup(name string, want Meaning) *Declaration {
	for cur := s; cur != nil; cur = cur.parent {
		if d, ok := cur.names[name]; ok && d.Meaning&want != 0 {
			return d
		}
	}
	return nil
}

func (s *Scope) LookupLocal(name string) (*Declaration, bool) {
	d, ok := s.names[name]
	return d, ok
}

// decoratorScope is the scope a parameter decorator is evaluated in: the
// one around the class owning the method, or around the function.
func (s *Scope) decoratorScope() *Scope {
	outer := s.parent
	if outer == nil {
		return s
	}
	if outer.Kind == ScopeClass && outer.parent != nil {
		return outer.parent
	}
	return outer
}

// varScope is the scope `var` declarations hoist to.
func (s *Scope) varScope() *Scope {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.Kind == ScopeFunction || cur.Kind == ScopeModule {
			return cur
		}
	}
	return s
}
