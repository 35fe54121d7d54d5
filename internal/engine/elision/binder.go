package elision

import (
	"elision/internal/engine/parser"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// nodeKey identifies a syntax node across passes over the same tree.
type nodeKey struct {
	start, end uint
	kind       string
}

func keyOf(node *sitter.Node) nodeKey {
	return nodeKey{start: node.StartByte(), end: node.EndByte(), kind: node.Kind()}
}

// binder builds the scope tree ahead of the reference walk so that hoisted
// declarations are visible to occurrences that precede them.
type binder struct {
	src    *parser.Source
	scopes map[nodeKey]*Scope
	cur    *Scope
	engine *parser.WalkEngine
}

// bindModule declares the module's import bindings and every local
// declaration. It returns the module scope and the scopes keyed by the node
// that opens them.
func bindModule(src *parser.Source, root *sitter.Node, imports []*ImportBinding) (*Scope, map[nodeKey]*Scope) {
	module := newScope(ScopeModule, nil)
	for _, binding := range imports {
		module.declare(&Declaration{
			Name:    binding.LocalName,
			Meaning: MeaningAll,
			Span:    binding.Span,
			Binding: binding,
		})
	}

	b := &binder{src: src, scopes: make(map[nodeKey]*Scope), cur: module}
	b.engine = parser.NewWalkEngine(b.handlers())
	for _, child := range parser.Children(root) {
		b.engine.Walk(child)
	}
	return module, b.scopes
}

func (b *binder) handlers() map[string]parser.NodeHandler {
	h := map[string]parser.NodeHandler{
		"import_statement": func(*sitter.Node) bool { return true },
		"export_statement": func(node *sitter.Node) bool {
			return node.ChildByFieldName("source") != nil
		},
		"import_alias": func(node *sitter.Node) bool {
			if id := parser.ChildOfKind(node, "identifier"); id != nil {
				b.declare(b.cur, id, MeaningAll)
			}
			return true
		},
		"lexical_declaration":        b.variableDeclaration,
		"variable_declaration":       b.variableDeclaration,
		"class_declaration":          b.classDeclaration,
		"abstract_class_declaration": b.classDeclaration,
		"class": func(node *sitter.Node) bool {
			b.class(node, true)
			return true
		},
		"interface_declaration":  b.typeDeclaration,
		"type_alias_declaration": b.typeDeclaration,
		"enum_declaration":       b.enumDeclaration,
		"internal_module":        b.namespaceDeclaration,
		"module":                 b.namespaceDeclaration,
		"for_in_statement":       b.forIn,
		"catch_clause":           b.catchClause,
		"type_parameter": func(node *sitter.Node) bool {
			b.declare(b.cur, node.ChildByFieldName("name"), MeaningType)
			b.walkChildrenExcept(node, "name")
			return true
		},
		"infer_type": func(node *sitter.Node) bool {
			if name := parser.ChildOfKind(node, "type_identifier"); name != nil {
				b.declare(b.cur, name, MeaningType)
			}
			return false
		},
		"conditional_type": func(node *sitter.Node) bool {
			b.enter(node, ScopeTypeParams, func() { b.walkChildren(node) })
			return true
		},
		"index_signature": func(node *sitter.Node) bool {
			b.enter(node, ScopeTypeParams, func() {
				b.declare(b.cur, node.ChildByFieldName("name"), MeaningValue)
				if clause := parser.ChildOfKind(node, "mapped_type_clause"); clause != nil {
					b.declare(b.cur, clause.ChildByFieldName("name"), MeaningType)
				}
				b.walkChildrenExcept(node, "name")
			})
			return true
		},
	}

	for _, kind := range []string{"statement_block", "for_statement", "switch_body"} {
		h[kind] = func(node *sitter.Node) bool {
			b.enter(node, ScopeBlock, func() { b.walkChildren(node) })
			return true
		}
	}

	declaredFunction := func(node *sitter.Node) bool {
		b.declare(b.cur, node.ChildByFieldName("name"), MeaningValue)
		b.function(node)
		return true
	}
	for _, kind := range []string{"function_declaration", "generator_function_declaration", "function_signature"} {
		h[kind] = declaredFunction
	}
	for _, kind := range functionKinds {
		if _, ok := h[kind]; !ok {
			h[kind] = func(node *sitter.Node) bool {
				b.function(node)
				return true
			}
		}
	}
	return h
}

// functionKinds open a parameter scope, and a function scope for their body.
var functionKinds = []string{
	"function_declaration",
	"generator_function_declaration",
	"function_signature",
	"function_expression",
	"function",
	"generator_function",
	"arrow_function",
	"method_definition",
	"method_signature",
	"abstract_method_signature",
	"call_signature",
	"construct_signature",
	"function_type",
	"constructor_type",
}

func (b *binder) enter(node *sitter.Node, kind ScopeKind, fn func()) {
	scope := newScope(kind, b.cur)
	b.scopes[keyOf(node)] = scope
	prev := b.cur
	b.cur = scope
	fn()
	b.cur = prev
}

func (b *binder) declare(scope *Scope, name *sitter.Node, meaning Meaning) {
	if name == nil {
		return
	}
	switch name.Kind() {
	case "identifier", "type_identifier", "shorthand_property_identifier_pattern":
	default:
		return
	}
	scope.declare(&Declaration{
		Name:    b.src.Text(name),
		Meaning: meaning,
		Span:    b.src.Span(name),
	})
}

func (b *binder) walkChildren(node *sitter.Node) {
	for _, child := range parser.Children(node) {
		b.engine.Walk(child)
	}
}

func (b *binder) walkChildrenExcept(node *sitter.Node, fields ...string) {
	for i := uint(0); i < node.ChildCount(); i++ {
		field := node.FieldNameForChild(uint32(i))
		skip := false
		for _, f := range fields {
			if field == f {
				skip = true
				break
			}
		}
		if !skip {
			b.engine.Walk(node.Child(i))
		}
	}
}

func (b *binder) function(node *sitter.Node) {
	name := node.ChildByFieldName("name")
	if name != nil && name.Kind() == "computed_property_name" {
		b.engine.Walk(name)
	}
	for _, decorator := range parser.FieldChildren(node, "decorator") {
		b.engine.Walk(decorator)
	}

	b.enter(node, ScopeParameters, func() {
		switch node.Kind() {
		case "function_expression", "function", "generator_function":
			b.declare(b.cur, name, MeaningValue)
		}
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			switch field := node.FieldNameForChild(uint32(i)); {
			case field == "name" || field == "decorator":
			case field == "parameter":
				b.pattern(child, b.cur, MeaningValue)
			case child.Kind() == "formal_parameters":
				b.parameters(child)
			case field == "body" && child.Kind() == "statement_block":
				b.enter(child, ScopeFunction, func() { b.walkChildren(child) })
			default:
				b.engine.Walk(child)
			}
		}
	})
}

// decorator walks a parameter decorator outside the function and its class.
func (b *binder) decorator(node *sitter.Node) {
	prev := b.cur
	b.cur = b.cur.decoratorScope()
	b.engine.Walk(node)
	b.cur = prev
}

func (b *binder) parameters(params *sitter.Node) {
	for _, param := range parser.NamedChildren(params) {
		switch param.Kind() {
		case "required_parameter", "optional_parameter":
			for i := uint(0); i < param.ChildCount(); i++ {
				child := param.Child(i)
				switch {
				case child.Kind() == "decorator":
					b.decorator(child)
				case param.FieldNameForChild(uint32(i)) == "pattern":
					b.pattern(child, b.cur, MeaningValue)
				default:
					b.engine.Walk(child)
				}
			}
		case "decorator":
			b.decorator(param)
		case "comment":
		default:
			b.pattern(param, b.cur, MeaningValue)
		}
	}
}

// pattern declares every name bound by a destructuring pattern into target.
// Default values and computed keys are ordinary expressions.
func (b *binder) pattern(node *sitter.Node, target *Scope, meaning Meaning) {
	if node == nil {
		return
	}
	switch node.Kind() {
	case "identifier", "shorthand_property_identifier_pattern":
		b.declare(target, node, meaning)
	case "object_pattern", "array_pattern", "rest_pattern":
		for _, child := range parser.NamedChildren(node) {
			b.pattern(child, target, meaning)
		}
	case "pair_pattern":
		b.engine.Walk(node.ChildByFieldName("key"))
		b.pattern(node.ChildByFieldName("value"), target, meaning)
	case "assignment_pattern", "object_assignment_pattern":
		b.pattern(node.ChildByFieldName("left"), target, meaning)
		b.engine.Walk(node.ChildByFieldName("right"))
	case "this", "comment":
	default:
		b.engine.Walk(node)
	}
}

func (b *binder) variableDeclaration(node *sitter.Node) bool {
	target := b.cur
	if node.Kind() == "variable_declaration" {
		target = b.cur.varScope()
	}
	for _, child := range parser.Children(node) {
		if child.Kind() != "variable_declarator" {
			b.engine.Walk(child)
			continue
		}
		b.pattern(child.ChildByFieldName("name"), target, MeaningValue)
		b.walkChildrenExcept(child, "name")
	}
	return true
}

func (b *binder) classDeclaration(node *sitter.Node) bool {
	b.declare(b.cur, node.ChildByFieldName("name"), MeaningValue|MeaningType)
	b.class(node, false)
	return true
}

func (b *binder) class(node *sitter.Node, expression bool) {
	for _, decorator := range parser.FieldChildren(node, "decorator") {
		b.engine.Walk(decorator)
	}
	b.enter(node, ScopeClass, func() {
		if expression {
			b.declare(b.cur, node.ChildByFieldName("name"), MeaningValue|MeaningType)
		}
		b.walkChildrenExcept(node, "name", "decorator")
	})
}

func (b *binder) typeDeclaration(node *sitter.Node) bool {
	b.declare(b.cur, node.ChildByFieldName("name"), MeaningType)
	b.enter(node, ScopeTypeParams, func() { b.walkChildrenExcept(node, "name") })
	return true
}

func (b *binder) enumDeclaration(node *sitter.Node) bool {
	b.declare(b.cur, node.ChildByFieldName("name"), MeaningValue|MeaningType)
	body := node.ChildByFieldName("body")
	if body == nil {
		return true
	}
	b.enter(body, ScopeBlock, func() {
		for _, member := range parser.NamedChildren(body) {
			name := member
			if member.Kind() == "enum_assignment" {
				name = member.ChildByFieldName("name")
				b.engine.Walk(member.ChildByFieldName("value"))
			}
			if name != nil && name.Kind() == "property_identifier" {
				b.cur.declare(&Declaration{Name: b.src.Text(name), Meaning: MeaningValue, Span: b.src.Span(name)})
			}
		}
	})
	return true
}

func (b *binder) namespaceDeclaration(node *sitter.Node) bool {
	name := node.ChildByFieldName("name")
	for name != nil && name.Kind() == "nested_identifier" {
		name = name.NamedChild(0)
	}
	b.declare(b.cur, name, MeaningValue|MeaningNamespace)

	body := node.ChildByFieldName("body")
	if body == nil {
		return true
	}
	b.enter(body, ScopeFunction, func() { b.walkChildren(body) })
	return true
}

func (b *binder) forIn(node *sitter.Node) bool {
	b.enter(node, ScopeBlock, func() {
		kind := node.ChildByFieldName("kind")
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if kind != nil && node.FieldNameForChild(uint32(i)) == "left" {
				target := b.cur
				if b.src.Text(kind) == "var" {
					target = b.cur.varScope()
				}
				b.pattern(child, target, MeaningValue)
				continue
			}
			b.engine.Walk(child)
		}
	})
	return true
}

func (b *binder) catchClause(node *sitter.Node) bool {
	b.enter(node, ScopeBlock, func() {
		b.pattern(node.ChildByFieldName("parameter"), b.cur, MeaningValue)
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			switch node.FieldNameForChild(uint32(i)) {
			case "parameter":
			case "body":
				b.walkChildren(child)
			default:
				b.engine.Walk(child)
			}
		}
	})
	return true
}
