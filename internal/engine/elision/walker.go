package elision

import (
	"strings"

	"elision/internal/engine/parser"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// declarationNames maps node kinds to the field holding the name they
// declare. Those names are not references.
var declarationNames = map[string]string{
	"function_declaration":           "name",
	"generator_function_declaration": "name",
	"function_signature":             "name",
	"function_expression":            "name",
	"function":                       "name",
	"generator_function":             "name",
	"class_declaration":              "name",
	"abstract_class_declaration":     "name",
	"class":                          "name",
	"interface_declaration":          "name",
	"type_alias_declaration":         "name",
	"enum_declaration":               "name",
	"internal_module":                "name",
	"module":                         "name",
	"type_parameter":                 "name",
	"mapped_type_clause":             "name",
	"index_signature":                "name",
}

// bindingPatterns maps node kinds to the field holding a binding pattern.
var bindingPatterns = map[string]string{
	"variable_declarator": "name",
	"required_parameter":  "pattern",
	"optional_parameter":  "pattern",
	"catch_clause":        "parameter",
	"arrow_function":      "parameter",
}

// typeContexts switch the walk into type position for their whole subtree.
var typeContexts = []string{
	"type_annotation",
	"opting_type_annotation",
	"omitting_type_annotation",
	"adding_type_annotation",
	"asserts_annotation",
	"type_predicate_annotation",
	"type_arguments",
	"type_parameters",
	"implements_clause",
	"extends_type_clause",
	"interface_declaration",
	"type_alias_declaration",
	"property_signature",
	"method_signature",
	"abstract_method_signature",
	"call_signature",
	"construct_signature",
	"index_signature",
	"function_signature",
	"ambient_declaration",
}

// walker classifies every identifier occurrence that resolves to an import
// binding. Each node is visited exactly once, in document order.
type walker struct {
	src    *parser.Source
	opts   Options
	scopes map[nodeKey]*Scope

	cur      *Scope
	mode     ContextKind
	handlers map[string]parser.NodeHandler

	classDecorated bool
	// metadataMember is the class member whose type annotations are emitted
	// as runtime metadata.
	metadataMember *nodeKey

	refs       []Reference
	unresolved []UnresolvedName
	exports    []exportEntry
}

// exportEntry is one name listed in an export clause.
type exportEntry struct {
	Name     string
	TypeOnly bool
	Span     parser.Span
	// Binding is the import binding the entry re-exports, directly or
	// through a local name.
	Binding *ImportBinding
}

func newWalker(src *parser.Source, opts Options, module *Scope, scopes map[nodeKey]*Scope) *walker {
	w := &walker{
		src:    src,
		opts:   opts,
		scopes: scopes,
		cur:    module,
		mode:   ValuePosition,
	}
	w.handlers = w.buildHandlers()
	return w
}

func (w *walker) buildHandlers() map[string]parser.NodeHandler {
	h := map[string]parser.NodeHandler{
		"identifier": func(node *sitter.Node) bool {
			switch w.mode {
			case ValuePosition:
				w.reference(node, MeaningValue, ValuePosition)
			case TypePosition:
				w.reference(node, MeaningValue|MeaningNamespace, TypePosition)
			default:
				w.reference(node, MeaningAll, Ambiguous)
			}
			return true
		},
		"type_identifier": func(node *sitter.Node) bool {
			w.reference(node, MeaningType, w.typeMode())
			return true
		},
		"shorthand_property_identifier": func(node *sitter.Node) bool {
			w.reference(node, MeaningValue, ValuePosition)
			return true
		},
		"import_statement":     func(*sitter.Node) bool { return true },
		"export_statement":     w.exportStatement,
		"import_alias":         w.importAlias,
		"as_expression":        w.assertion,
		"satisfies_expression": w.assertion,
		"computed_property_name": func(node *sitter.Node) bool {
			if w.mode != TypePosition {
				return false
			}
			w.withMode(Ambiguous, func() { w.walkChildren(node) })
			return true
		},
		"nested_type_identifier": func(node *sitter.Node) bool {
			w.walk(node.ChildByFieldName("module"))
			return true
		},
		"infer_type": func(node *sitter.Node) bool {
			for i, child := range parser.NamedChildren(node) {
				if i > 0 {
					w.walk(child)
				}
			}
			return true
		},
		"named_tuple_member": func(node *sitter.Node) bool {
			for i, child := range parser.NamedChildren(node) {
				if i > 0 || child.Kind() != "identifier" {
					w.walk(child)
				}
			}
			return true
		},
		"formal_parameters":          w.formalParameters,
		"for_in_statement":           w.forIn,
		"class_declaration":          w.class,
		"abstract_class_declaration": w.class,
		"class":                      w.class,
		"class_body":                 w.classBody,
		"jsx_opening_element":        w.jsxElement,
		"jsx_self_closing_element":   w.jsxElement,
		"jsx_closing_element":        func(*sitter.Node) bool { return true },
	}
	for _, kind := range typeContexts {
		h[kind] = w.typeContext
	}
	return h
}

func (w *walker) run(root *sitter.Node) {
	for _, child := range parser.Children(root) {
		w.walk(child)
	}
}

func (w *walker) walk(node *sitter.Node) {
	if node == nil {
		return
	}
	if scope, ok := w.scopes[keyOf(node)]; ok {
		prev := w.cur
		w.cur = scope
		defer func() { w.cur = prev }()
	}
	if handler, ok := w.handlers[node.Kind()]; ok && handler(node) {
		return
	}
	w.walkChildren(node)
}

func (w *walker) walkChildren(node *sitter.Node) {
	kind := node.Kind()
	nameField := declarationNames[kind]
	patternField := bindingPatterns[kind]
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		field := node.FieldNameForChild(uint32(i))
		switch {
		case field == "":
			w.walk(child)
		case field == nameField:
		case field == patternField:
			w.pattern(child)
		default:
			w.walk(child)
		}
	}
}

func (w *walker) withMode(mode ContextKind, fn func()) {
	prev := w.mode
	w.mode = mode
	fn()
	w.mode = prev
}

// typeMode is the mode for a type subtree. Inside an ambiguous subtree
// everything stays ambiguous.
func (w *walker) typeMode() ContextKind {
	if w.mode == Ambiguous {
		return Ambiguous
	}
	return TypePosition
}

func (w *walker) reference(node *sitter.Node, want Meaning, ctx ContextKind) {
	w.referenceName(w.src.Text(node), w.src.Span(node), want, ctx, true)
}

func (w *walker) referenceName(name string, span parser.Span, want Meaning, ctx ContextKind, track bool) *Declaration {
	decl := w.cur.Lookup(name, want)
	if decl == nil {
		if track {
			w.unresolved = append(w.unresolved, UnresolvedName{Name: name, Span: span, Context: ctx})
		}
		return nil
	}
	if decl.Binding == nil {
		return decl
	}
	if decl.Merged {
		ctx = Ambiguous
	}
	w.refs = append(w.refs, Reference{
		Name:        name,
		Span:        span,
		Context:     ctx,
		Declaration: decl,
		Binding:     decl.Binding,
	})
	return decl
}

// pattern walks the expressions embedded in a binding pattern and skips the
// names it binds.
func (w *walker) pattern(node *sitter.Node) {
	if node == nil {
		return
	}
	switch node.Kind() {
	case "identifier", "shorthand_property_identifier_pattern", "this", "comment":
	case "object_pattern", "array_pattern", "rest_pattern":
		for _, child := range parser.NamedChildren(node) {
			w.pattern(child)
		}
	case "pair_pattern":
		w.walk(node.ChildByFieldName("key"))
		w.pattern(node.ChildByFieldName("value"))
	case "assignment_pattern", "object_assignment_pattern":
		w.pattern(node.ChildByFieldName("left"))
		w.withMode(ValuePosition, func() { w.walk(node.ChildByFieldName("right")) })
	default:
		w.walk(node)
	}
}

func (w *walker) formalParameters(node *sitter.Node) bool {
	for _, child := range parser.Children(node) {
		switch child.Kind() {
		case "required_parameter", "optional_parameter":
			w.parameter(child)
		case "decorator":
			w.decorator(child)
		case "comment":
		default:
			if child.IsNamed() {
				w.pattern(child)
			}
		}
	}
	return true
}

func (w *walker) parameter(param *sitter.Node) {
	for i := uint(0); i < param.ChildCount(); i++ {
		child := param.Child(i)
		switch {
		case child.Kind() == "decorator":
			w.decorator(child)
		case param.FieldNameForChild(uint32(i)) == "pattern":
			w.pattern(child)
		default:
			w.walk(child)
		}
	}
}

// decorator walks a parameter decorator in the scope around the function,
// skipping the class scope of a method. Decorators always run as values.
func (w *walker) decorator(node *sitter.Node) {
	prev := w.cur
	w.cur = w.cur.decoratorScope()
	w.withMode(ValuePosition, func() { w.walk(node) })
	w.cur = prev
}

func (w *walker) forIn(node *sitter.Node) bool {
	if node.ChildByFieldName("kind") == nil {
		return false
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		if node.FieldNameForChild(uint32(i)) == "left" {
			w.pattern(node.Child(i))
			continue
		}
		w.walk(node.Child(i))
	}
	return true
}

func (w *walker) typeContext(node *sitter.Node) bool {
	mode := w.typeMode()
	if w.isMetadataSite(node) {
		mode = Ambiguous
	}
	w.withMode(mode, func() { w.walkChildren(node) })
	return true
}

// assertion handles `expr as T` and `expr satisfies T`: the operand keeps the
// current mode and the asserted type is a type position.
func (w *walker) assertion(node *sitter.Node) bool {
	for i, child := range parser.NamedChildren(node) {
		if i == 0 {
			w.walk(child)
			continue
		}
		w.withMode(w.typeMode(), func() { w.walk(child) })
	}
	return true
}

func (w *walker) exportStatement(node *sitter.Node) bool {
	if node.ChildByFieldName("source") != nil {
		return true
	}
	typeOnly := parser.HasToken(node, "type")
	var afterEquals, afterNamespace bool
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		field := node.FieldNameForChild(uint32(i))
		switch {
		case field == "declaration" || field == "decorator":
			w.walk(child)
		case child.Kind() == "export_clause":
			w.localExports(child, typeOnly)
		case field == "value":
			w.exportedValue(child)
		case !child.IsNamed():
			switch child.Kind() {
			case "=":
				afterEquals = true
			case "namespace":
				afterNamespace = true
			}
		case afterNamespace:
		case afterEquals:
			w.exportedValue(child)
		default:
			w.walk(child)
		}
	}
	return true
}

// exportedValue handles `export default x` and `export = x`. A bare name may
// be a type or a value, so it is ambiguous.
func (w *walker) exportedValue(node *sitter.Node) {
	if node.Kind() == "identifier" {
		w.reference(node, MeaningAll, Ambiguous)
		return
	}
	w.withMode(ValuePosition, func() { w.walk(node) })
}

func (w *walker) localExports(clause *sitter.Node, typeOnly bool) {
	for _, spec := range parser.NamedChildren(clause) {
		if spec.Kind() != "export_specifier" {
			continue
		}
		name := spec.ChildByFieldName("name")
		if name == nil || name.Kind() != "identifier" {
			continue
		}
		exported := name
		if alias := spec.ChildByFieldName("alias"); alias != nil {
			exported = alias
		}

		specTypeOnly := typeOnly || parser.HasToken(spec, "type")
		ctx := Ambiguous
		if specTypeOnly {
			ctx = TypePosition
		}
		decl := w.referenceName(w.src.Text(name), w.src.Span(name), MeaningAll, ctx, true)

		entry := exportEntry{
			Name:     unquote(w.src.Text(exported)),
			TypeOnly: specTypeOnly,
			Span:     w.src.Span(spec),
		}
		if decl != nil {
			entry.Binding = decl.Binding
		}
		w.exports = append(w.exports, entry)
	}
}

// importAlias handles `import x = N.y`. The entity may name a namespace or a
// value, so its leftmost identifier is ambiguous.
func (w *walker) importAlias(node *sitter.Node) bool {
	afterEquals := false
	for _, child := range parser.Children(node) {
		if !child.IsNamed() {
			afterEquals = afterEquals || child.Kind() == "="
			continue
		}
		if !afterEquals {
			continue
		}
		if id := leftmostIdentifier(child); id != nil {
			w.reference(id, MeaningAll, Ambiguous)
		}
	}
	return true
}

func leftmostIdentifier(node *sitter.Node) *sitter.Node {
	for node != nil {
		switch node.Kind() {
		case "identifier":
			return node
		case "nested_identifier", "member_expression":
			node = node.NamedChild(0)
		default:
			return nil
		}
	}
	return nil
}

func (w *walker) class(node *sitter.Node) bool {
	decorated := parser.ChildOfKind(node, "decorator") != nil
	if parent := node.Parent(); parent != nil && parent.Kind() == "export_statement" {
		decorated = decorated || len(parser.FieldChildren(parent, "decorator")) > 0
	}
	prev := w.classDecorated
	w.classDecorated = decorated
	w.walkChildren(node)
	w.classDecorated = prev
	return true
}

// classBody tracks decorators so that the annotations of decorated members
// are treated as runtime metadata when that option is on. Decorators may be
// siblings preceding the member or children of it.
func (w *walker) classBody(node *sitter.Node) bool {
	if !w.opts.EmitDecoratorMetadata {
		return false
	}
	prev := w.metadataMember
	defer func() { w.metadataMember = prev }()

	pending := false
	for _, child := range parser.Children(node) {
		switch child.Kind() {
		case "decorator":
			pending = true
			w.walk(child)
			continue
		case "method_definition", "public_field_definition", "field_definition", "method_signature":
		default:
			w.walk(child)
			continue
		}

		decorated := pending || parser.ChildOfKind(child, "decorator") != nil || hasDecoratedParameter(child)
		if child.Kind() == "method_definition" && w.classDecorated && w.src.Text(child.ChildByFieldName("name")) == "constructor" {
			decorated = true
		}
		pending = false

		w.metadataMember = nil
		if decorated {
			key := keyOf(child)
			w.metadataMember = &key
		}
		w.walk(child)
	}
	return true
}

func hasDecoratedParameter(member *sitter.Node) bool {
	params := member.ChildByFieldName("parameters")
	for _, param := range parser.NamedChildren(params) {
		if parser.ChildOfKind(param, "decorator") != nil {
			return true
		}
	}
	return false
}

// isMetadataSite reports whether a type annotation belongs directly to the
// decorated member or to one of its parameters.
func (w *walker) isMetadataSite(node *sitter.Node) bool {
	if w.metadataMember == nil || node.Kind() != "type_annotation" {
		return false
	}
	parent := node.Parent()
	if parent == nil {
		return false
	}
	if keyOf(parent) == *w.metadataMember {
		return true
	}
	switch parent.Kind() {
	case "required_parameter", "optional_parameter":
	default:
		return false
	}
	params := parent.Parent()
	if params == nil {
		return false
	}
	owner := params.Parent()
	return owner != nil && keyOf(owner) == *w.metadataMember
}

// jsxElement records the tag name and the implicit factory reference that
// compiled JSX produces.
func (w *walker) jsxElement(node *sitter.Node) bool {
	if factory := strings.TrimSpace(w.opts.JSXFactory); factory != "" {
		root, _, _ := strings.Cut(factory, ".")
		w.referenceName(root, w.src.Span(node), MeaningValue, ValuePosition, false)
	}

	name := node.ChildByFieldName("name")
	if name != nil {
		switch name.Kind() {
		case "identifier":
			if !isIntrinsicTag(w.src.Text(name)) {
				w.reference(name, MeaningValue, ValuePosition)
			}
		case "member_expression", "nested_identifier":
			w.withMode(ValuePosition, func() { w.walk(name) })
		}
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		if node.FieldNameForChild(uint32(i)) == "name" {
			continue
		}
		w.withMode(ValuePosition, func() { w.walk(node.Child(i)) })
	}
	return true
}

// isIntrinsicTag reports lowercase host elements such as <div>.
func isIntrinsicTag(name string) bool {
	if name == "" || strings.Contains(name, "-") {
		return true
	}
	c := name[0]
	return c >= 'a' && c <= 'z'
}
