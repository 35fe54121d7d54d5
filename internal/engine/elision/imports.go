package elision

import (
	"fmt"
	"strings"

	"elision/internal/engine/parser"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// importTableBuilder collects the top-level import and re-export
// declarations of one module in source order.
type importTableBuilder struct {
	src     *parser.Source
	sink    Sink
	locator SpecifierLocator

	decls    []*ImportDeclaration
	bindings []*ImportBinding
	// forced maps a declaration to the reason it must be retained whole.
	forced map[*ImportDeclaration]string
	// duplicates holds the bindings whose local name is imported twice.
	duplicates map[*ImportBinding]bool
}

func newImportTableBuilder(src *parser.Source, sink Sink, locator SpecifierLocator) *importTableBuilder {
	return &importTableBuilder{
		src:        src,
		sink:       sink,
		locator:    locator,
		forced:     make(map[*ImportDeclaration]string),
		duplicates: make(map[*ImportBinding]bool),
	}
}

func (b *importTableBuilder) build(root *sitter.Node) {
	for _, stmt := range parser.NamedChildren(root) {
		switch stmt.Kind() {
		case "import_statement":
			b.importStatement(stmt)
		case "export_statement":
			switch {
			case stmt.ChildByFieldName("source") != nil:
				b.reExportStatement(stmt)
			case stmt.HasError() && parser.HasToken(stmt, "from"):
				b.recovered(stmt, DeclReExport)
			}
		default:
			if node := recoveredImport(stmt); node != nil {
				b.recovered(node, DeclImport)
			}
		}
	}
	b.checkDuplicates()
}

// checkDuplicates retains every declaration whose import shares its local
// name with another import. References cannot tell the two bindings apart.
func (b *importTableBuilder) checkDuplicates() {
	byName := make(map[string][]*ImportBinding)
	var order []string
	for _, binding := range b.localImports() {
		if len(byName[binding.LocalName]) == 0 {
			order = append(order, binding.LocalName)
		}
		byName[binding.LocalName] = append(byName[binding.LocalName], binding)
	}
	for _, name := range order {
		bindings := byName[name]
		if len(bindings) < 2 {
			continue
		}
		for _, binding := range bindings[1:] {
			b.sink.Report(Diagnostic{
				Kind:     DuplicateImportBinding,
				Severity: SeverityError,
				Message:  fmt.Sprintf("%q is imported more than once", name),
				Span:     binding.Span,
			})
		}
		for _, binding := range bindings {
			b.duplicates[binding] = true
			if _, ok := b.forced[binding.decl]; !ok {
				b.forced[binding.decl] = fmt.Sprintf("duplicate import of %s", name)
			}
		}
	}
}

// recoveredImport returns the error node along the leading edge of stmt
// when it starts with the import keyword.
func recoveredImport(stmt *sitter.Node) *sitter.Node {
	for node := stmt; node != nil; node = node.Child(0) {
		if !node.IsError() {
			continue
		}
		if first := node.Child(0); first != nil && !first.IsNamed() && first.Kind() == "import" {
			return node
		}
		return nil
	}
	return nil
}

// recovered records a declaration the parser could not make sense of. It
// is marked malformed, reported and retained whole.
func (b *importTableBuilder) recovered(node *sitter.Node, kind DeclarationKind) {
	clause := parser.ChildOfKind(node, "import_clause")
	if kind == DeclImport && clause == nil {
		kind = DeclSideEffect
	}
	decl := b.newDecl(node, kind)
	if clause != nil {
		b.importClause(decl, clause)
	}
	b.setSource(decl, node, parser.ChildOfKind(node, "string"))
}

func (b *importTableBuilder) newDecl(node *sitter.Node, kind DeclarationKind) *ImportDeclaration {
	decl := &ImportDeclaration{
		Index:        len(b.decls),
		Kind:         kind,
		Span:         b.src.Span(node),
		HasSemicolon: parser.HasToken(node, ";"),
		TypeOnly:     parser.HasToken(node, "type") || parser.HasToken(node, "typeof"),
	}
	if attrs := parser.ChildOfKind(node, "import_attribute"); attrs != nil {
		decl.Attributes = b.src.Text(attrs)
	}
	b.decls = append(b.decls, decl)
	return decl
}

func (b *importTableBuilder) addBinding(decl *ImportDeclaration, node *sitter.Node, local, original string, kind BindingKind, typeOnly bool) {
	declared := DeclaredValueAndType
	if typeOnly || decl.TypeOnly {
		declared = DeclaredTypeOnly
	}
	binding := &ImportBinding{
		ID:           len(b.bindings),
		LocalName:    local,
		OriginalName: original,
		Kind:         kind,
		Declared:     declared,
		Span:         b.src.Span(node),
		decl:         decl,
	}
	b.bindings = append(b.bindings, binding)
	decl.Bindings = append(decl.Bindings, binding)
}

func (b *importTableBuilder) importStatement(stmt *sitter.Node) {
	kind := DeclImport
	clause := parser.ChildOfKind(stmt, "import_clause")
	require := parser.ChildOfKind(stmt, "import_require_clause")
	switch {
	case require != nil:
		kind = DeclImportEquals
	case clause == nil:
		kind = DeclSideEffect
	}

	decl := b.newDecl(stmt, kind)
	source := stmt.ChildByFieldName("source")
	if require != nil {
		source = require.ChildByFieldName("source")
		if id := parser.ChildOfKind(require, "identifier"); id != nil {
			b.addBinding(decl, id, b.src.Text(id), "", BindingNamespace, false)
		}
	}
	if clause != nil {
		b.importClause(decl, clause)
	}
	b.setSource(decl, stmt, source)
}

func (b *importTableBuilder) importClause(decl *ImportDeclaration, clause *sitter.Node) {
	for _, child := range parser.NamedChildren(clause) {
		switch child.Kind() {
		case "identifier":
			b.addBinding(decl, child, b.src.Text(child), "default", BindingDefault, false)
		case "namespace_import":
			if id := parser.ChildOfKind(child, "identifier"); id != nil {
				b.addBinding(decl, id, b.src.Text(id), "", BindingNamespace, false)
			}
		case "named_imports":
			for _, spec := range parser.NamedChildren(child) {
				if spec.Kind() != "import_specifier" {
					continue
				}
				name := spec.ChildByFieldName("name")
				if name == nil {
					continue
				}
				local := name
				if alias := spec.ChildByFieldName("alias"); alias != nil {
					local = alias
				}
				original := unquote(b.src.Text(name))
				typeOnly := parser.HasToken(spec, "type") || parser.HasToken(spec, "typeof")
				b.addBinding(decl, spec, b.src.Text(local), original, BindingNamed, typeOnly)
			}
		}
	}
}

func (b *importTableBuilder) reExportStatement(stmt *sitter.Node) {
	kind := DeclReExport
	clause := parser.ChildOfKind(stmt, "export_clause")
	if clause == nil {
		kind = DeclReExportAll
	}
	decl := b.newDecl(stmt, kind)

	if clause != nil {
		for _, spec := range parser.NamedChildren(clause) {
			if spec.Kind() != "export_specifier" {
				continue
			}
			name := spec.ChildByFieldName("name")
			if name == nil {
				continue
			}
			exported := name
			if alias := spec.ChildByFieldName("alias"); alias != nil {
				exported = alias
			}
			typeOnly := parser.HasToken(spec, "type") || parser.HasToken(spec, "typeof")
			b.addBinding(decl, spec, unquote(b.src.Text(exported)), unquote(b.src.Text(name)), BindingNamed, typeOnly)
		}
	} else if ns := parser.ChildOfKind(stmt, "namespace_export"); ns != nil {
		if named := ns.NamedChild(0); named != nil {
			b.addBinding(decl, ns, unquote(b.src.Text(named)), "", BindingNamespace, false)
		}
	}
	b.setSource(decl, stmt, stmt.ChildByFieldName("source"))
}

// setSource records the specifier and reports declarations that cannot be
// trusted: syntax errors, empty specifiers and specifiers the locator
// rejects. All of these are retained whole.
func (b *importTableBuilder) setSource(decl *ImportDeclaration, stmt, source *sitter.Node) {
	if source != nil {
		decl.RawSpecifier = b.src.Text(source)
		decl.Specifier = unquote(decl.RawSpecifier)
	}

	var problem string
	switch {
	case parser.IsMalformed(stmt):
		decl.Malformed = true
		problem = "malformed import declaration"
	case source == nil || strings.TrimSpace(decl.Specifier) == "":
		decl.Malformed = true
		problem = "import declaration has an empty module specifier"
	case b.locator != nil && !b.locator.Locate(b.src.Path, decl.Specifier):
		problem = fmt.Sprintf("cannot resolve module specifier %q", decl.Specifier)
	default:
		return
	}

	b.forced[decl] = problem
	b.sink.Report(Diagnostic{
		Kind:     UnresolvedImportSpecifier,
		Severity: SeverityWarning,
		Message:  problem,
		Span:     decl.Span,
	})
}

// localImports returns the bindings that introduce local names.
func (b *importTableBuilder) localImports() []*ImportBinding {
	var out []*ImportBinding
	for _, binding := range b.bindings {
		switch binding.decl.Kind {
		case DeclImport, DeclImportEquals:
			out = append(out, binding)
		}
	}
	return out
}

func unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' || first == '\'' || first == '`') && first == last {
			return s[1 : len(s)-1]
		}
	}
	return s
}
