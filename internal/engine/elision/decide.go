package elision

import (
	"fmt"

	"elision/internal/engine/parser"
)

// classify maps one occurrence to the usage it contributes. Ambiguous
// occurrences count as value uses; a type-only import can never contribute
// more than TypeOnly.
func classify(ref Reference) UsageVerdict {
	usage := TypeOnly
	if ref.Context != TypePosition {
		usage = ValueUsed
	}
	if ref.Binding.Declared == DeclaredTypeOnly {
		usage = TypeOnly
	}
	return usage
}

// reExportUsage classifies a specifier of `export { ... } from "m"`. The
// target module is never opened, so a plain specifier is ambiguous.
func reExportUsage(b *ImportBinding) (UsageVerdict, ContextKind) {
	if b.Declared == DeclaredTypeOnly {
		return TypeOnly, TypePosition
	}
	return ValueUsed, Ambiguous
}

// decide computes the verdict for one declaration from the usage of its
// bindings.
func decide(decl *ImportDeclaration, usage []UsageVerdict, opts Options, forced string) ElisionVerdict {
	switch {
	case forced != "":
		return ElisionVerdict{Kind: RetainWhole, Reason: forced}
	case decl.Malformed:
		return ElisionVerdict{Kind: RetainWhole, Reason: "malformed declaration"}
	case decl.Kind == DeclSideEffect:
		return ElisionVerdict{Kind: RetainWhole, Reason: "side-effect import"}
	case decl.Kind == DeclReExportAll && decl.TypeOnly:
		return ElisionVerdict{Kind: ElideWhole, Reason: "type-only re-export"}
	case decl.Kind == DeclReExportAll:
		return ElisionVerdict{Kind: RetainWhole, Reason: "export * may forward values"}
	case len(decl.Bindings) == 0:
		return ElisionVerdict{Kind: ElideWhole, Reason: "no bindings"}
	}

	var retained []*ImportBinding
	for _, b := range decl.Bindings {
		if b.Declared == DeclaredTypeOnly {
			continue
		}
		if usage[b.ID] == ValueUsed || opts.PreserveValueImports {
			retained = append(retained, b)
		}
	}

	switch {
	case len(retained) == 0:
		return ElisionVerdict{Kind: ElideWhole, Reason: "no binding is used as a value"}
	case len(retained) == len(decl.Bindings):
		return ElisionVerdict{Kind: RetainWhole, Reason: "every binding is used as a value"}
	}
	for _, b := range retained {
		if b.Kind == BindingNamespace {
			return ElisionVerdict{Kind: RetainWhole, Reason: fmt.Sprintf("namespace binding %s is used as a value", b.LocalName)}
		}
	}
	if !opts.PartialNamedImports {
		return ElisionVerdict{Kind: RetainWhole, Reason: "partial import lists disabled"}
	}

	names := make([]string, 0, len(retained))
	for _, b := range retained {
		names = append(names, b.LocalName)
	}
	return ElisionVerdict{Kind: RetainSubset, Retained: names, Reason: "some bindings are only used as types"}
}

type exportUse struct {
	typeOnly bool
	value    bool
	span     parser.Span
	decls    []*ImportDeclaration
}

// detectConflicts reports exported names that appear both type-only and as
// values in export clauses of the same module. Every declaration feeding
// such a name is retained whole.
func detectConflicts(decls []*ImportDeclaration, exports []exportEntry, sink Sink, forced map[*ImportDeclaration]string) {
	uses := make(map[string]*exportUse)
	var order []string
	record := func(name string, typeOnly bool, span parser.Span, decl *ImportDeclaration) {
		use, ok := uses[name]
		if !ok {
			use = &exportUse{span: span}
			uses[name] = use
			order = append(order, name)
		}
		if typeOnly {
			use.typeOnly = true
		} else {
			use.value = true
		}
		if decl != nil {
			use.decls = append(use.decls, decl)
		}
	}

	for _, decl := range decls {
		if decl.Kind != DeclReExport {
			continue
		}
		for _, b := range decl.Bindings {
			record(b.LocalName, b.Declared == DeclaredTypeOnly, b.Span, decl)
		}
	}
	for _, entry := range exports {
		var decl *ImportDeclaration
		if entry.Binding != nil {
			decl = entry.Binding.decl
		}
		record(entry.Name, entry.TypeOnly, entry.Span, decl)
	}

	for _, name := range order {
		use := uses[name]
		if !use.typeOnly || !use.value {
			continue
		}
		sink.Report(Diagnostic{
			Kind:     ConflictingReExportQualifier,
			Severity: SeverityError,
			Message:  fmt.Sprintf("%q is exported both as a type-only and as a value export", name),
			Span:     use.span,
		})
		for _, decl := range use.decls {
			if _, ok := forced[decl]; !ok {
				forced[decl] = fmt.Sprintf("conflicting export qualifiers for %s", name)
			}
		}
	}
}
