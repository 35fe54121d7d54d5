package elision

import (
	"fmt"

	"elision/internal/core/errors"
	"elision/internal/engine/parser"
)

// Options controls the decision rules. The zero value disables partial
// import lists; use DefaultOptions.
type Options struct {
	// PartialNamedImports allows RetainSubset verdicts.
	PartialNamedImports bool
	// PreserveValueImports keeps every binding not declared type-only.
	PreserveValueImports bool
	// EmitDecoratorMetadata turns annotations of decorated class members
	// into value positions.
	EmitDecoratorMetadata bool
	// JSXFactory is the value every JSX element implicitly references.
	JSXFactory      string
	ReportUnused    bool
	ReportAmbiguous bool
	// Locator, when set, must accept every specifier or the declaration is
	// retained whole.
	Locator SpecifierLocator
}

func DefaultOptions() Options {
	return Options{
		PartialNamedImports: true,
		JSXFactory:          "React",
		ReportUnused:        true,
	}
}

// Fingerprint identifies the options that influence results, for cache keys.
func (o Options) Fingerprint() string {
	return fmt.Sprintf("partial=%t,preserve=%t,metadata=%t,jsx=%s,unused=%t,ambiguous=%t,locator=%t",
		o.PartialNamedImports, o.PreserveValueImports, o.EmitDecoratorMetadata, o.JSXFactory,
		o.ReportUnused, o.ReportAmbiguous, o.Locator != nil)
}

// Result is the analysis of one module. Verdicts is parallel to
// Declarations; Usage is indexed by binding ID.
type Result struct {
	Path         string               `json:"path" yaml:"path"`
	Language     string               `json:"language" yaml:"language"`
	Declarations []*ImportDeclaration `json:"declarations" yaml:"declarations"`
	Verdicts     []ElisionVerdict     `json:"verdicts" yaml:"verdicts"`
	Usage        []UsageVerdict       `json:"-" yaml:"-"`
	References   []Reference          `json:"-" yaml:"-"`
	Unresolved   []UnresolvedName     `json:"unresolved,omitempty" yaml:"unresolved,omitempty"`
	Diagnostics  []Diagnostic         `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

func (r *Result) Verdict(decl *ImportDeclaration) ElisionVerdict {
	return r.Verdicts[decl.Index]
}

func (r *Result) BindingUsage(b *ImportBinding) UsageVerdict {
	return r.Usage[b.ID]
}

func (r *Result) HasErrors() bool {
	return HasErrors(r.Diagnostics)
}

// Find returns the first declaration importing specifier.
func (r *Result) Find(specifier string) (*ImportDeclaration, bool) {
	for _, decl := range r.Declarations {
		if decl.Specifier == specifier {
			return decl, true
		}
	}
	return nil, false
}

// Analyzer is stateless apart from its options and safe for concurrent use.
type Analyzer struct {
	opts Options
}

func New(opts Options) *Analyzer {
	return &Analyzer{opts: opts}
}

func (a *Analyzer) Options() Options { return a.opts }

// Analyze runs the import table builder, the reference walker and the
// decision engine over one parsed module. Diagnostics are returned in the
// result and, when sink is non-nil, forwarded to it as they are produced.
func (a *Analyzer) Analyze(src *parser.Source, sink Sink) (*Result, error) {
	root := src.Root()
	if root == nil {
		return nil, errors.AddContext(errors.New(errors.CodeParseError, "source has no syntax tree"), errors.CtxPath, src.Path)
	}

	opts := a.opts
	if !src.HasTypeSyntax() {
		// Without type syntax every import may carry a value.
		opts.PreserveValueImports = true
	}

	collector := NewCollector()
	report := teeSink{local: collector, external: sink}

	tables := newImportTableBuilder(src, report, opts.Locator)
	tables.build(root)

	module, scopes := bindModule(src, root, tables.localImports())
	w := newWalker(src, opts, module, scopes)
	w.run(root)

	usage := make([]UsageVerdict, len(tables.bindings))
	for _, ref := range w.refs {
		b := ref.Binding
		if ref.Context == ValuePosition && b.Declared == DeclaredTypeOnly {
			report.Report(Diagnostic{
				Kind:     TypeOnlyBindingUsedAsValue,
				Severity: SeverityError,
				Message:  fmt.Sprintf("%q is imported with 'type' and cannot be used as a value", ref.Name),
				Span:     ref.Span,
			})
		}
		if ref.Context == Ambiguous && opts.ReportAmbiguous && b.Declared != DeclaredTypeOnly {
			report.Report(ambiguousDiagnostic(ref.Name, ref.Span))
		}
		usage[b.ID] = usage[b.ID].join(classify(ref))
	}

	for _, decl := range tables.decls {
		if decl.Kind != DeclReExport && decl.Kind != DeclReExportAll {
			continue
		}
		for _, b := range decl.Bindings {
			u, ctx := reExportUsage(b)
			if ctx == Ambiguous && opts.ReportAmbiguous && decl.Kind == DeclReExport {
				report.Report(ambiguousDiagnostic(b.LocalName, b.Span))
			}
			usage[b.ID] = usage[b.ID].join(u)
		}
	}

	detectConflicts(tables.decls, w.exports, report, tables.forced)

	if opts.ReportUnused {
		for _, b := range tables.localImports() {
			if usage[b.ID] != Unused || b.decl.Malformed || tables.duplicates[b] {
				continue
			}
			report.Report(Diagnostic{
				Kind:     UnusedImportBinding,
				Severity: SeverityInfo,
				Message:  fmt.Sprintf("%q is imported but never used", b.LocalName),
				Span:     b.Span,
			})
		}
	}

	verdicts := make([]ElisionVerdict, len(tables.decls))
	for i, decl := range tables.decls {
		verdicts[i] = decide(decl, usage, opts, tables.forced[decl])
	}

	return &Result{
		Path:         src.Path,
		Language:     src.Language,
		Declarations: tables.decls,
		Verdicts:     verdicts,
		Usage:        usage,
		References:   w.refs,
		Unresolved:   w.unresolved,
		Diagnostics:  collector.Diagnostics(),
	}, nil
}

func ambiguousDiagnostic(name string, span parser.Span) Diagnostic {
	return Diagnostic{
		Kind:     AmbiguousBindingContext,
		Severity: SeverityInfo,
		Message:  fmt.Sprintf("%q may be a type or a value; treated as a value use", name),
		Span:     span,
	}
}
