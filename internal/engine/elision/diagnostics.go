package elision

import (
	"fmt"
	"sort"

	"elision/internal/engine/parser"
)

type DiagnosticKind string

const (
	// UnresolvedImportSpecifier: the specifier is malformed or cannot be
	// located. The declaration is retained whole.
	UnresolvedImportSpecifier DiagnosticKind = "UnresolvedImportSpecifier"
	// AmbiguousBindingContext: an occurrence could be a type or a value and
	// was counted as a value use.
	AmbiguousBindingContext DiagnosticKind = "AmbiguousBindingContext"
	// ConflictingReExportQualifier: one exported name is both type-only and
	// value-exported. Affected declarations are retained whole.
	ConflictingReExportQualifier DiagnosticKind = "ConflictingReExportQualifier"
	// TypeOnlyBindingUsedAsValue: a `type`-qualified import appears where a
	// runtime value is required.
	TypeOnlyBindingUsedAsValue DiagnosticKind = "TypeOnlyBindingUsedAsValue"
	// UnusedImportBinding: the binding is never referenced.
	UnusedImportBinding DiagnosticKind = "UnusedImportBinding"
	// DuplicateImportBinding: two imports declare the same local name. Every
	// declaration involved is retained whole.
	DuplicateImportBinding DiagnosticKind = "DuplicateImportBinding"
)

type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

var severityNames = [...]string{
	SeverityInfo:    "info",
	SeverityWarning: "warning",
	SeverityError:   "error",
}

func (s Severity) String() string { return severityNames[s] }

func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

type Diagnostic struct {
	Kind     DiagnosticKind `json:"kind" yaml:"kind"`
	Severity Severity       `json:"severity" yaml:"severity"`
	Message  string         `json:"message" yaml:"message"`
	Span     parser.Span    `json:"span" yaml:"span"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s (%s)", d.Span.File, d.Span.StartLine, d.Span.StartColumn, d.Severity, d.Message, d.Kind)
}

// Sink receives diagnostics as analysis proceeds. Reporting never aborts
// analysis.
type Sink interface {
	Report(d Diagnostic)
}

// Collector is a Sink that keeps diagnostics in memory. It is not safe for
// concurrent use; each module analysis owns its own collector.
type Collector struct {
	diags []Diagnostic
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Report(d Diagnostic) {
	c.diags = append(c.diags, d)
}

// Diagnostics returns the collected diagnostics sorted by position, then kind.
func (c *Collector) Diagnostics() []Diagnostic {
	out := append([]Diagnostic(nil), c.diags...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Span.StartByte != out[j].Span.StartByte {
			return out[i].Span.StartByte < out[j].Span.StartByte
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

// teeSink forwards to a module-local collector and an optional external sink.
type teeSink struct {
	local    *Collector
	external Sink
}

func (t teeSink) Report(d Diagnostic) {
	t.local.Report(d)
	if t.external != nil {
		t.external.Report(d)
	}
}

func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}
