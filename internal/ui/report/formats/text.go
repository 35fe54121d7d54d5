package formats

import (
	"fmt"
	"strings"

	"elision/internal/engine/elision"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true)

	elidedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981"))

	subsetStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24"))

	retainedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

// RenderText is the human-readable report. Colours are dropped when the
// output is not a terminal.
func RenderText(rep Report) []byte {
	var b strings.Builder
	for _, res := range sortedResults(rep.Results) {
		if len(res.Declarations) == 0 && len(res.Diagnostics) == 0 {
			continue
		}
		b.WriteString(titleStyle.Render(relativePath(rep.Root, res.Path)))
		b.WriteByte('\n')
		for i, decl := range res.Declarations {
			v := res.Verdicts[i]
			fmt.Fprintf(&b, "  %4d  %-40s %s\n", decl.Span.StartLine, decl.Specifier, verdictStyle(v.Kind).Render(v.String()))
		}
		for _, d := range res.Diagnostics {
			fmt.Fprintf(&b, "  %4d:%-3d %s %s\n", d.Span.StartLine, d.Span.StartColumn,
				severityStyle(d.Severity).Render(d.Severity.String()), d.Message)
		}
	}
	for _, f := range rep.Failures {
		fmt.Fprintf(&b, "%s %s: %s\n", errorStyle.Render("failed"), relativePath(rep.Root, f.Path), f.Error)
	}

	s := rep.Summary()
	b.WriteString(statusStyle.Render(fmt.Sprintf(
		"%d files, %d declarations: %d elided, %d trimmed, %d retained; %d errors, %d warnings",
		s.Files, s.Declarations, s.Elided, s.Subset, s.Retained, s.Errors, s.Warnings,
	)))
	b.WriteByte('\n')
	return []byte(b.String())
}

func verdictStyle(kind elision.VerdictKind) lipgloss.Style {
	switch kind {
	case elision.ElideWhole:
		return elidedStyle
	case elision.RetainSubset:
		return subsetStyle
	}
	return retainedStyle
}

func severityStyle(sev elision.Severity) lipgloss.Style {
	switch sev {
	case elision.SeverityError:
		return errorStyle
	case elision.SeverityWarning:
		return warningStyle
	}
	return statusStyle
}
