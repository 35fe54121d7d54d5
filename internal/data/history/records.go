package history

import (
	"elision/internal/engine/elision"
)

// Records flattens module results into a run summary and its verdict and
// diagnostic rows. The run ID and timestamp are left for SaveRun to fill.
func Records(project, options string, results []*elision.Result) (Run, []VerdictRecord, []DiagnosticRecord) {
	run := Run{Project: project, Options: options, Files: len(results)}
	var verdicts []VerdictRecord
	var diags []DiagnosticRecord

	for _, res := range results {
		for i, decl := range res.Declarations {
			v := res.Verdicts[i]
			run.Declarations++
			switch v.Kind {
			case elision.ElideWhole:
				run.Elided++
			case elision.RetainWhole:
				run.Retained++
			case elision.RetainSubset:
				run.Subset++
			}
			verdicts = append(verdicts, VerdictRecord{
				Path:      res.Path,
				Line:      decl.Span.StartLine,
				Specifier: decl.Specifier,
				Kind:      decl.Kind.String(),
				Verdict:   v.Kind.String(),
				Retained:  append([]string(nil), v.Retained...),
			})
		}
		for _, d := range res.Diagnostics {
			switch d.Severity {
			case elision.SeverityError:
				run.Errors++
			case elision.SeverityWarning:
				run.Warnings++
			}
			diags = append(diags, DiagnosticRecord{
				Path:     res.Path,
				Line:     d.Span.StartLine,
				Column:   d.Span.StartColumn,
				Kind:     string(d.Kind),
				Severity: d.Severity.String(),
				Message:  d.Message,
			})
		}
	}
	return run, verdicts, diags
}
