package formats

import (
	"path/filepath"
	"sort"

	"elision/internal/engine/elision"
)

// Report is the input shared by every renderer.
type Report struct {
	Root     string
	Results  []*elision.Result
	Failures []Failure
}

// Failure is a file that could not be analysed.
type Failure struct {
	Path  string `json:"path" yaml:"path"`
	Error string `json:"error" yaml:"error"`
}

type Summary struct {
	Files        int `json:"files" yaml:"files"`
	Declarations int `json:"declarations" yaml:"declarations"`
	Elided       int `json:"elided" yaml:"elided"`
	Retained     int `json:"retained" yaml:"retained"`
	Subset       int `json:"subset" yaml:"subset"`
	Errors       int `json:"errors" yaml:"errors"`
	Warnings     int `json:"warnings" yaml:"warnings"`
	Infos        int `json:"infos" yaml:"infos"`
	Failures     int `json:"failures" yaml:"failures"`
}

func (r Report) Summary() Summary {
	s := Summary{Files: len(r.Results), Failures: len(r.Failures)}
	for _, res := range r.Results {
		for _, v := range res.Verdicts {
			s.Declarations++
			switch v.Kind {
			case elision.ElideWhole:
				s.Elided++
			case elision.RetainWhole:
				s.Retained++
			case elision.RetainSubset:
				s.Subset++
			}
		}
		for _, d := range res.Diagnostics {
			switch d.Severity {
			case elision.SeverityError:
				s.Errors++
			case elision.SeverityWarning:
				s.Warnings++
			default:
				s.Infos++
			}
		}
	}
	return s
}

type documentView struct {
	Summary  Summary      `json:"summary" yaml:"summary"`
	Modules  []moduleView `json:"modules" yaml:"modules"`
	Failures []Failure    `json:"failures,omitempty" yaml:"failures,omitempty"`
}

type moduleView struct {
	Path         string               `json:"path" yaml:"path"`
	Language     string               `json:"language" yaml:"language"`
	Declarations []declarationView    `json:"declarations" yaml:"declarations"`
	Diagnostics  []elision.Diagnostic `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

type declarationView struct {
	Line      int           `json:"line" yaml:"line"`
	Kind      string        `json:"kind" yaml:"kind"`
	Specifier string        `json:"specifier" yaml:"specifier"`
	TypeOnly  bool          `json:"type_only,omitempty" yaml:"type_only,omitempty"`
	Verdict   string        `json:"verdict" yaml:"verdict"`
	Retained  []string      `json:"retained,omitempty" yaml:"retained,omitempty"`
	Bindings  []bindingView `json:"bindings,omitempty" yaml:"bindings,omitempty"`
}

type bindingView struct {
	Name     string `json:"name" yaml:"name"`
	Kind     string `json:"kind" yaml:"kind"`
	Declared string `json:"declared" yaml:"declared"`
	Usage    string `json:"usage" yaml:"usage"`
}

func (r Report) document() documentView {
	doc := documentView{Summary: r.Summary(), Failures: r.Failures}
	for _, res := range sortedResults(r.Results) {
		m := moduleView{
			Path:         relativePath(r.Root, res.Path),
			Language:     res.Language,
			Declarations: make([]declarationView, 0, len(res.Declarations)),
			Diagnostics:  res.Diagnostics,
		}
		for i, decl := range res.Declarations {
			v := res.Verdicts[i]
			dv := declarationView{
				Line:      decl.Span.StartLine,
				Kind:      decl.Kind.String(),
				Specifier: decl.Specifier,
				TypeOnly:  decl.TypeOnly,
				Verdict:   v.Kind.String(),
				Retained:  v.Retained,
			}
			for _, b := range decl.Bindings {
				dv.Bindings = append(dv.Bindings, bindingView{
					Name:     b.Specifier(),
					Kind:     b.Kind.String(),
					Declared: b.Declared.String(),
					Usage:    res.BindingUsage(b).String(),
				})
			}
			m.Declarations = append(m.Declarations, dv)
		}
		doc.Modules = append(doc.Modules, m)
	}
	return doc
}

func sortedResults(in []*elision.Result) []*elision.Result {
	out := append([]*elision.Result(nil), in...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// relativePath renders filePath relative to root with forward slashes. Paths
// outside root or already relative are only slash-converted.
func relativePath(root, filePath string) string {
	if root != "" && filepath.IsAbs(filePath) {
		if rel, err := filepath.Rel(root, filePath); err == nil {
			filePath = rel
		}
	}
	return filepath.ToSlash(filePath)
}
