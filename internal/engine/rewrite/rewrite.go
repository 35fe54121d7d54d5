package rewrite

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"elision/internal/core/errors"
	"elision/internal/engine/elision"
)

type Style string

const (
	// StyleESM keeps import statements, dropping or trimming them in place.
	StyleESM Style = "esm"
	// StyleCommonJS replaces every import declaration with require calls.
	StyleCommonJS Style = "commonjs"
)

func ParseStyle(s string) (Style, error) {
	switch Style(strings.ToLower(strings.TrimSpace(s))) {
	case "", StyleESM:
		return StyleESM, nil
	case StyleCommonJS, "cjs":
		return StyleCommonJS, nil
	}
	return "", errors.New(errors.CodeValidationError, fmt.Sprintf("unknown rewrite style %q", s))
}

// Edit replaces content[Start:End] with Text.
type Edit struct {
	Start int
	End   int
	Text  string
}

// Rewrite applies the verdicts in res to content. Only import and re-export
// declarations are touched.
func Rewrite(content []byte, res *elision.Result, style Style) ([]byte, error) {
	edits, err := Edits(content, res, style)
	if err != nil {
		return nil, err
	}
	return Apply(content, edits)
}

// Edits computes the replacements for every declaration of res, in source
// order. Malformed declarations are left as written.
func Edits(content []byte, res *elision.Result, style Style) ([]Edit, error) {
	var edits []Edit
	for i, decl := range res.Declarations {
		verdict := res.Verdicts[i]
		if decl.Span.EndByte > len(content) || decl.Span.StartByte > decl.Span.EndByte {
			return nil, errors.AddContext(
				errors.New(errors.CodeValidationError, "declaration span outside source"),
				errors.CtxSpecifier, decl.Specifier,
			)
		}

		switch {
		case decl.Malformed:
		case verdict.Kind == elision.ElideWhole:
			edits = append(edits, Edit{
				Start: decl.Span.StartByte,
				End:   lineRemainder(content, decl.Span.EndByte),
				Text:  "",
			})
		case style == StyleCommonJS:
			edits = append(edits, Edit{
				Start: decl.Span.StartByte,
				End:   decl.Span.EndByte,
				Text:  renderCommonJS(decl, verdict),
			})
		case verdict.Kind == elision.RetainSubset:
			edits = append(edits, Edit{
				Start: decl.Span.StartByte,
				End:   decl.Span.EndByte,
				Text:  renderESM(decl, verdict),
			})
		}
	}
	return edits, nil
}

// Apply splices non-overlapping edits into content.
func Apply(content []byte, edits []Edit) ([]byte, error) {
	sorted := append([]Edit(nil), edits...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var out strings.Builder
	out.Grow(len(content))
	pos := 0
	for _, e := range sorted {
		if e.Start < pos || e.End < e.Start || e.End > len(content) {
			return nil, errors.New(errors.CodeValidationError, fmt.Sprintf("overlapping or invalid edit [%d,%d)", e.Start, e.End))
		}
		out.Write(content[pos:e.Start])
		out.WriteString(e.Text)
		pos = e.End
	}
	out.Write(content[pos:])
	return []byte(out.String()), nil
}

// lineRemainder extends end over trailing blanks and the line break when
// nothing else follows the statement on its line.
func lineRemainder(content []byte, end int) int {
	i := end
	for i < len(content) && (content[i] == ' ' || content[i] == '\t') {
		i++
	}
	switch {
	case i == len(content):
		return i
	case content[i] == '\n':
		return i + 1
	case content[i] == '\r' && i+1 < len(content) && content[i+1] == '\n':
		return i + 2
	}
	return end
}

// RuntimeSpecifiers lists, in order and without duplicates, the modules the
// rewritten program still loads.
func RuntimeSpecifiers(res *elision.Result) []string {
	seen := make(map[string]bool)
	var out []string
	for i, decl := range res.Declarations {
		if res.Verdicts[i].Kind == elision.ElideWhole || decl.Specifier == "" || seen[decl.Specifier] {
			continue
		}
		seen[decl.Specifier] = true
		out = append(out, decl.Specifier)
	}
	return out
}

// kept returns the bindings that survive the verdict. Type-only bindings
// never survive.
func kept(decl *elision.ImportDeclaration, verdict elision.ElisionVerdict) []*elision.ImportBinding {
	var retained map[string]bool
	if verdict.Kind == elision.RetainSubset {
		retained = make(map[string]bool, len(verdict.Retained))
		for _, name := range verdict.Retained {
			retained[name] = true
		}
	}
	var out []*elision.ImportBinding
	for _, b := range decl.Bindings {
		if b.Declared == elision.DeclaredTypeOnly {
			continue
		}
		if retained != nil && !retained[b.LocalName] {
			continue
		}
		out = append(out, b)
	}
	return out
}

func terminator(decl *elision.ImportDeclaration) string {
	if decl.HasSemicolon {
		return ";"
	}
	return ""
}

func renderESM(decl *elision.ImportDeclaration, verdict elision.ElisionVerdict) string {
	bindings := kept(decl, verdict)
	var b strings.Builder

	switch decl.Kind {
	case elision.DeclReExport:
		names := make([]string, 0, len(bindings))
		for _, binding := range bindings {
			if binding.OriginalName != "" && binding.OriginalName != binding.LocalName {
				names = append(names, elision.QuoteName(binding.OriginalName)+" as "+elision.QuoteName(binding.LocalName))
			} else {
				names = append(names, elision.QuoteName(binding.LocalName))
			}
		}
		fmt.Fprintf(&b, "export { %s } from %s", strings.Join(names, ", "), decl.RawSpecifier)
	default:
		var head []string
		var named []string
		for _, binding := range bindings {
			switch binding.Kind {
			case elision.BindingDefault, elision.BindingNamespace:
				head = append(head, binding.Specifier())
			default:
				named = append(named, binding.Specifier())
			}
		}
		if len(named) > 0 {
			head = append(head, "{ "+strings.Join(named, ", ")+" }")
		}
		fmt.Fprintf(&b, "import %s from %s", strings.Join(head, ", "), decl.RawSpecifier)
	}

	if decl.Attributes != "" {
		b.WriteString(" " + decl.Attributes)
	}
	b.WriteString(terminator(decl))
	return b.String()
}

func renderCommonJS(decl *elision.ImportDeclaration, verdict elision.ElisionVerdict) string {
	req := fmt.Sprintf("require(%s)", decl.RawSpecifier)
	bindings := kept(decl, verdict)

	switch decl.Kind {
	case elision.DeclSideEffect:
		return req + ";"
	case elision.DeclImportEquals:
		if len(bindings) == 0 {
			return req + ";"
		}
		return fmt.Sprintf("const %s = %s;", bindings[0].LocalName, req)
	case elision.DeclReExportAll:
		if len(decl.Bindings) == 1 {
			return fmt.Sprintf("%s = %s;", member("exports", decl.Bindings[0].LocalName), req)
		}
		return fmt.Sprintf("Object.assign(exports, %s);", req)
	case elision.DeclReExport:
		lines := make([]string, 0, len(bindings))
		for _, binding := range bindings {
			lines = append(lines, fmt.Sprintf("%s = %s;", member("exports", binding.LocalName), member(req, binding.OriginalName)))
		}
		if len(lines) == 0 {
			return req + ";"
		}
		return strings.Join(lines, "\n")
	}

	var def, ns *elision.ImportBinding
	var named []string
	for _, binding := range bindings {
		switch binding.Kind {
		case elision.BindingDefault:
			def = binding
		case elision.BindingNamespace:
			ns = binding
		default:
			if binding.OriginalName != binding.LocalName {
				named = append(named, elision.QuoteName(binding.OriginalName)+": "+binding.LocalName)
			} else {
				named = append(named, binding.LocalName)
			}
		}
	}

	groups := 0
	for _, present := range []bool{def != nil, ns != nil, len(named) > 0} {
		if present {
			groups++
		}
	}
	if groups == 0 {
		return req + ";"
	}

	source := req
	var lines []string
	if groups > 1 {
		source = moduleVar(decl.Specifier)
		if ns != nil {
			source = ns.LocalName
		}
		lines = append(lines, fmt.Sprintf("const %s = %s;", source, req))
	} else if ns != nil {
		lines = append(lines, fmt.Sprintf("const %s = %s;", ns.LocalName, req))
	}
	if def != nil {
		lines = append(lines, fmt.Sprintf("const %s = %s.default;", def.LocalName, source))
	}
	if len(named) > 0 {
		lines = append(lines, fmt.Sprintf("const { %s } = %s;", strings.Join(named, ", "), source))
	}
	return strings.Join(lines, "\n")
}

// member renders a property access, using brackets for names that are not
// identifiers.
func member(object, name string) string {
	if elision.IsIdentifierName(name) {
		return object + "." + name
	}
	return object + "[" + strconv.Quote(name) + "]"
}

// moduleVar derives a temporary identifier from a specifier, e.g. "./a-b" to
// a_b_1.
func moduleVar(specifier string) string {
	var b strings.Builder
	for _, r := range specifier {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case b.Len() > 0 && !strings.HasSuffix(b.String(), "_"):
			b.WriteByte('_')
		}
	}
	name := strings.Trim(b.String(), "_")
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "m_" + name
	}
	return name + "_1"
}
