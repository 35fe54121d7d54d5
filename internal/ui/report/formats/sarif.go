package formats

import (
	"encoding/json"
	"fmt"

	"elision/internal/engine/elision"
	"elision/internal/shared/version"
)

// SARIF v2.1.0 schema – see https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json

const (
	sarifSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"
	sarifVersion = "2.1.0"

	ruleIDElidable = "ELI000"
)

var sarifRuleIDs = map[elision.DiagnosticKind]string{
	elision.UnresolvedImportSpecifier:    "ELI001",
	elision.AmbiguousBindingContext:      "ELI002",
	elision.ConflictingReExportQualifier: "ELI003",
	elision.TypeOnlyBindingUsedAsValue:   "ELI004",
	elision.UnusedImportBinding:          "ELI005",
	elision.DuplicateImportBinding:       "ELI006",
}

var sarifRuleText = map[string]string{
	ruleIDElidable: "Import declaration is only needed for types and is removed from emitted output.",
	"ELI001":       "Import specifier is malformed or cannot be located; the declaration is kept.",
	"ELI002":       "Identifier may denote a type or a value and is treated as a value use.",
	"ELI003":       "The same name is re-exported both as type-only and as a value.",
	"ELI004":       "A binding imported with 'type' is used as a value.",
	"ELI005":       "Imported binding is never referenced.",
	"ELI006":       "The same local name is imported more than once; the declarations are kept.",
}

type sarifReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string                 `json:"id"`
	Name             string                 `json:"name"`
	ShortDescription sarifMessage           `json:"shortDescription"`
	DefaultConfig    sarifRuleDefaultConfig `json:"defaultConfiguration"`
}

type sarifRuleDefaultConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI       string `json:"uri"`
	URIBaseID string `json:"uriBaseId"`
}

type sarifRegion struct {
	StartLine   int `json:"startLine,omitempty"`
	StartColumn int `json:"startColumn,omitempty"`
	EndLine     int `json:"endLine,omitempty"`
	EndColumn   int `json:"endColumn,omitempty"`
}

// GenerateSARIF builds a SARIF v2.1.0 document: one result per diagnostic
// and one note per declaration that is elided or trimmed. File URIs are
// relative to the report root.
func GenerateSARIF(rep Report) ([]byte, error) {
	results := make([]sarifResult, 0)
	used := make(map[string]string)

	for _, res := range sortedResults(rep.Results) {
		uri := relativePath(rep.Root, res.Path)
		for i, decl := range res.Declarations {
			v := res.Verdicts[i]
			if v.Kind == elision.RetainWhole {
				continue
			}
			used[ruleIDElidable] = "note"
			msg := fmt.Sprintf("Import of %q is type-only and is removed", decl.Specifier)
			if v.Kind == elision.RetainSubset {
				msg = fmt.Sprintf("Import of %q keeps only %v", decl.Specifier, v.Retained)
			}
			results = append(results, sarifResult{
				RuleID:    ruleIDElidable,
				Level:     "note",
				Message:   sarifMessage{Text: msg},
				Locations: []sarifLocation{spanLocation(uri, decl.Span.StartLine, decl.Span.StartColumn, decl.Span.EndLine, decl.Span.EndColumn)},
			})
		}
		for _, d := range res.Diagnostics {
			id, ok := sarifRuleIDs[d.Kind]
			if !ok {
				continue
			}
			level := severityToLevel(d.Severity)
			used[id] = level
			results = append(results, sarifResult{
				RuleID:    id,
				Level:     level,
				Message:   sarifMessage{Text: d.Message},
				Locations: []sarifLocation{spanLocation(uri, d.Span.StartLine, d.Span.StartColumn, d.Span.EndLine, d.Span.EndColumn)},
			})
		}
	}

	report := sarifReport{
		Schema:  sarifSchema,
		Version: sarifVersion,
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:    "elision",
						Version: version.Version,
						Rules:   buildSARIFRules(used),
					},
				},
				Results: results,
			},
		},
	}
	return json.MarshalIndent(report, "", "  ")
}

// buildSARIFRules returns only the rules that have results, in ID order.
func buildSARIFRules(used map[string]string) []sarifRule {
	ids := []string{ruleIDElidable, "ELI001", "ELI002", "ELI003", "ELI004", "ELI005", "ELI006"}
	names := map[string]string{
		ruleIDElidable: "ElidableImport",
		"ELI001":       string(elision.UnresolvedImportSpecifier),
		"ELI002":       string(elision.AmbiguousBindingContext),
		"ELI003":       string(elision.ConflictingReExportQualifier),
		"ELI004":       string(elision.TypeOnlyBindingUsedAsValue),
		"ELI005":       string(elision.UnusedImportBinding),
		"ELI006":       string(elision.DuplicateImportBinding),
	}
	rules := make([]sarifRule, 0, len(used))
	for _, id := range ids {
		level, ok := used[id]
		if !ok {
			continue
		}
		rules = append(rules, sarifRule{
			ID:               id,
			Name:             names[id],
			ShortDescription: sarifMessage{Text: sarifRuleText[id]},
			DefaultConfig:    sarifRuleDefaultConfig{Level: level},
		})
	}
	return rules
}

func spanLocation(uri string, line, col, endLine, endCol int) sarifLocation {
	loc := sarifLocation{
		PhysicalLocation: sarifPhysicalLocation{
			ArtifactLocation: sarifArtifactLocation{URI: uri, URIBaseID: "%SRCROOT%"},
		},
	}
	if line > 0 {
		loc.PhysicalLocation.Region = &sarifRegion{StartLine: line, StartColumn: col, EndLine: endLine, EndColumn: endCol}
	}
	return loc
}

func severityToLevel(sev elision.Severity) string {
	switch sev {
	case elision.SeverityError:
		return "error"
	case elision.SeverityWarning:
		return "warning"
	}
	return "note"
}
