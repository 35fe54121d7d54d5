package formats

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"elision/internal/core/errors"
	"elision/internal/data/history"
	"elision/internal/engine/elision"
	"elision/internal/engine/parser"

	"gopkg.in/yaml.v3"
)

const sample = `import { T } from "./types";
import { A, B } from "./m";
import "./side";
import type { X } from "./x";
let t: T;
A();
X();
`

func analyze(t *testing.T, path, code string) *elision.Result {
	t.Helper()
	loader, err := parser.NewGrammarLoader()
	if err != nil {
		t.Fatal(err)
	}
	src, err := parser.NewParser(loader).Parse(path, []byte(code))
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()
	res, err := elision.New(elision.DefaultOptions()).Analyze(src, nil)
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func sampleReport(t *testing.T) Report {
	return Report{
		Root: "/project",
		Results: []*elision.Result{
			analyze(t, "/project/src/z.ts", "export {};\n"),
			analyze(t, "/project/src/a.ts", sample),
		},
		Failures: []Failure{{Path: "/project/src/bad.ts", Error: "read failed"}},
	}
}

func TestSummary(t *testing.T) {
	s := sampleReport(t).Summary()
	if s.Files != 2 || s.Declarations != 4 {
		t.Fatalf("unexpected counts %+v", s)
	}
	if s.Elided != 2 || s.Subset != 1 || s.Retained != 1 {
		t.Errorf("unexpected verdict counts %+v", s)
	}
	if s.Errors != 1 || s.Failures != 1 {
		t.Errorf("unexpected error counts %+v", s)
	}
}

func TestRenderText(t *testing.T) {
	out := string(RenderText(sampleReport(t)))
	for _, want := range []string{
		"src/a.ts",
		"./types",
		"elide-whole",
		"retain-subset(A)",
		"retain-whole",
		"cannot be used as a value",
		"failed",
		"4 declarations: 2 elided, 1 trimmed, 1 retained; 1 errors",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text report missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "src/z.ts") {
		t.Errorf("modules without imports or diagnostics should be omitted:\n%s", out)
	}
}

func TestRenderJSON(t *testing.T) {
	data, err := Render("json", sampleReport(t))
	if err != nil {
		t.Fatal(err)
	}
	var doc documentView
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(doc.Modules) != 2 || doc.Modules[0].Path != "src/a.ts" {
		t.Fatalf("modules must be sorted and relative, got %+v", doc.Modules)
	}
	decl := doc.Modules[0].Declarations[1]
	if decl.Specifier != "./m" || decl.Verdict != "retain-subset" || len(decl.Retained) != 1 {
		t.Errorf("unexpected declaration %+v", decl)
	}
	if decl.Bindings[0].Usage != "value-used" || decl.Bindings[1].Usage != "unused" {
		t.Errorf("unexpected binding usage %+v", decl.Bindings)
	}
	if doc.Modules[0].Declarations[0].Line != 1 {
		t.Errorf("expected line 1, got %d", doc.Modules[0].Declarations[0].Line)
	}
}

func TestRenderYAML(t *testing.T) {
	data, err := Render("yaml", sampleReport(t))
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	summary, ok := doc["summary"].(map[string]any)
	if !ok || summary["elided"] != 2 {
		t.Fatalf("unexpected summary %v", doc["summary"])
	}
	if !strings.Contains(string(data), "severity: error") {
		t.Errorf("expected textual severity in YAML:\n%s", data)
	}
}

func TestRender_UnknownFormat(t *testing.T) {
	_, err := Render("xml", Report{})
	if !errors.IsCode(err, errors.CodeNotSupported) {
		t.Fatalf("expected not supported error, got %v", err)
	}
}

func TestGenerateSARIF_EmptyResults(t *testing.T) {
	data, err := GenerateSARIF(Report{})
	if err != nil {
		t.Fatalf("GenerateSARIF returned error: %v", err)
	}
	var report sarifReport
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if report.Schema != sarifSchema || report.Version != sarifVersion {
		t.Errorf("unexpected header %q %q", report.Schema, report.Version)
	}
	if len(report.Runs) != 1 || len(report.Runs[0].Results) != 0 || len(report.Runs[0].Tool.Driver.Rules) != 0 {
		t.Fatalf("expected one empty run, got %+v", report.Runs)
	}
}

func TestGenerateSARIF_Results(t *testing.T) {
	data, err := GenerateSARIF(sampleReport(t))
	if err != nil {
		t.Fatal(err)
	}
	var report sarifReport
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	run := report.Runs[0]

	byRule := make(map[string][]sarifResult)
	for _, r := range run.Results {
		byRule[r.RuleID] = append(byRule[r.RuleID], r)
	}
	if len(byRule[ruleIDElidable]) != 3 {
		t.Errorf("expected 3 elidable notes, got %d", len(byRule[ruleIDElidable]))
	}
	errs := byRule["ELI004"]
	if len(errs) != 1 || errs[0].Level != "error" {
		t.Fatalf("expected one ELI004 error, got %+v", errs)
	}
	loc := errs[0].Locations[0].PhysicalLocation
	if loc.ArtifactLocation.URI != "src/a.ts" || loc.Region == nil || loc.Region.StartLine != 7 {
		t.Errorf("unexpected location %+v", loc)
	}
	if unused := byRule["ELI005"]; len(unused) != 1 || unused[0].Level != "note" {
		t.Errorf("expected one unused note, got %+v", unused)
	}

	ids := make([]string, 0, len(run.Tool.Driver.Rules))
	for _, rule := range run.Tool.Driver.Rules {
		ids = append(ids, rule.ID)
	}
	if strings.Join(ids, ",") != "ELI000,ELI004,ELI005" {
		t.Errorf("unexpected rules %v", ids)
	}
}

func TestRenderTrend(t *testing.T) {
	base := time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC)
	report, err := history.BuildTrendReport("web", []history.Run{
		{ID: "r1", Timestamp: base, Declarations: 4, Elided: 1},
		{ID: "r2", Timestamp: base.Add(time.Hour), Declarations: 4, Elided: 3},
	})
	if err != nil {
		t.Fatal(err)
	}
	tsv := string(RenderTrendTSV(report))
	lines := strings.Split(strings.TrimSpace(tsv), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[2], "2026-02-13T11:00:00Z\tr2\t4\t3\t0\t0.75\t0\t2\t0") {
		t.Errorf("unexpected row %q", lines[2])
	}

	data, err := RenderTrendJSON(report)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"run_count": 2`) {
		t.Errorf("unexpected json %s", data)
	}
}
