package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"elision/internal/core/errors"
	"elision/internal/engine/parser"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "elision.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
watch_paths = ["./src", " ./lib "]

[analysis]
partial_named_imports = false
preserve_value_imports = true
emit_decorator_metadata = true
report_unused = false
report_ambiguous = true
jsx_factory = " h "

[languages.javascript]
enabled = true

[exclude]
dirs = ["node_modules"]
files = ["*.d.ts", "*.spec.ts"]

[watch]
debounce = "1s"
max_batches_per_second = 5

[cache]
capacity = 64

[workers]
count = 3

[output]
format = "SARIF"
path = "out.sarif"
rewrite_dir = "out"
rewrite_style = "commonjs"

[history]
enabled = true
path = "h.db"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(cfg.WatchPaths) != 2 || cfg.WatchPaths[1] != "./lib" {
		t.Errorf("unexpected watch paths %v", cfg.WatchPaths)
	}
	if cfg.Watch.Debounce != time.Second || cfg.Watch.MaxBatchesPerSecond != 5 {
		t.Errorf("unexpected watch settings %+v", cfg.Watch)
	}
	if cfg.Output.Format != FormatSARIF {
		t.Errorf("expected normalised format, got %q", cfg.Output.Format)
	}
	if cfg.Cache.Capacity != 64 || cfg.Workers.Count != 3 {
		t.Errorf("unexpected runtime settings %+v %+v", cfg.Cache, cfg.Workers)
	}
	if !cfg.History.Enabled || cfg.History.Path != "h.db" {
		t.Errorf("unexpected history settings %+v", cfg.History)
	}

	opts := cfg.AnalyzerOptions()
	if opts.PartialNamedImports || !opts.PreserveValueImports || !opts.EmitDecoratorMetadata {
		t.Errorf("analysis flags not applied: %+v", opts)
	}
	if opts.ReportUnused || !opts.ReportAmbiguous {
		t.Errorf("report flags not applied: %+v", opts)
	}
	if opts.JSXFactory != "h" {
		t.Errorf("expected trimmed jsx factory, got %q", opts.JSXFactory)
	}
	if opts.Locator != nil {
		t.Error("locator must be nil without check_specifiers")
	}

	registry, err := parser.BuildLanguageRegistry(cfg.LanguageOverrides())
	if err != nil {
		t.Fatal(err)
	}
	if !registry[parser.LangJavaScript].Enabled {
		t.Error("expected javascript to be enabled by override")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
	if cfg.Version != 1 || cfg.Output.Format != FormatText || cfg.Output.RewriteStyle != "esm" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if len(cfg.WatchPaths) != 1 || cfg.WatchPaths[0] != "." {
		t.Errorf("unexpected default watch paths %v", cfg.WatchPaths)
	}
	if cfg.Analysis.NamespaceMemberTypes != NamespaceWhole {
		t.Errorf("unexpected namespace rule %q", cfg.Analysis.NamespaceMemberTypes)
	}

	opts := cfg.AnalyzerOptions()
	if !opts.PartialNamedImports || !opts.ReportUnused || opts.JSXFactory != "React" {
		t.Errorf("unexpected default analyzer options %+v", opts)
	}
}

func TestAnalyzerOptions_EmptyJSXFactory(t *testing.T) {
	cfg, err := Parse(`
[analysis]
jsx_factory = ""
check_specifiers = true
`)
	if err != nil {
		t.Fatal(err)
	}
	opts := cfg.AnalyzerOptions()
	if opts.JSXFactory != "" {
		t.Errorf("expected empty factory to disable JSX references, got %q", opts.JSXFactory)
	}
	if opts.Locator == nil {
		t.Error("expected file locator with check_specifiers")
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		toml string
	}{
		{"version", "version = 3"},
		{"namespace rule", "[analysis]\nnamespace_member_types = \"members\""},
		{"format", "[output]\nformat = \"xml\""},
		{"style", "[output]\nrewrite_style = \"amd\""},
		{"glob", "[exclude]\nfiles = [\"[\"]"},
		{"unknown language", "[languages.cobol]\nenabled = true"},
		{"negative workers", "[workers]\ncount = -1"},
		{"metrics address", "[observability]\nmetrics_address = \"nohostport\""},
		{"syntax", "[output\nformat = 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.toml)
			if !errors.IsCode(err, errors.CodeValidationError) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if !errors.IsCode(err, errors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("ELISION_OUTPUT_FORMAT", " JSON ")
	t.Setenv("ELISION_WORKERS_COUNT", "7")
	t.Setenv("ELISION_ANALYSIS_PRESERVE_VALUE_IMPORTS", "true")
	t.Setenv("ELISION_WATCH_DEBOUNCE", "not-a-duration")

	cfg := DefaultConfig()
	ApplyEnvOverrides(cfg)

	if cfg.Output.Format != FormatJSON {
		t.Errorf("expected json, got %q", cfg.Output.Format)
	}
	if cfg.Workers.Count != 7 {
		t.Errorf("expected 7 workers, got %d", cfg.Workers.Count)
	}
	if !cfg.Analysis.PreserveValueImports {
		t.Error("expected preserve_value_imports override")
	}
	if cfg.Watch.Debounce != 300*time.Millisecond {
		t.Errorf("invalid duration must be ignored, got %v", cfg.Watch.Debounce)
	}
}
