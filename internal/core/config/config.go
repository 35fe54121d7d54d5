package config

import (
	"time"

	"elision/internal/engine/elision"
	"elision/internal/engine/parser"
)

type Config struct {
	Version       int                 `toml:"version"`
	Analysis      Analysis            `toml:"analysis"`
	Languages     map[string]Language `toml:"languages"`
	WatchPaths    []string            `toml:"watch_paths"`
	Exclude       Exclude             `toml:"exclude"`
	Watch         Watch               `toml:"watch"`
	Cache         Cache               `toml:"cache"`
	Workers       Workers             `toml:"workers"`
	Output        Output              `toml:"output"`
	History       History             `toml:"history"`
	Observability Observability       `toml:"observability"`
}

type Analysis struct {
	PartialNamedImports   *bool   `toml:"partial_named_imports"`
	PreserveValueImports  bool    `toml:"preserve_value_imports"`
	EmitDecoratorMetadata bool    `toml:"emit_decorator_metadata"`
	NamespaceMemberTypes  string  `toml:"namespace_member_types"`
	ReportUnused          *bool   `toml:"report_unused"`
	ReportAmbiguous       bool    `toml:"report_ambiguous"`
	CheckSpecifiers       bool    `toml:"check_specifiers"`
	JSXFactory            *string `toml:"jsx_factory"`
}

type Language struct {
	Enabled    *bool    `toml:"enabled"`
	Extensions []string `toml:"extensions"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"` // glob patterns matched against the base name
}

type Watch struct {
	Debounce            time.Duration `toml:"debounce"`
	MaxBatchesPerSecond float64       `toml:"max_batches_per_second"`
}

type Cache struct {
	Capacity int `toml:"capacity"`
}

type Workers struct {
	Count int `toml:"count"`
}

type Output struct {
	Format       string `toml:"format"`
	Path         string `toml:"path"`
	RewriteDir   string `toml:"rewrite_dir"`
	RewriteStyle string `toml:"rewrite_style"`
}

type History struct {
	Enabled     bool          `toml:"enabled"`
	Path        string        `toml:"path"`
	Project     string        `toml:"project"`
	BusyTimeout time.Duration `toml:"busy_timeout"`
}

type Observability struct {
	MetricsAddress string `toml:"metrics_address"`
	OTLPEndpoint   string `toml:"otlp_endpoint"`
}

const (
	FormatText  = "text"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatSARIF = "sarif"

	NamespaceWhole = "whole"
)

// DefaultConfig is the configuration used when no file is given.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	normalize(cfg)
	return cfg
}

// AnalyzerOptions translates the analysis section. The specifier locator is
// only attached when check_specifiers is on.
func (c *Config) AnalyzerOptions() elision.Options {
	opts := elision.DefaultOptions()
	a := c.Analysis
	if a.PartialNamedImports != nil {
		opts.PartialNamedImports = *a.PartialNamedImports
	}
	if a.ReportUnused != nil {
		opts.ReportUnused = *a.ReportUnused
	}
	if a.JSXFactory != nil {
		opts.JSXFactory = *a.JSXFactory
	}
	opts.PreserveValueImports = a.PreserveValueImports
	opts.EmitDecoratorMetadata = a.EmitDecoratorMetadata
	opts.ReportAmbiguous = a.ReportAmbiguous
	if a.CheckSpecifiers {
		opts.Locator = elision.NewFileLocator()
	}
	return opts
}

func (c *Config) LanguageOverrides() map[string]parser.LanguageOverride {
	if len(c.Languages) == 0 {
		return nil
	}
	out := make(map[string]parser.LanguageOverride, len(c.Languages))
	for name, lang := range c.Languages {
		out[name] = parser.LanguageOverride{
			Enabled:    lang.Enabled,
			Extensions: append([]string(nil), lang.Extensions...),
		}
	}
	return out
}
