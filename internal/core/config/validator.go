package config

import (
	"fmt"
	"net"

	"elision/internal/core/errors"
	"elision/internal/engine/parser"
	"elision/internal/engine/rewrite"

	"github.com/gobwas/glob"
)

// Validate checks cfg after defaults are applied and returns the first
// problem as a VALIDATION_ERROR.
func Validate(cfg *Config) error {
	checks := []func(*Config) error{
		validateVersion,
		validateAnalysis,
		validateLanguages,
		validateExclude,
		validateWatch,
		validateRuntime,
		validateOutput,
		validateObservability,
	}
	for _, check := range checks {
		if err := check(cfg); err != nil {
			return errors.Wrap(err, errors.CodeValidationError, "invalid config")
		}
	}
	return nil
}

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateAnalysis(cfg *Config) error {
	if cfg.Analysis.NamespaceMemberTypes != NamespaceWhole {
		return fmt.Errorf("analysis.namespace_member_types must be %q, got %q", NamespaceWhole, cfg.Analysis.NamespaceMemberTypes)
	}
	return nil
}

func validateLanguages(cfg *Config) error {
	if _, err := parser.BuildLanguageRegistry(cfg.LanguageOverrides()); err != nil {
		return fmt.Errorf("languages: %w", err)
	}
	return nil
}

func validateExclude(cfg *Config) error {
	for i, pattern := range cfg.Exclude.Files {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("exclude.files[%d] %q is not a valid glob: %w", i, pattern, err)
		}
	}
	for i, pattern := range cfg.Exclude.Dirs {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("exclude.dirs[%d] %q is not a valid glob: %w", i, pattern, err)
		}
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	if cfg.Watch.MaxBatchesPerSecond < 0 {
		return fmt.Errorf("watch.max_batches_per_second must not be negative")
	}
	return nil
}

func validateRuntime(cfg *Config) error {
	if cfg.Cache.Capacity < 0 {
		return fmt.Errorf("cache.capacity must not be negative")
	}
	if cfg.Workers.Count < 0 {
		return fmt.Errorf("workers.count must not be negative")
	}
	if cfg.History.Enabled && cfg.History.Path == "" {
		return fmt.Errorf("history.path must not be empty when history is enabled")
	}
	return nil
}

func validateOutput(cfg *Config) error {
	switch cfg.Output.Format {
	case FormatText, FormatJSON, FormatYAML, FormatSARIF:
	default:
		return fmt.Errorf("output.format must be one of: text, json, yaml, sarif")
	}
	if _, err := rewrite.ParseStyle(cfg.Output.RewriteStyle); err != nil {
		return fmt.Errorf("output.rewrite_style must be one of: esm, commonjs")
	}
	return nil
}

func validateObservability(cfg *Config) error {
	if addr := cfg.Observability.MetricsAddress; addr != "" {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return fmt.Errorf("observability.metrics_address %q: %w", addr, err)
		}
	}
	return nil
}
