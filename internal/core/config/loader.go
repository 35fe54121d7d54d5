package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"elision/internal/core/errors"

	"github.com/BurntSushi/toml"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "config file not found"), errors.CtxPath, path)
		}
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "read config"), errors.CtxPath, path)
	}
	return Parse(string(data))
}

// Parse decodes TOML text, fills defaults and validates the result.
func Parse(data string) (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(data, &cfg); err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "decode config")
	}

	applyDefaults(&cfg)
	normalize(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if strings.TrimSpace(cfg.Analysis.NamespaceMemberTypes) == "" {
		cfg.Analysis.NamespaceMemberTypes = NamespaceWhole
	}

	if len(cfg.WatchPaths) == 0 {
		cfg.WatchPaths = []string{"."}
	}
	if len(cfg.Exclude.Dirs) == 0 {
		cfg.Exclude.Dirs = []string{".git", "node_modules", "dist", "build"}
	}

	// Default debounce if not set.
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 300 * time.Millisecond
	}
	if cfg.Watch.MaxBatchesPerSecond == 0 {
		cfg.Watch.MaxBatchesPerSecond = 2
	}

	if cfg.Cache.Capacity == 0 {
		cfg.Cache.Capacity = 1024
	}

	if strings.TrimSpace(cfg.Output.Format) == "" {
		cfg.Output.Format = FormatText
	}
	if strings.TrimSpace(cfg.Output.RewriteStyle) == "" {
		cfg.Output.RewriteStyle = "esm"
	}

	if strings.TrimSpace(cfg.History.Path) == "" {
		cfg.History.Path = filepath.Join(".elision", "history.db")
	}
	if strings.TrimSpace(cfg.History.Project) == "" {
		cfg.History.Project = "default"
	}
	if cfg.History.BusyTimeout <= 0 {
		cfg.History.BusyTimeout = 5 * time.Second
	}
}

func normalize(cfg *Config) {
	cfg.Analysis.NamespaceMemberTypes = strings.ToLower(strings.TrimSpace(cfg.Analysis.NamespaceMemberTypes))
	if cfg.Analysis.JSXFactory != nil {
		factory := strings.TrimSpace(*cfg.Analysis.JSXFactory)
		cfg.Analysis.JSXFactory = &factory
	}

	cfg.Output.Format = strings.ToLower(strings.TrimSpace(cfg.Output.Format))
	cfg.Output.Path = strings.TrimSpace(cfg.Output.Path)
	cfg.Output.RewriteDir = strings.TrimSpace(cfg.Output.RewriteDir)
	cfg.Output.RewriteStyle = strings.ToLower(strings.TrimSpace(cfg.Output.RewriteStyle))

	cfg.WatchPaths = normalizeList(cfg.WatchPaths)
	cfg.Exclude.Dirs = normalizeList(cfg.Exclude.Dirs)
	cfg.Exclude.Files = normalizeList(cfg.Exclude.Files)

	cfg.History.Path = strings.TrimSpace(cfg.History.Path)
	cfg.History.Project = strings.TrimSpace(cfg.History.Project)
	cfg.Observability.MetricsAddress = strings.TrimSpace(cfg.Observability.MetricsAddress)
	cfg.Observability.OTLPEndpoint = strings.TrimSpace(cfg.Observability.OTLPEndpoint)

	if len(cfg.Languages) > 0 {
		languages := make(map[string]Language, len(cfg.Languages))
		for name, lang := range cfg.Languages {
			lang.Extensions = normalizeList(lang.Extensions)
			languages[strings.ToLower(strings.TrimSpace(name))] = lang
		}
		cfg.Languages = languages
	}
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
