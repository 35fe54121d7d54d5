package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: ELISION_[SECTION]_[KEY] (e.g., ELISION_OUTPUT_FORMAT).
func ApplyEnvOverrides(cfg *Config) {
	// Analysis
	setEnvBool(&cfg.Analysis.PreserveValueImports, "ELISION_ANALYSIS_PRESERVE_VALUE_IMPORTS")
	setEnvBool(&cfg.Analysis.EmitDecoratorMetadata, "ELISION_ANALYSIS_EMIT_DECORATOR_METADATA")
	setEnvBool(&cfg.Analysis.ReportAmbiguous, "ELISION_ANALYSIS_REPORT_AMBIGUOUS")
	setEnvBool(&cfg.Analysis.CheckSpecifiers, "ELISION_ANALYSIS_CHECK_SPECIFIERS")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "ELISION_WATCH_DEBOUNCE")

	// Runtime
	setEnvInt(&cfg.Cache.Capacity, "ELISION_CACHE_CAPACITY")
	setEnvInt(&cfg.Workers.Count, "ELISION_WORKERS_COUNT")

	// Output
	setEnvString(&cfg.Output.Format, "ELISION_OUTPUT_FORMAT")
	setEnvString(&cfg.Output.Path, "ELISION_OUTPUT_PATH")
	setEnvString(&cfg.Output.RewriteDir, "ELISION_OUTPUT_REWRITE_DIR")
	setEnvString(&cfg.Output.RewriteStyle, "ELISION_OUTPUT_REWRITE_STYLE")

	// History
	setEnvBool(&cfg.History.Enabled, "ELISION_HISTORY_ENABLED")
	setEnvString(&cfg.History.Path, "ELISION_HISTORY_PATH")
	setEnvString(&cfg.History.Project, "ELISION_HISTORY_PROJECT")

	// Observability
	setEnvString(&cfg.Observability.MetricsAddress, "ELISION_OBSERVABILITY_METRICS_ADDRESS")
	setEnvString(&cfg.Observability.OTLPEndpoint, "ELISION_OBSERVABILITY_OTLP_ENDPOINT")

	normalize(cfg)
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
