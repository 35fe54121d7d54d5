package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	coreapp "elision/internal/core/app"
	"elision/internal/core/config"
	domainerr "elision/internal/core/errors"
	"elision/internal/core/ports"
	"elision/internal/shared/observability"
	"elision/internal/shared/util"
	"elision/internal/shared/version"
	"elision/internal/ui/report/formats"
)

const shutdownTimeout = 5 * time.Second

// Run executes the command line and returns the process exit code: 0 on
// success, 1 when analysis failed or reported an error diagnostic, 2 for
// usage errors.
func Run(args []string) int {
	return run(args, os.Stdout, os.Stderr)
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseOptions(args)
	if err != nil {
		return 2
	}

	if opts.version {
		fmt.Fprintf(stdout, "elision v%s\n", version.Version)
		return 0
	}

	configureLogging(stderr, opts.verbose)

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}
	config.ApplyEnvOverrides(cfg)

	if err := applyModeOptions(&opts, cfg); err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 2
	}
	since, err := parseSince(opts.since)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Observability.OTLPEndpoint)
	if err != nil {
		slog.Error("failed to initialize tracing", "error", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			slog.Warn("tracing shutdown failed", "error", err)
		}
	}()

	analysis, err := coreapp.New(cfg)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		return 1
	}
	defer func() {
		if err := analysis.Close(context.Background()); err != nil {
			slog.Warn("failed to close app", "error", err)
		}
	}()

	if addr := cfg.Observability.MetricsAddress; addr != "" {
		srv := NewObservabilityServer(addr, func() healthStatus {
			return healthStatus{Status: "up", Version: version.Version, Files: len(analysis.Results())}
		})
		if err := srv.Start(ctx); err != nil {
			slog.Error("failed to start observability server", "error", err)
			return 1
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = srv.Stop(sctx)
		}()
	}

	summary, err := runScan(ctx, analysis)
	if err != nil {
		slog.Error("analysis failed", errorAttrs(err)...)
		return 1
	}
	if err := analysis.WriteReport(stdout); err != nil {
		slog.Error("failed to write report", errorAttrs(err)...)
		return 1
	}

	if err := runHistoryMode(opts, analysis, since); err != nil {
		slog.Error("history report failed", errorAttrs(err)...)
		return 1
	}

	if opts.entry != "" {
		order, err := analysis.RuntimeOrder(ctx, opts.entry)
		if err != nil {
			slog.Error("failed to compute runtime order", "entry", opts.entry, "error", err)
			return 1
		}
		fmt.Fprintln(stdout, "Runtime load order:")
		for i, path := range order {
			fmt.Fprintf(stdout, "%3d  %s\n", i+1, path)
		}
	}

	if opts.watch {
		if err := runWatchMode(ctx, opts, analysis, stdout); err != nil {
			slog.Error("watch mode failed", "error", err)
			return 1
		}
		return 0
	}

	if summary.Failures > 0 || analysis.HasErrors() {
		return 1
	}
	return 0
}

func runScan(ctx context.Context, analysis *coreapp.App) (ports.ScanResult, error) {
	summary, err := analysis.AnalyzeAll(ctx)
	if err != nil {
		return summary, err
	}
	if _, err := analysis.WriteRewrites(analysis.Results()); err != nil {
		return summary, err
	}
	run, err := analysis.RecordRun(analysis.Results())
	if err != nil {
		return summary, err
	}
	summary.RunID = run.ID
	slog.Info("scan complete",
		"files", summary.FilesScanned,
		"cache_hits", summary.CacheHits,
		"failures", summary.Failures,
		"run_id", summary.RunID,
		"duration", summary.Duration,
	)
	return summary, nil
}

func runHistoryMode(opts cliOptions, analysis *coreapp.App, since time.Time) error {
	if opts.historyTSV == "" && opts.historyJSON == "" {
		return nil
	}
	report, err := analysis.Trend(since)
	if err != nil {
		return err
	}
	if opts.historyTSV != "" {
		if err := util.WriteFileWithDirs(opts.historyTSV, formats.RenderTrendTSV(report), 0o644); err != nil {
			return fmt.Errorf("write trend tsv: %w", err)
		}
	}
	if opts.historyJSON != "" {
		data, err := formats.RenderTrendJSON(report)
		if err != nil {
			return err
		}
		if err := util.WriteFileWithDirs(opts.historyJSON, data, 0o644); err != nil {
			return fmt.Errorf("write trend json: %w", err)
		}
	}
	return nil
}

func runWatchMode(ctx context.Context, opts cliOptions, analysis *coreapp.App, stdout io.Writer) error {
	analysis.SetUpdateHandler(func(u ports.WatchUpdate) {
		if analysis.Config().Output.Path != "" {
			if err := util.WriteFileWithDirs(analysis.Config().Output.Path, u.Rendered, 0o644); err != nil {
				slog.Warn("failed to write report", "error", err)
			}
			return
		}
		_, _ = stdout.Write(u.Rendered)
	})

	if err := analysis.StartWatcher(ctx); err != nil {
		return err
	}
	if opts.watchConfig {
		if err := analysis.WatchConfig(ctx, opts.configPath); err != nil {
			return err
		}
	}

	<-ctx.Done()
	slog.Info("shutting down")
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}

// loadConfig reads path. A missing file at the default location falls back
// to the built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if path == defaultConfigPath && domainerr.IsCode(err, domainerr.CodeNotFound) {
		slog.Debug("no config file, using defaults", "path", path)
		return config.DefaultConfig(), nil
	}
	return nil, err
}

// applyModeOptions folds flags into cfg and re-validates it.
func applyModeOptions(opts *cliOptions, cfg *config.Config) error {
	if len(opts.args) > 0 {
		cfg.WatchPaths = append([]string(nil), opts.args...)
	}
	if opts.format != "" {
		cfg.Output.Format = strings.ToLower(strings.TrimSpace(opts.format))
	}
	if opts.out != "" {
		cfg.Output.Path = opts.out
	}
	if opts.rewriteDir != "" {
		cfg.Output.RewriteDir = opts.rewriteDir
	}
	if opts.style != "" {
		cfg.Output.RewriteStyle = strings.ToLower(strings.TrimSpace(opts.style))
	}
	if opts.history {
		cfg.History.Enabled = true
	}

	if !cfg.History.Enabled && (opts.historyTSV != "" || opts.historyJSON != "" || opts.since != "") {
		return fmt.Errorf("--since, --history-tsv and --history-json require --history")
	}
	if opts.watchConfig && !opts.watch {
		return fmt.Errorf("--watch-config requires --watch")
	}
	if opts.watchConfig && opts.configPath == defaultConfigPath {
		if _, err := os.Stat(opts.configPath); err != nil {
			return fmt.Errorf("--watch-config needs an existing config file: %w", err)
		}
	}
	return config.Validate(cfg)
}

func parseSince(value string) (time.Time, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return time.Time{}, nil
	}

	rfc3339, err := time.Parse(time.RFC3339, raw)
	if err == nil {
		return rfc3339.UTC(), nil
	}

	dateOnly, err := time.Parse("2006-01-02", raw)
	if err == nil {
		return dateOnly.UTC(), nil
	}

	return time.Time{}, fmt.Errorf("--since must be RFC3339 or YYYY-MM-DD, got %q", value)
}

// configureLogging sends logs to w so reports written to stdout stay
// machine readable.
func configureLogging(w io.Writer, verbose bool) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
}

// errorAttrs renders err as slog attributes, surfacing its code and the
// path it concerns.
func errorAttrs(err error) []any {
	attrs := []any{"code", domainerr.CodeOf(err)}
	if path, ok := domainerr.ContextValue(err, domainerr.CtxPath); ok {
		attrs = append(attrs, "path", path)
	}
	return append(attrs, "error", err)
}
