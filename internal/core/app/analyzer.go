package app

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"elision/internal/core/errors"
	"elision/internal/core/ports"
	"elision/internal/engine/cache"
	"elision/internal/engine/elision"
	"elision/internal/shared/observability"
	"elision/internal/shared/util"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// AnalyzeFile reads, parses and analyses one module. cached reports whether
// the result came from the module cache.
func (a *App) AnalyzeFile(ctx context.Context, path string) (res *elision.Result, cached bool, err error) {
	ctx, span := observability.Tracer.Start(ctx, "App.AnalyzeFile", trace.WithAttributes(attribute.String("path", path)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, false, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "read source"), errors.CtxPath, path)
	}

	a.mu.RLock()
	analyzer := a.analyzer
	a.mu.RUnlock()

	key := cache.KeyFor(path, content, analyzer.Options())
	if res, ok := a.cache.Get(key); ok {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return res, true, nil
	}

	src, err := a.parser.Parse(path, content)
	if err != nil {
		return nil, false, err
	}
	defer src.Close()

	start := time.Now()
	res, err = analyzer.Analyze(src, nil)
	observability.AnalysisDuration.WithLabelValues("module").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, false, err
	}

	observability.ModulesAnalyzedTotal.Inc()
	for _, v := range res.Verdicts {
		observability.VerdictsTotal.WithLabelValues(v.Kind.String()).Inc()
	}
	for _, d := range res.Diagnostics {
		observability.DiagnosticsTotal.WithLabelValues(string(d.Kind), d.Severity.String()).Inc()
	}
	span.SetAttributes(
		attribute.Int("declarations", len(res.Declarations)),
		attribute.Int("diagnostics", len(res.Diagnostics)),
	)

	a.cache.Put(key, res)
	return res, false, nil
}

type fileOutcome struct {
	path   string
	res    *elision.Result
	cached bool
	err    error
}

// AnalyzeFiles analyses paths with a bounded worker pool. Outcomes are
// stored in the app state; per-file failures are logged and recorded, not
// returned.
func (a *App) AnalyzeFiles(ctx context.Context, paths []string) (ports.ScanResult, error) {
	outcomes := make([]fileOutcome, len(paths))
	jobs := make(chan int)

	var wg sync.WaitGroup
	workers := a.workerCount()
	if workers > len(paths) {
		workers = len(paths)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				res, cached, err := a.AnalyzeFile(ctx, paths[idx])
				outcomes[idx] = fileOutcome{path: paths[idx], res: res, cached: cached, err: err}
			}
		}()
	}

feed:
	for i := range paths {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return ports.ScanResult{}, err
	}

	var summary ports.ScanResult
	summary.FilesScanned = len(paths)

	a.mu.Lock()
	for _, o := range outcomes {
		if o.err != nil {
			slog.Warn("failed to analyze file", "path", o.path, "code", errors.CodeOf(o.err), "error", o.err)
			a.failures[o.path] = o.err
			delete(a.results, o.path)
			summary.Failures++
			continue
		}
		delete(a.failures, o.path)
		a.results[o.path] = o.res
		summary.Analyzed++
		if o.cached {
			summary.CacheHits++
		}
	}
	a.mu.Unlock()
	return summary, nil
}

// AnalyzeAll scans the configured watch paths and analyses every source
// file. Results from earlier runs that no longer exist on disk are dropped.
func (a *App) AnalyzeAll(ctx context.Context) (ports.ScanResult, error) {
	ctx, span := observability.Tracer.Start(ctx, "App.AnalyzeAll")
	defer span.End()
	started := time.Now()

	files, err := a.ScanDirectories(a.Config().WatchPaths)
	if err != nil {
		return ports.ScanResult{}, err
	}

	a.mu.Lock()
	present := make(map[string]bool, len(files))
	for _, f := range files {
		present[f] = true
	}
	for path := range a.results {
		if !present[path] {
			delete(a.results, path)
		}
	}
	for path := range a.failures {
		if !present[path] {
			delete(a.failures, path)
		}
	}
	a.mu.Unlock()

	summary, err := a.AnalyzeFiles(ctx, files)
	if err != nil {
		return summary, err
	}
	summary.Duration = time.Since(started)
	observability.AnalysisDuration.WithLabelValues("program").Observe(summary.Duration.Seconds())
	span.SetAttributes(attribute.Int("files", summary.FilesScanned), attribute.Int("failures", summary.Failures))

	slog.Debug("analysis complete",
		"files", summary.FilesScanned,
		"cache_hits", summary.CacheHits,
		"failures", summary.Failures,
		"duration", summary.Duration,
		"heap_mb", util.HeapAllocMB(),
	)
	return summary, nil
}

// Failures returns the files that could not be analysed with their errors.
func (a *App) Failures() map[string]error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[string]error, len(a.failures))
	for k, v := range a.failures {
		out[k] = v
	}
	return out
}
