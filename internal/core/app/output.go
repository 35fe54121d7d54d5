package app

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"elision/internal/core/config"
	"elision/internal/core/errors"
	"elision/internal/engine/elision"
	"elision/internal/engine/rewrite"
	"elision/internal/shared/util"
	"elision/internal/ui/report/formats"
)

// Report assembles the current results and failures for rendering.
func (a *App) Report() formats.Report {
	failures := a.Failures()
	rep := formats.Report{Root: a.reportRoot(), Results: a.Results()}
	for _, path := range util.SortedStringKeys(failures) {
		rep.Failures = append(rep.Failures, formats.Failure{Path: path, Error: failures[path].Error()})
	}
	return rep
}

func (a *App) reportRoot() string {
	if paths := a.Config().WatchPaths; len(paths) == 1 {
		return paths[0]
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

// Render formats the current report in the configured output format.
func (a *App) Render() ([]byte, error) {
	return formats.Render(a.Config().Output.Format, a.Report())
}

// WriteReport renders the report to the configured output path, or to w
// when no path is set.
func (a *App) WriteReport(w io.Writer) error {
	data, err := a.Render()
	if err != nil {
		return err
	}
	if path := a.Config().Output.Path; path != "" {
		if err := util.WriteFileWithDirs(path, data, 0o644); err != nil {
			return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "write report"), errors.CtxPath, path)
		}
		slog.Info("report written", "path", path)
		return nil
	}
	_, err = w.Write(data)
	return err
}

// WriteRewrites writes the rewritten form of every result below the
// configured rewrite directory, mirroring each file's path relative to the
// watch root that contains it. It returns the written paths.
func (a *App) WriteRewrites(results []*elision.Result) ([]string, error) {
	cfg := a.Config()
	dir := cfg.Output.RewriteDir
	if dir == "" {
		return nil, nil
	}
	style, err := rewrite.ParseStyle(cfg.Output.RewriteStyle)
	if err != nil {
		return nil, err
	}

	var written []string
	for _, res := range results {
		content, err := os.ReadFile(res.Path)
		if err != nil {
			return written, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "read source"), errors.CtxPath, res.Path)
		}
		out, err := rewrite.Rewrite(content, res, style)
		if err != nil {
			return written, errors.AddContext(err, errors.CtxPath, res.Path)
		}
		target := filepath.Join(dir, relativeToRoot(cfg, res.Path))
		if err := util.WriteFileWithDirs(target, out, 0o644); err != nil {
			return written, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "write rewrite"), errors.CtxPath, target)
		}
		written = append(written, target)
	}
	slog.Debug("rewrites written", "dir", dir, "files", len(written))
	return written, nil
}

// RewriteTarget returns where WriteRewrites places the output for path.
func (a *App) RewriteTarget(path string) string {
	cfg := a.Config()
	if cfg.Output.RewriteDir == "" {
		return ""
	}
	return filepath.Join(cfg.Output.RewriteDir, relativeToRoot(cfg, path))
}

func relativeToRoot(cfg *config.Config, path string) string {
	return util.RelativeUnder(uniqueScanRoots(cfg.WatchPaths), path)
}
