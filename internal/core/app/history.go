package app

import (
	"time"

	"elision/internal/core/errors"
	"elision/internal/data/history"
	"elision/internal/engine/elision"
)

// RecordRun stores a snapshot of results in the history store. It is a
// no-op returning an empty run when history is disabled.
func (a *App) RecordRun(results []*elision.Result) (history.Run, error) {
	if a.history == nil {
		return history.Run{}, nil
	}
	run, verdicts, diags := history.Records(a.Config().History.Project, a.AnalyzerOptions().Fingerprint(), results)
	return a.history.SaveRun(run, verdicts, diags)
}

// Trend loads the runs recorded since the given time and summarises them.
func (a *App) Trend(since time.Time) (history.TrendReport, error) {
	if a.history == nil {
		return history.TrendReport{}, errors.New(errors.CodeValidationError, "history is disabled")
	}
	runs, err := a.history.LoadRuns(a.Config().History.Project, since)
	if err != nil {
		return history.TrendReport{}, err
	}
	return history.BuildTrendReport(a.Config().History.Project, runs)
}
