package history

import (
	"fmt"
	"sort"
	"time"
)

// TrendPoint compares one run with the run before it.
type TrendPoint struct {
	RunID         string    `json:"run_id"`
	Timestamp     time.Time `json:"timestamp"`
	Declarations  int       `json:"declarations"`
	Elided        int       `json:"elided"`
	Errors        int       `json:"errors"`
	ElisionRate   float64   `json:"elision_rate"`
	DeltaElided   int       `json:"delta_elided"`
	DeltaErrors   int       `json:"delta_errors"`
	DeltaDeclared int       `json:"delta_declarations"`
}

type TrendReport struct {
	Project  string       `json:"project"`
	Since    time.Time    `json:"since"`
	Until    time.Time    `json:"until"`
	RunCount int          `json:"run_count"`
	Points   []TrendPoint `json:"points"`
}

// BuildTrendReport orders runs by time and computes run-over-run deltas.
func BuildTrendReport(project string, runs []Run) (TrendReport, error) {
	if len(runs) == 0 {
		return TrendReport{}, fmt.Errorf("no runs recorded for project %q", project)
	}

	ordered := append([]Run(nil), runs...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	report := TrendReport{
		Project:  project,
		Since:    ordered[0].Timestamp,
		Until:    ordered[len(ordered)-1].Timestamp,
		RunCount: len(ordered),
		Points:   make([]TrendPoint, 0, len(ordered)),
	}
	for i, run := range ordered {
		point := TrendPoint{
			RunID:        run.ID,
			Timestamp:    run.Timestamp,
			Declarations: run.Declarations,
			Elided:       run.Elided,
			Errors:       run.Errors,
		}
		if run.Declarations > 0 {
			point.ElisionRate = float64(run.Elided) / float64(run.Declarations)
		}
		if i > 0 {
			prev := ordered[i-1]
			point.DeltaElided = run.Elided - prev.Elided
			point.DeltaErrors = run.Errors - prev.Errors
			point.DeltaDeclared = run.Declarations - prev.Declarations
		}
		report.Points = append(report.Points, point)
	}
	return report, nil
}
