package history

import "time"

const SchemaVersion = 1

// Run summarises one whole-program analysis.
type Run struct {
	ID           string    `json:"id"`
	Project      string    `json:"project"`
	Timestamp    time.Time `json:"timestamp"`
	Options      string    `json:"options"`
	Files        int       `json:"files"`
	Declarations int       `json:"declarations"`
	Elided       int       `json:"elided"`
	Retained     int       `json:"retained"`
	Subset       int       `json:"subset"`
	Errors       int       `json:"errors"`
	Warnings     int       `json:"warnings"`
}

// VerdictRecord is one declaration's verdict within a run.
type VerdictRecord struct {
	RunID     string   `json:"run_id"`
	Path      string   `json:"path"`
	Line      int      `json:"line"`
	Specifier string   `json:"specifier"`
	Kind      string   `json:"kind"`
	Verdict   string   `json:"verdict"`
	Retained  []string `json:"retained,omitempty"`
}

type DiagnosticRecord struct {
	RunID    string `json:"run_id"`
	Path     string `json:"path"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Kind     string `json:"kind"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}
