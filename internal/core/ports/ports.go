package ports

import (
	"time"

	"elision/internal/data/history"
	"elision/internal/engine/parser"
)

// CodeParser abstracts source parsing and language-file support checks.
type CodeParser interface {
	Parse(path string, content []byte) (*parser.Source, error)
	GetLanguage(path string) string
	IsSupportedPath(path string) bool
	SupportedExtensions() []string
}

// HistoryStore abstracts run persistence for trend and audit workflows.
type HistoryStore interface {
	SaveRun(run history.Run, verdicts []history.VerdictRecord, diags []history.DiagnosticRecord) (history.Run, error)
	LoadRuns(project string, since time.Time) ([]history.Run, error)
	Close() error
}

// ScanResult summarizes a completed whole-program analysis.
type ScanResult struct {
	FilesScanned int
	Analyzed     int
	CacheHits    int
	Failures     int
	RunID        string
	Duration     time.Duration
}

// WatchUpdate is emitted after every watch-mode re-analysis.
type WatchUpdate struct {
	Changed  []string
	Removed  []string
	Files    int
	Errors   int
	Rendered []byte
}
