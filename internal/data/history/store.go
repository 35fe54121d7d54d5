package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	domainerr "elision/internal/core/errors"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

// Open creates or opens the history database at path. busyTimeout <= 0 uses
// two seconds.
func Open(path string, busyTimeout time.Duration) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, domainerr.New(domainerr.CodeValidationError, "history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, domainerr.AddContext(
			domainerr.New(domainerr.CodeValidationError, "history path is a directory, expected file"),
			domainerr.CtxPath, cleanPath,
		)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, domainerr.Wrap(err, domainerr.CodeStorage, fmt.Sprintf("create history directory %q", dir))
		}
	}
	if busyTimeout <= 0 {
		busyTimeout = 2 * time.Second
	}

	// busy_timeout + WAL reduce lock conflicts during watch-mode churn.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)",
		cleanPath, busyTimeout.Milliseconds())
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, domainerr.Wrap(err, domainerr.CodeStorage, fmt.Sprintf("open sqlite history %q", cleanPath))
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, domainerr.Wrap(err, domainerr.CodeStorage, fmt.Sprintf("ping sqlite history %q", cleanPath))
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, domainerr.Wrap(err, domainerr.CodeStorage, fmt.Sprintf("initialize sqlite schema %q", cleanPath))
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// SaveRun stores run with its rows in one transaction and returns the run as
// stored, with ID and Timestamp filled in.
func (s *Store) SaveRun(run Run, verdicts []VerdictRecord, diags []DiagnosticRecord) (Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(run.ID) == "" {
		run.ID = uuid.NewString()
	}
	if strings.TrimSpace(run.Project) == "" {
		run.Project = "default"
	}
	if run.Timestamp.IsZero() {
		run.Timestamp = time.Now().UTC()
	}
	run.Timestamp = run.Timestamp.UTC()

	err := s.withRetry("save run", func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if err := insertRun(tx, run, verdicts, diags); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

func insertRun(tx *sql.Tx, run Run, verdicts []VerdictRecord, diags []DiagnosticRecord) error {
	if _, err := tx.Exec(`
INSERT INTO runs (
  id, project, ts_utc, options, file_count, declaration_count,
  elided_count, retained_count, subset_count, error_count, warning_count
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Project, run.Timestamp.Format(time.RFC3339Nano), run.Options,
		run.Files, run.Declarations, run.Elided, run.Retained, run.Subset, run.Errors, run.Warnings,
	); err != nil {
		return err
	}

	verdictStmt, err := tx.Prepare(`
INSERT INTO verdicts (run_id, seq, path, line, specifier, kind, verdict, retained)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer verdictStmt.Close()
	for i, v := range verdicts {
		if _, err := verdictStmt.Exec(run.ID, i, v.Path, v.Line, v.Specifier, v.Kind, v.Verdict, strings.Join(v.Retained, ",")); err != nil {
			return err
		}
	}

	diagStmt, err := tx.Prepare(`
INSERT INTO diagnostics (run_id, seq, path, line, col, kind, severity, message)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer diagStmt.Close()
	for i, d := range diags {
		if _, err := diagStmt.Exec(run.ID, i, d.Path, d.Line, d.Column, d.Kind, d.Severity, d.Message); err != nil {
			return err
		}
	}
	return nil
}

// LoadRuns returns the runs of project at or after since, oldest first.
func (s *Store) LoadRuns(project string, since time.Time) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	project = strings.TrimSpace(project)
	if project == "" {
		project = "default"
	}

	query := `
SELECT id, project, ts_utc, options, file_count, declaration_count,
  elided_count, retained_count, subset_count, error_count, warning_count
FROM runs WHERE project = ?`
	args := []any{project}
	if !since.IsZero() {
		query += " AND ts_utc >= ?"
		args = append(args, since.UTC().Format(time.RFC3339Nano))
	}
	query += " ORDER BY ts_utc ASC, id ASC"

	var rows *sql.Rows
	err := s.withRetry("load runs", func() error {
		var qErr error
		rows, qErr = s.db.Query(query, args...)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		var (
			run   Run
			tsRaw string
		)
		if err := rows.Scan(&run.ID, &run.Project, &tsRaw, &run.Options, &run.Files, &run.Declarations,
			&run.Elided, &run.Retained, &run.Subset, &run.Errors, &run.Warnings); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, tsRaw)
		if err != nil {
			return nil, fmt.Errorf("parse run timestamp %q: %w", tsRaw, err)
		}
		run.Timestamp = ts.UTC()
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return runs, nil
}

// LoadVerdicts returns the verdict rows of one run in insertion order.
func (s *Store) LoadVerdicts(runID string) ([]VerdictRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows *sql.Rows
	err := s.withRetry("load verdicts", func() error {
		var qErr error
		rows, qErr = s.db.Query(`
SELECT run_id, path, line, specifier, kind, verdict, retained
FROM verdicts WHERE run_id = ? ORDER BY seq ASC`, runID)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]VerdictRecord, 0)
	for rows.Next() {
		var (
			v        VerdictRecord
			retained string
		)
		if err := rows.Scan(&v.RunID, &v.Path, &v.Line, &v.Specifier, &v.Kind, &v.Verdict, &retained); err != nil {
			return nil, fmt.Errorf("scan verdict row: %w", err)
		}
		if retained != "" {
			v.Retained = strings.Split(retained, ",")
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verdict rows: %w", err)
	}
	return out, nil
}

func (s *Store) LoadDiagnostics(runID string) ([]DiagnosticRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows *sql.Rows
	err := s.withRetry("load diagnostics", func() error {
		var qErr error
		rows, qErr = s.db.Query(`
SELECT run_id, path, line, col, kind, severity, message
FROM diagnostics WHERE run_id = ? ORDER BY seq ASC`, runID)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]DiagnosticRecord, 0)
	for rows.Next() {
		var d DiagnosticRecord
		if err := rows.Scan(&d.RunID, &d.Path, &d.Line, &d.Column, &d.Kind, &d.Severity, &d.Message); err != nil {
			return nil, fmt.Errorf("scan diagnostic row: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate diagnostic rows: %w", err)
	}
	return out, nil
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return domainerr.AddContext(domainerr.Wrap(lastErr, domainerr.CodeStorage, op), domainerr.CtxOperation, op)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database") || errors.Is(err, os.ErrInvalid)
}
