// Package cache persists per-file resolution outcomes between runs. Entries
// are keyed by (path, content hash): a file whose bytes did not change keeps
// its cached result and is skipped on the next scan.
package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

// Run identifies one full scan over a project.
type Run struct {
	ID              string
	Timestamp       time.Time
	FileCount       int
	DiagnosticCount int
}

// FileResult is the durable per-file record.
type FileResult struct {
	Path            string
	ContentHash     string
	RunID           string
	Language        string
	ReferenceCount  int
	UnresolvedCount int
	Diagnostics     []StoredDiagnostic
}

// StoredDiagnostic mirrors a resolution miss in persistable form.
type StoredDiagnostic struct {
	Kind      string
	Name      string
	Specifier string
	Line      int
	Column    int
}

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("cache path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("cache path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache directory %q: %w", dir, err)
		}
	}

	// busy_timeout + WAL reduce lock conflicts during watch-mode churn.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite cache %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite cache %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
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

// SaveRun records one completed scan.
func (s *Store) SaveRun(run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(run.ID) == "" {
		return fmt.Errorf("run id must not be empty")
	}
	if run.Timestamp.IsZero() {
		run.Timestamp = time.Now().UTC()
	}

	return s.withRetry("save run", func() error {
		_, err := s.db.Exec(
			`INSERT INTO runs (run_id, ts_utc, file_count, diagnostic_count)
VALUES (?, ?, ?, ?)
ON CONFLICT(run_id) DO UPDATE SET
  ts_utc=excluded.ts_utc,
  file_count=excluded.file_count,
  diagnostic_count=excluded.diagnostic_count`,
			run.ID,
			run.Timestamp.UTC().Format(time.RFC3339Nano),
			run.FileCount,
			run.DiagnosticCount,
		)
		return err
	})
}

// SaveFileResult upserts one file's outcome and replaces its diagnostics.
func (s *Store) SaveFileResult(result FileResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if result.Path == "" || result.ContentHash == "" {
		return fmt.Errorf("file result needs path and content hash")
	}

	return s.withRetry("save file result", func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(
			`INSERT INTO file_results (path, content_hash, run_id, language, reference_count, unresolved_count)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(path, content_hash) DO UPDATE SET
  run_id=excluded.run_id,
  language=excluded.language,
  reference_count=excluded.reference_count,
  unresolved_count=excluded.unresolved_count`,
			result.Path, result.ContentHash, result.RunID, result.Language,
			result.ReferenceCount, result.UnresolvedCount,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
		if _, err := tx.Exec(
			`DELETE FROM diagnostics WHERE path = ? AND content_hash = ?`,
			result.Path, result.ContentHash,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
		for _, d := range result.Diagnostics {
			if _, err := tx.Exec(
				`INSERT INTO diagnostics (path, content_hash, kind, name, specifier, line, col)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
				result.Path, result.ContentHash, d.Kind, d.Name, d.Specifier, d.Line, d.Column,
			); err != nil {
				_ = tx.Rollback()
				return err
			}
		}
		return tx.Commit()
	})
}

// LoadFileResult returns the cached outcome for a (path, hash) pair, or
// (nil, nil) on a miss.
func (s *Store) LoadFileResult(path, contentHash string) (*FileResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := &FileResult{Path: path, ContentHash: contentHash}
	err := s.withRetry("load file result", func() error {
		return s.db.QueryRow(
			`SELECT run_id, language, reference_count, unresolved_count
FROM file_results WHERE path = ? AND content_hash = ?`,
			path, contentHash,
		).Scan(&result.RunID, &result.Language, &result.ReferenceCount, &result.UnresolvedCount)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	rows, err := s.db.Query(
		`SELECT kind, name, specifier, line, col
FROM diagnostics WHERE path = ? AND content_hash = ? ORDER BY line, col`,
		path, contentHash,
	)
	if err != nil {
		return nil, fmt.Errorf("load diagnostics: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var d StoredDiagnostic
		if err := rows.Scan(&d.Kind, &d.Name, &d.Specifier, &d.Line, &d.Column); err != nil {
			return nil, fmt.Errorf("scan diagnostic row: %w", err)
		}
		result.Diagnostics = append(result.Diagnostics, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate diagnostic rows: %w", err)
	}
	return result, nil
}

// DropFile removes every cached entry for a path, regardless of hash. Used
// when the watcher reports a deletion.
func (s *Store) DropFile(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withRetry("drop file", func() error {
		if _, err := s.db.Exec(`DELETE FROM diagnostics WHERE path = ?`, path); err != nil {
			return err
		}
		_, err := s.db.Exec(`DELETE FROM file_results WHERE path = ?`, path)
		return err
	})
}

// RecentRuns lists completed runs newest first.
func (s *Store) RecentRuns(limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}
	var rows *sql.Rows
	err := s.withRetry("load runs", func() error {
		var qErr error
		rows, qErr = s.db.Query(
			`SELECT run_id, ts_utc, file_count, diagnostic_count
FROM runs ORDER BY ts_utc DESC LIMIT ?`, limit)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]Run, 0, limit)
	for rows.Next() {
		var (
			run   Run
			tsRaw string
		)
		if err := rows.Scan(&run.ID, &tsRaw, &run.FileCount, &run.DiagnosticCount); err != nil {
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
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}
