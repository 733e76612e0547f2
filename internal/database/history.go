package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/quietwire/linkcheck/internal/model"
)

// FileName is the name of the database file inside the database directory.
const FileName = "linkcheck.db"

// ErrRunNotFound is returned when a run ID does not exist.
var ErrRunNotFound = errors.New("run not found")

// HistoryDB stores run results for later comparison.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a HistoryDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file. Concurrent check runs
	// wait for the write lock instead of failing with SQLITE_BUSY.
	dsn := dbPath + "?mode=rw&_pragma=busy_timeout(10000)"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc&_pragma=busy_timeout(10000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Path returns the database file path.
func (hdb *HistoryDB) Path() string {
	return hdb.dbPath
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

func (hdb *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		root TEXT NOT NULL,
		started_at TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		documents INTEGER NOT NULL,
		ok INTEGER NOT NULL,
		warnings INTEGER NOT NULL,
		errors INTEGER NOT NULL,
		skipped INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_root ON runs(root);

	CREATE TABLE IF NOT EXISTS findings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		path TEXT NOT NULL,
		line INTEGER NOT NULL,
		url TEXT NOT NULL,
		link_type TEXT NOT NULL,
		status TEXT NOT NULL,
		reason TEXT NOT NULL,
		http_code INTEGER,
		final_url TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_findings_run ON findings(run_id);

	CREATE TABLE IF NOT EXISTS documents (
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		path TEXT NOT NULL,
		digest TEXT,
		links INTEGER NOT NULL,
		PRIMARY KEY (run_id, path)
	);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// Run is the summary row of a recorded run.
type Run struct {
	ID        int64         `json:"id"`
	Root      string        `json:"root"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Summary   model.Summary `json:"summary"`
}

// SaveRun records result and returns the new run ID. The run, its findings
// and its documents are written in one transaction.
func (hdb *HistoryDB) SaveRun(ctx context.Context, result *model.Result) (int64, error) {
	tx, err := hdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	s := result.Summary
	res, err := tx.ExecContext(ctx, `
	INSERT INTO runs (root, started_at, duration_ms, documents, ok, warnings, errors, skipped)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		result.Root,
		result.StartedAt.UTC().Format(time.RFC3339Nano),
		result.Duration.Milliseconds(),
		s.Documents, s.OK, s.Warnings, s.Errors, s.Skipped,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}

	findingStmt, err := tx.PrepareContext(ctx, `
	INSERT INTO findings (run_id, path, line, url, link_type, status, reason, http_code, final_url)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare finding insert: %w", err)
	}
	defer findingStmt.Close()

	for _, f := range result.Findings {
		if _, err := findingStmt.ExecContext(ctx,
			runID, f.Path, f.Line, f.URL,
			f.LinkType.String(), f.Status.String(), f.Reason,
			f.HTTPCode, f.FinalURL,
		); err != nil {
			return 0, fmt.Errorf("failed to insert finding: %w", err)
		}
	}

	docStmt, err := tx.PrepareContext(ctx, `
	INSERT OR REPLACE INTO documents (run_id, path, digest, links)
	VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare document insert: %w", err)
	}
	defer docStmt.Close()

	for _, d := range result.Documents {
		if _, err := docStmt.ExecContext(ctx, runID, d.Path, d.Digest, d.Links); err != nil {
			return 0, fmt.Errorf("failed to insert document: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

// ListRuns returns the runs recorded for root, newest first.
// A limit of zero or less returns every run.
func (hdb *HistoryDB) ListRuns(ctx context.Context, root string, limit int) ([]Run, error) {
	query := `
	SELECT id, root, started_at, duration_ms, documents, ok, warnings, errors, skipped
	FROM runs
	WHERE root = ?
	ORDER BY id DESC
	`
	args := []any{root}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := hdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns one run by ID.
func (hdb *HistoryDB) GetRun(ctx context.Context, id int64) (Run, error) {
	row := hdb.db.QueryRowContext(ctx, `
	SELECT id, root, started_at, duration_ms, documents, ok, warnings, errors, skipped
	FROM runs
	WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	return run, err
}

// GetRunFindings returns the findings of a run sorted by path and line.
func (hdb *HistoryDB) GetRunFindings(ctx context.Context, runID int64) ([]model.Finding, error) {
	rows, err := hdb.db.QueryContext(ctx, `
	SELECT path, line, url, link_type, status, reason, http_code, final_url
	FROM findings
	WHERE run_id = ?
	ORDER BY path, line, url
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get findings: %w", err)
	}
	defer rows.Close()

	var findings []model.Finding
	for rows.Next() {
		var (
			f        model.Finding
			linkType string
			status   string
			httpCode sql.NullInt64
			finalURL sql.NullString
		)
		if err := rows.Scan(&f.Path, &f.Line, &f.URL, &linkType, &status, &f.Reason, &httpCode, &finalURL); err != nil {
			return nil, fmt.Errorf("failed to scan finding: %w", err)
		}
		if err := f.LinkType.UnmarshalText([]byte(linkType)); err != nil {
			return nil, fmt.Errorf("failed to parse link type: %w", err)
		}
		if f.Status, err = model.ParseStatus(status); err != nil {
			return nil, fmt.Errorf("failed to parse status: %w", err)
		}
		f.HTTPCode = int(httpCode.Int64)
		f.FinalURL = finalURL.String
		findings = append(findings, f)
	}
	return findings, rows.Err()
}

// GetRunDocuments returns the documents read by a run.
func (hdb *HistoryDB) GetRunDocuments(ctx context.Context, runID int64) ([]model.DocumentDigest, error) {
	rows, err := hdb.db.QueryContext(ctx, `
	SELECT path, digest, links FROM documents
	WHERE run_id = ?
	ORDER BY path
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get documents: %w", err)
	}
	defer rows.Close()

	var docs []model.DocumentDigest
	for rows.Next() {
		var (
			d      model.DocumentDigest
			digest sql.NullString
		)
		if err := rows.Scan(&d.Path, &digest, &d.Links); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		d.Digest = digest.String
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// PruneRuns deletes all but the newest keep runs for root and returns the
// number of runs removed.
func (hdb *HistoryDB) PruneRuns(ctx context.Context, root string, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}

	tx, err := hdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const stale = `SELECT id FROM runs WHERE root = ? ORDER BY id DESC LIMIT -1 OFFSET ?`
	for _, table := range []string{"findings", "documents"} {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM "+table+" WHERE run_id IN ("+stale+")", root, keep); err != nil {
			return 0, fmt.Errorf("failed to prune %s: %w", table, err)
		}
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE id IN ("+stale+")", root, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned runs: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit prune: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run        Run
		startedAt  string
		durationMs int64
	)
	err := row.Scan(&run.ID, &run.Root, &startedAt, &durationMs,
		&run.Summary.Documents, &run.Summary.OK, &run.Summary.Warnings,
		&run.Summary.Errors, &run.Summary.Skipped)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, err
	}
	if err != nil {
		return Run{}, fmt.Errorf("failed to scan run: %w", err)
	}
	run.StartedAt = parseTimestamp(startedAt)
	run.Duration = time.Duration(durationMs) * time.Millisecond
	return run, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseTimestamp returns the zero time if no format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
