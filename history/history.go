// Package history persists analysis runs in a SQLite database.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ot-clark/llm-rank-diagnostic/analyzer"
)

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;

-- Analysis runs: one row per scored page
CREATE TABLE IF NOT EXISTS runs (
    run_id TEXT PRIMARY KEY,
    url TEXT NOT NULL,
    semantic_score INTEGER NOT NULL,
    schema_score INTEGER NOT NULL,
    clarity_score INTEGER NOT NULL,
    accessibility_score INTEGER NOT NULL,
    freshness_score INTEGER NOT NULL,
    echo_score INTEGER NOT NULL,
    visibility_score INTEGER NOT NULL,
    rubric_total INTEGER NOT NULL,
    degraded BOOLEAN NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_url ON runs(url);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at DESC);
`

// Run is one stored analysis outcome.
type Run struct {
	ID                 string    `json:"id"`
	URL                string    `json:"url"`
	SemanticScore      int       `json:"semanticScore"`
	SchemaScore        int       `json:"schemaScore"`
	ClarityScore       int       `json:"clarityScore"`
	AccessibilityScore int       `json:"accessibilityScore"`
	FreshnessScore     int       `json:"freshnessScore"`
	EchoScore          int       `json:"echoScore"`
	VisibilityScore    int       `json:"visibilityScore"`
	RubricTotal        int       `json:"rubricTotal"`
	Degraded           bool      `json:"degraded"`
	CreatedAt          time.Time `json:"createdAt"`
}

// DB is the run history store.
type DB struct {
	*sql.DB
	path string
}

// openDB opens a SQLite database at the given path
func openDB(dbPath string) (*sql.DB, error) {
	sqlDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return sqlDB, nil
}

// Open opens or creates the history database at path.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	sqlDB, err := openDB(path)
	if err != nil {
		return nil, err
	}

	db := &DB{DB: sqlDB, path: path}
	if err := db.InitSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return db, nil
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.path
}

// InitSchema initializes the database schema
func (db *DB) InitSchema() error {
	_, err := db.Exec(schema)
	return err
}

// InsertReport stores the outcome of one analysis.
func (db *DB) InsertReport(report *analyzer.Report) error {
	degraded := report.Semantic.Error != ""
	_, err := db.Exec(`
		INSERT INTO runs (
			run_id, url, semantic_score, schema_score, clarity_score,
			accessibility_score, freshness_score, echo_score,
			visibility_score, rubric_total, degraded, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, report.ID, report.URL,
		report.Semantic.Score, report.Schema.Score, report.Clarity.Score,
		report.Accessibility.Score, report.Freshness.Score, report.Echo.Score,
		report.VisibilityScore, report.Rubric.TotalScore, degraded,
		report.FetchedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// Recent returns the latest runs, newest first.
func (db *DB) Recent(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`
		SELECT run_id, url, semantic_score, schema_score, clarity_score,
			accessibility_score, freshness_score, echo_score,
			visibility_score, rubric_total, degraded, created_at
		FROM runs ORDER BY created_at DESC, run_id LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

// ForURL returns the runs recorded for one URL, newest first.
func (db *DB) ForURL(url string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`
		SELECT run_id, url, semantic_score, schema_score, clarity_score,
			accessibility_score, freshness_score, echo_score,
			visibility_score, rubric_total, degraded, created_at
		FROM runs WHERE url = ? ORDER BY created_at DESC, run_id LIMIT ?
	`, url, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

func scanRuns(rows *sql.Rows) ([]Run, error) {
	var runs []Run
	for rows.Next() {
		var run Run
		var createdAt string
		if err := rows.Scan(&run.ID, &run.URL,
			&run.SemanticScore, &run.SchemaScore, &run.ClarityScore,
			&run.AccessibilityScore, &run.FreshnessScore, &run.EchoScore,
			&run.VisibilityScore, &run.RubricTotal, &run.Degraded, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			run.CreatedAt = t
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
