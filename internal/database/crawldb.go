package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/sitecrawl/internal/model"
)

// DBFileName is the name of the database file inside the database directory.
const DBFileName = "sitecrawl.db"

// ErrNotEnoughRuns is returned by CompareLatest when a seed has fewer than
// two stored runs.
var ErrNotEnoughRuns = errors.New("at least 2 runs are required for comparison")

// CrawlDB stores the results of finished crawl runs.
//
// It is a record of past runs only. Nothing stored here is read back by a
// crawl: every run starts with an empty frontier and visited set.
type CrawlDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if missing.
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

// Open opens or creates the database in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	var dsn string
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = dbPath + "?mode=rwc"
	} else {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if _, err := db.ExecContext(context.Background(), "PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Path returns the database file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CrawlDB) createTables() error {
	schema := `
	-- One row per finished crawl run
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		start_url TEXT NOT NULL,
		seed TEXT NOT NULL,
		base_domain TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		page_count INTEGER NOT NULL DEFAULT 0,
		failure_count INTEGER NOT NULL DEFAULT 0,
		cancelled INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_start_url ON runs(start_url);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);

	-- Valid pages of a run
	CREATE TABLE IF NOT EXISTS pages (
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		status_code INTEGER,
		content_type TEXT,
		digest TEXT,
		links INTEGER,
		PRIMARY KEY (run_id, url)
	);

	-- URLs whose fetch failed during a run
	CREATE TABLE IF NOT EXISTS failures (
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		kind TEXT NOT NULL,
		status_code INTEGER,
		reason TEXT,
		PRIMARY KEY (run_id, url)
	);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveRun stores a finished crawl result and returns the new run ID.
// The run and its pages are written in one transaction.
func (cdb *CrawlDB) SaveRun(ctx context.Context, result *model.CrawlResult) (id int64, err error) {
	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
	INSERT INTO runs (start_url, seed, base_domain, started_at, finished_at, page_count, failure_count, cancelled)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		result.StartURL,
		result.Seed,
		result.BaseDomain,
		formatTimestamp(result.StartedAt),
		formatTimestamp(result.FinishedAt),
		len(result.Pages),
		len(result.Failures),
		result.Cancelled,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save run: %w", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run ID: %w", err)
	}

	for _, p := range result.Pages {
		_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO pages (run_id, url, status_code, content_type, digest, links)
		VALUES (?, ?, ?, ?, ?, ?)
		`, id, p.URL, p.StatusCode, p.ContentType, p.Digest, p.Links)
		if err != nil {
			return 0, fmt.Errorf("failed to save page %s: %w", p.URL, err)
		}
	}

	for _, f := range result.Failures {
		_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO failures (run_id, url, kind, status_code, reason)
		VALUES (?, ?, ?, ?, ?)
		`, id, f.URL, string(f.Kind), f.StatusCode, f.Reason)
		if err != nil {
			return 0, fmt.Errorf("failed to save failure %s: %w", f.URL, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return id, nil
}

// ListSeeds returns the distinct start URLs that have stored runs, sorted.
func (cdb *CrawlDB) ListSeeds(ctx context.Context) ([]string, error) {
	rows, err := cdb.db.QueryContext(ctx, `SELECT DISTINCT start_url FROM runs ORDER BY start_url`)
	if err != nil {
		return nil, fmt.Errorf("failed to list seeds: %w", err)
	}
	defer rows.Close()

	var seeds []string
	for rows.Next() {
		var seed string
		if err := rows.Scan(&seed); err != nil {
			return nil, fmt.Errorf("failed to scan seed: %w", err)
		}
		seeds = append(seeds, seed)
	}
	return seeds, rows.Err()
}

// ListRuns returns the runs for startURL, newest first.
func (cdb *CrawlDB) ListRuns(ctx context.Context, startURL string) ([]model.RunSummary, error) {
	return cdb.queryRuns(ctx, `
	SELECT id, start_url, base_domain, started_at, finished_at, page_count, failure_count, cancelled
	FROM runs
	WHERE start_url = ?
	ORDER BY started_at DESC, id DESC
	`, startURL)
}

// LatestRuns returns up to n complete results for startURL, newest first.
func (cdb *CrawlDB) LatestRuns(ctx context.Context, startURL string, n int) ([]*model.CrawlResult, error) {
	summaries, err := cdb.queryRuns(ctx, `
	SELECT id, start_url, base_domain, started_at, finished_at, page_count, failure_count, cancelled
	FROM runs
	WHERE start_url = ?
	ORDER BY started_at DESC, id DESC
	LIMIT ?
	`, startURL, n)
	if err != nil {
		return nil, err
	}

	results := make([]*model.CrawlResult, 0, len(summaries))
	for _, s := range summaries {
		result, err := cdb.GetRun(ctx, s.ID)
		if err != nil {
			return nil, err
		}
		if result != nil {
			results = append(results, result)
		}
	}
	return results, nil
}

// GetRun returns the stored result with the given ID, or nil if there is none.
// Visited is rebuilt from the stored pages and failures, sorted by URL.
func (cdb *CrawlDB) GetRun(ctx context.Context, id int64) (*model.CrawlResult, error) {
	var (
		result                model.CrawlResult
		startedAt, finishedAt string
	)
	err := cdb.db.QueryRowContext(ctx, `
	SELECT start_url, seed, base_domain, started_at, finished_at, cancelled
	FROM runs WHERE id = ?
	`, id).Scan(&result.StartURL, &result.Seed, &result.BaseDomain, &startedAt, &finishedAt, &result.Cancelled)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %d: %w", id, err)
	}
	result.StartedAt = parseTimestamp(startedAt)
	result.FinishedAt = parseTimestamp(finishedAt)

	if result.Pages, err = cdb.pages(ctx, id); err != nil {
		return nil, err
	}
	if result.Failures, err = cdb.failures(ctx, id); err != nil {
		return nil, err
	}

	result.Visited = make([]string, 0, len(result.Pages)+len(result.Failures))
	for _, p := range result.Pages {
		result.Visited = append(result.Visited, p.URL)
	}
	for _, f := range result.Failures {
		result.Visited = append(result.Visited, f.URL)
	}
	sort.Strings(result.Visited)

	return &result, nil
}

// Comparison is the difference between the two latest runs of a seed.
type Comparison struct {
	Older model.RunSummary  `json:"older"`
	Newer model.RunSummary  `json:"newer"`
	Diff  *model.ResultDiff `json:"diff"`
}

// CompareLatest compares the two newest runs of startURL.
// It returns ErrNotEnoughRuns when fewer than two runs are stored.
func (cdb *CrawlDB) CompareLatest(ctx context.Context, startURL string) (*Comparison, error) {
	runs, err := cdb.ListRuns(ctx, startURL)
	if err != nil {
		return nil, err
	}
	if len(runs) < 2 {
		return nil, fmt.Errorf("%w (found %d)", ErrNotEnoughRuns, len(runs))
	}
	return cdb.Compare(ctx, runs[1].ID, runs[0].ID)
}

// Compare compares run olderID with run newerID.
func (cdb *CrawlDB) Compare(ctx context.Context, olderID, newerID int64) (*Comparison, error) {
	older, err := cdb.GetRun(ctx, olderID)
	if err != nil {
		return nil, err
	}
	if older == nil {
		return nil, fmt.Errorf("run %d not found", olderID)
	}
	newer, err := cdb.GetRun(ctx, newerID)
	if err != nil {
		return nil, err
	}
	if newer == nil {
		return nil, fmt.Errorf("run %d not found", newerID)
	}

	return &Comparison{
		Older: summarize(olderID, older),
		Newer: summarize(newerID, newer),
		Diff:  model.Diff(older, newer),
	}, nil
}

func summarize(id int64, r *model.CrawlResult) model.RunSummary {
	return model.RunSummary{
		ID:         id,
		Seed:       r.StartURL,
		BaseDomain: r.BaseDomain,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Pages:      len(r.Pages),
		Failures:   len(r.Failures),
		Cancelled:  r.Cancelled,
	}
}

func (cdb *CrawlDB) queryRuns(ctx context.Context, query string, args ...any) ([]model.RunSummary, error) {
	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []model.RunSummary
	for rows.Next() {
		var (
			run                   model.RunSummary
			startedAt, finishedAt string
		)
		if err := rows.Scan(&run.ID, &run.Seed, &run.BaseDomain, &startedAt, &finishedAt,
			&run.Pages, &run.Failures, &run.Cancelled); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.StartedAt = parseTimestamp(startedAt)
		run.FinishedAt = parseTimestamp(finishedAt)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (cdb *CrawlDB) pages(ctx context.Context, runID int64) ([]model.Page, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT url, status_code, content_type, digest, links
	FROM pages WHERE run_id = ? ORDER BY url
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pages: %w", err)
	}
	defer rows.Close()

	pages := make([]model.Page, 0)
	for rows.Next() {
		var (
			p           model.Page
			contentType sql.NullString
			digest      sql.NullString
		)
		if err := rows.Scan(&p.URL, &p.StatusCode, &contentType, &digest, &p.Links); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		p.ContentType = contentType.String
		p.Digest = digest.String
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

func (cdb *CrawlDB) failures(ctx context.Context, runID int64) ([]model.Failure, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT url, kind, status_code, reason
	FROM failures WHERE run_id = ? ORDER BY url
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get failures: %w", err)
	}
	defer rows.Close()

	failures := make([]model.Failure, 0)
	for rows.Next() {
		var (
			f      model.Failure
			kind   string
			reason sql.NullString
		)
		if err := rows.Scan(&f.URL, &kind, &f.StatusCode, &reason); err != nil {
			return nil, fmt.Errorf("failed to scan failure: %w", err)
		}
		f.Kind = model.FailureKind(kind)
		f.Reason = reason.String
		failures = append(failures, f)
	}
	return failures, rows.Err()
}

// formatTimestamp stores times in UTC with nanoseconds so that runs sort
// correctly as text.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z")
}

// timestampFormats contains the timestamp formats parseTimestamp accepts.
var timestampFormats = []string{
	"2006-01-02T15:04:05.000000000Z",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05", // SQLite CURRENT_TIMESTAMP
}

// parseTimestamp parses a stored timestamp. Unparseable values yield the
// zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
