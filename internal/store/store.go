// Package store keeps probe history in SQLite so recent results can be reused
// across runs.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/plextuner/iptv-collector/internal/speedtest"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id             TEXT PRIMARY KEY,
	started_at     INTEGER NOT NULL,
	finished_at    INTEGER,
	sources        INTEGER NOT NULL DEFAULT 0,
	failed_sources INTEGER NOT NULL DEFAULT 0,
	channels       INTEGER NOT NULL DEFAULT 0,
	slow_urls      INTEGER NOT NULL DEFAULT 0,
	error          TEXT
);
CREATE TABLE IF NOT EXISTS probes (
	run_id      TEXT NOT NULL,
	url         TEXT NOT NULL,
	probed_at   INTEGER NOT NULL,
	success     INTEGER NOT NULL,
	score       REAL NOT NULL,
	error       TEXT,
	status      INTEGER,
	ipv6        INTEGER NOT NULL,
	connect_ms  INTEGER,
	response_ms INTEGER,
	total_ms    INTEGER,
	playlist    TEXT
);
CREATE INDEX IF NOT EXISTS probes_url_time ON probes(url, probed_at DESC);
`

// Store is a probe history database. It is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store %s: %w", path, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	// One writer at a time keeps SQLite from returning SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("store %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store %s: schema: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }

// NewRunID returns a fresh run identifier.
func NewRunID() string { return uuid.NewString() }

// Run is one collector run as recorded in the runs table.
type Run struct {
	ID            string
	StartedAt     time.Time
	FinishedAt    time.Time
	Sources       int
	FailedSources int
	Channels      int
	SlowURLs      int
	Err           string
}

// BeginRun records the start of run id.
func (s *Store) BeginRun(ctx context.Context, id string, started time.Time) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO runs (id, started_at) VALUES (?, ?)`, id, started.UnixMilli())
	if err != nil {
		return fmt.Errorf("begin run %s: %w", id, err)
	}
	return nil
}

// FinishRun stores the outcome of a run started with BeginRun.
func (s *Store) FinishRun(ctx context.Context, r Run) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, sources = ?, failed_sources = ?, channels = ?, slow_urls = ?, error = ? WHERE id = ?`,
		r.FinishedAt.UnixMilli(), r.Sources, r.FailedSources, r.Channels, r.SlowURLs, nullString(r.Err), r.ID)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", r.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run %s: %w", r.ID, sql.ErrNoRows)
	}
	return nil
}

// LastRun returns the most recently started run.
func (s *Store) LastRun(ctx context.Context) (Run, error) {
	var (
		r        Run
		started  int64
		finished sql.NullInt64
		errText  sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, sources, failed_sources, channels, slow_urls, error FROM runs ORDER BY started_at DESC LIMIT 1`).
		Scan(&r.ID, &started, &finished, &r.Sources, &r.FailedSources, &r.Channels, &r.SlowURLs, &errText)
	if err != nil {
		return Run{}, err
	}
	r.StartedAt = time.UnixMilli(started)
	if finished.Valid {
		r.FinishedAt = time.UnixMilli(finished.Int64)
	}
	r.Err = errText.String
	return r, nil
}

// RecordProbes stores live probe results for runID. Cached results are skipped.
func (s *Store) RecordProbes(ctx context.Context, runID string, at time.Time, results []speedtest.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record probes: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO probes
		(run_id, url, probed_at, success, score, error, status, ipv6, connect_ms, response_ms, total_ms, playlist)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("record probes: %w", err)
	}
	defer stmt.Close()
	ts := at.UnixMilli()
	for _, r := range results {
		if r.Cached || r.URL == "" {
			continue
		}
		_, err := stmt.ExecContext(ctx, runID, r.URL, ts, r.Success, r.Score, nullString(r.Err), r.Status, r.IPv6,
			r.Connect.Milliseconds(), r.Response.Milliseconds(), r.Total.Milliseconds(), nullString(r.Playlist))
		if err != nil {
			return fmt.Errorf("record probe %s: %w", r.URL, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record probes: %w", err)
	}
	return nil
}

// Entry is one stored probe.
type Entry struct {
	RunID    string
	ProbedAt time.Time
	Result   speedtest.Result
}

const probeColumns = `run_id, url, probed_at, success, score, error, status, ipv6, connect_ms, response_ms, total_ms, playlist`

func scanEntry(row interface{ Scan(...any) error }) (Entry, error) {
	var (
		e                            Entry
		at                           int64
		errText, playlist            sql.NullString
		status                       sql.NullInt64
		connect, response, totalTime sql.NullInt64
	)
	err := row.Scan(&e.RunID, &e.Result.URL, &at, &e.Result.Success, &e.Result.Score, &errText, &status,
		&e.Result.IPv6, &connect, &response, &totalTime, &playlist)
	if err != nil {
		return Entry{}, err
	}
	e.ProbedAt = time.UnixMilli(at)
	e.Result.Err = errText.String
	e.Result.Status = int(status.Int64)
	e.Result.Connect = time.Duration(connect.Int64) * time.Millisecond
	e.Result.Response = time.Duration(response.Int64) * time.Millisecond
	e.Result.Total = time.Duration(totalTime.Int64) * time.Millisecond
	e.Result.Playlist = playlist.String
	return e, nil
}

// Fresh returns, for each URL with a probe newer than now-ttl, its latest
// result marked Cached. A non-positive ttl returns nothing.
func (s *Store) Fresh(ctx context.Context, urls []string, now time.Time, ttl time.Duration) (map[string]speedtest.Result, error) {
	out := make(map[string]speedtest.Result)
	if ttl <= 0 || len(urls) == 0 {
		return out, nil
	}
	stmt, err := s.db.PrepareContext(ctx,
		`SELECT `+probeColumns+` FROM probes WHERE url = ? AND probed_at >= ? ORDER BY probed_at DESC LIMIT 1`)
	if err != nil {
		return nil, fmt.Errorf("fresh probes: %w", err)
	}
	defer stmt.Close()
	since := now.Add(-ttl).UnixMilli()
	for _, u := range urls {
		if _, done := out[u]; done {
			continue
		}
		e, err := scanEntry(stmt.QueryRowContext(ctx, u, since))
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("fresh probe %s: %w", u, err)
		}
		e.Result.Cached = true
		out[u] = e.Result
	}
	return out, nil
}

// History returns up to limit stored probes for url, newest first.
func (s *Store) History(ctx context.Context, url string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+probeColumns+` FROM probes WHERE url = ? ORDER BY probed_at DESC LIMIT ?`, url, limit)
	if err != nil {
		return nil, fmt.Errorf("probe history %s: %w", url, err)
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("probe history %s: %w", url, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Prune deletes probes older than before and returns how many were removed.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM probes WHERE probed_at < ?`, before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune probes: %w", err)
	}
	return res.RowsAffected()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
