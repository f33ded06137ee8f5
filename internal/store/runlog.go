package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const runLogSchema = `
CREATE TABLE IF NOT EXISTS bia_runs (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id     TEXT    NOT NULL,
    building   TEXT    NOT NULL,
    stage      TEXT    NOT NULL,
    status     TEXT    NOT NULL,
    sensors    INTEGER NOT NULL DEFAULT 0,
    elapsed_ms INTEGER NOT NULL DEFAULT 0,
    error      TEXT    NOT NULL DEFAULT '',
    created_at TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_bia_runs_run ON bia_runs (run_id);
`

// RunEntry is one building outcome in the run ledger.
type RunEntry struct {
	RunID    uuid.UUID
	Building string
	Stage    string
	Status   string
	Sensors  int
	Elapsed  time.Duration
	Error    string
	Created  time.Time
}

// RunLog is the sqlite ledger of building outcomes.
type RunLog struct {
	db *sql.DB
}

// OpenRunLog opens or creates the ledger at path.
func OpenRunLog(path string) (*RunLog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open run log %s: %w", path, err)
	}
	// Workers record concurrently; one connection serializes writes.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("run log %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(runLogSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run log schema: %w", err)
	}
	return &RunLog{db: db}, nil
}

// Record appends one entry. A zero Created time is set to now.
func (l *RunLog) Record(ctx context.Context, e RunEntry) error {
	if e.Created.IsZero() {
		e.Created = time.Now()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO bia_runs (run_id, building, stage, status, sensors, elapsed_ms, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID.String(), e.Building, e.Stage, e.Status, e.Sensors,
		e.Elapsed.Milliseconds(), e.Error, e.Created.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("record %s/%s: %w", e.Building, e.Stage, err)
	}
	return nil
}

// Entries returns the entries of one run in insertion order.
func (l *RunLog) Entries(ctx context.Context, runID uuid.UUID) ([]RunEntry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT run_id, building, stage, status, sensors, elapsed_ms, error, created_at
		 FROM bia_runs WHERE run_id = ? ORDER BY id`, runID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []RunEntry
	for rows.Next() {
		var (
			e         RunEntry
			id        string
			elapsedMS int64
			created   string
		)
		if err := rows.Scan(&id, &e.Building, &e.Stage, &e.Status, &e.Sensors, &elapsedMS, &e.Error, &created); err != nil {
			return nil, err
		}
		if e.RunID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("run log: bad run_id %q: %w", id, err)
		}
		e.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		if e.Created, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("run log: bad created_at %q: %w", created, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// LastRun returns the run id of the most recently recorded entry.
func (l *RunLog) LastRun(ctx context.Context) (uuid.UUID, error) {
	var id string
	err := l.db.QueryRowContext(ctx, `SELECT run_id FROM bia_runs ORDER BY id DESC LIMIT 1`).Scan(&id)
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(id)
}

// StatusCounts returns the number of entries per status for one run.
func (l *RunLog) StatusCounts(ctx context.Context, runID uuid.UUID) (map[string]int, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM bia_runs WHERE run_id = ? GROUP BY status`, runID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// Close closes the database.
func (l *RunLog) Close() error {
	return l.db.Close()
}
