// Package journal keeps an audit trail of merge runs in SQLite.
package journal

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/kenmei-ledger/internal/model"
)

// Journal records finished runs.
type Journal interface {
	Record(ctx context.Context, run *model.Run) error
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)
	GetRun(ctx context.Context, id string) (*model.Run, error)
	Close() error
}

// SQLiteJournal implements Journal using modernc.org/sqlite.
type SQLiteJournal struct {
	db *sql.DB
}

// Open opens the journal database at path and applies the schema.
func Open(ctx context.Context, path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "journal: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "journal: exec %s", pragma)
		}
	}

	j := &SQLiteJournal{db: db}
	if err := j.migrate(ctx); err != nil {
		db.Close() //nolint:errcheck
		return nil, err
	}
	return j, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL,
	ledger_path TEXT NOT NULL,
	imported    INTEGER NOT NULL DEFAULT 0,
	skipped     INTEGER NOT NULL DEFAULT 0,
	error       TEXT,
	started_at  TEXT NOT NULL,
	finished_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS run_batches (
	run_id         TEXT NOT NULL REFERENCES runs(id),
	seq            INTEGER NOT NULL,
	filename       TEXT NOT NULL,
	action         TEXT NOT NULL,
	rows_added     INTEGER NOT NULL DEFAULT 0,
	rows_updated   INTEGER NOT NULL DEFAULT 0,
	fields_changed INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

func (j *SQLiteJournal) migrate(ctx context.Context) error {
	_, err := j.db.ExecContext(ctx, migration)
	return eris.Wrap(err, "journal: migrate")
}

// Close closes the database.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

// Record inserts a run and its batch outcomes. A run without an ID is given one.
func (j *SQLiteJournal) Record(ctx context.Context, run *model.Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "journal: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, status, ledger_path, imported, skipped, error, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, string(run.Status), run.LedgerPath, run.Imported, run.Skipped,
		nullString(run.Error), formatTime(run.StartedAt), formatTime(run.FinishedAt),
	)
	if err != nil {
		return eris.Wrapf(err, "journal: insert run %s", run.ID)
	}

	for i, b := range run.Batches {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO run_batches (run_id, seq, filename, action, rows_added, rows_updated, fields_changed)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID, i, b.Filename, string(b.Action), b.RowsAdded, b.RowsUpdated, b.FieldsChanged,
		)
		if err != nil {
			return eris.Wrapf(err, "journal: insert batch %s", b.Filename)
		}
	}

	return eris.Wrap(tx.Commit(), "journal: commit")
}

// ListRuns returns the most recent runs first, without batch details.
func (j *SQLiteJournal) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := j.db.QueryContext(ctx,
		`SELECT id, status, ledger_path, imported, skipped, error, started_at, finished_at
		 FROM runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "journal: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "journal: list runs iterate")
}

// GetRun returns one run with its batch outcomes.
func (j *SQLiteJournal) GetRun(ctx context.Context, id string) (*model.Run, error) {
	row := j.db.QueryRowContext(ctx,
		`SELECT id, status, ledger_path, imported, skipped, error, started_at, finished_at
		 FROM runs WHERE id = ?`,
		id,
	)
	run, err := scanRun(row)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, eris.Errorf("journal: run not found: %s", id)
		}
		return nil, err
	}

	rows, err := j.db.QueryContext(ctx,
		`SELECT filename, action, rows_added, rows_updated, fields_changed
		 FROM run_batches WHERE run_id = ? ORDER BY seq`,
		id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "journal: list batches for %s", id)
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		var b model.BatchOutcome
		var action string
		if err := rows.Scan(&b.Filename, &action, &b.RowsAdded, &b.RowsUpdated, &b.FieldsChanged); err != nil {
			return nil, eris.Wrap(err, "journal: scan batch")
		}
		b.Action = model.BatchAction(action)
		run.Batches = append(run.Batches, b)
	}
	return run, eris.Wrap(rows.Err(), "journal: list batches iterate")
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var (
		r                 model.Run
		status            string
		errStr            sql.NullString
		started, finished string
	)
	if err := row.Scan(&r.ID, &status, &r.LedgerPath, &r.Imported, &r.Skipped, &errStr, &started, &finished); err != nil {
		return nil, eris.Wrap(err, "journal: scan run")
	}
	r.Status = model.RunStatus(status)
	r.Error = errStr.String

	var err error
	if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return nil, eris.Wrap(err, "journal: parse started_at")
	}
	if r.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
		return nil, eris.Wrap(err, "journal: parse finished_at")
	}
	return &r, nil
}

// timeLayout is fixed width so that TEXT ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
