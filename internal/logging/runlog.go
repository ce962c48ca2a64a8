package logging

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sreemahi-code/abbhack/internal/simulate"
)

// #region schema
const runSchema = `
CREATE TABLE IF NOT EXISTS simulation_runs (
	run_id         TEXT PRIMARY KEY,
	dataset_id     TEXT,
	sim_start      TEXT NOT NULL,
	sim_end        TEXT NOT NULL,
	state          TEXT NOT NULL,
	count          INTEGER NOT NULL,
	pass_count     INTEGER NOT NULL,
	fail_count     INTEGER NOT NULL,
	avg_confidence REAL NOT NULL,
	error          TEXT,
	started_at     TEXT NOT NULL,
	ended_at       TEXT
);
`

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// EnsureSchema creates the simulation_runs table if it does not exist.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(runSchema); err != nil {
		return fmt.Errorf("migrate run log: %w", err)
	}
	return nil
}
// #endregion schema

// #region log-run
// LogRun writes or updates a run summary row.
func LogRun(ctx context.Context, db *sql.DB, entry RunEntry) error {
	if entry.StartedAt.IsZero() {
		entry.StartedAt = time.Now().UTC()
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO simulation_runs (run_id, dataset_id, sim_start, sim_end, state, count, pass_count, fail_count, avg_confidence, error, started_at, ended_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(run_id) DO UPDATE SET
			state = excluded.state,
			count = excluded.count,
			pass_count = excluded.pass_count,
			fail_count = excluded.fail_count,
			avg_confidence = excluded.avg_confidence,
			error = excluded.error,
			ended_at = excluded.ended_at`,
		entry.RunID,
		nullIfEmpty(entry.DatasetID),
		entry.SimStart.UTC().Format(timeLayout),
		entry.SimEnd.UTC().Format(timeLayout),
		entry.State,
		entry.Count,
		entry.PassCount,
		entry.FailCount,
		entry.AvgConfidence,
		nullIfEmpty(entry.Error),
		entry.StartedAt.UTC().Format(timeLayout),
		nullTime(entry.EndedAt),
	)
	if err != nil {
		return fmt.Errorf("log run: %w", err)
	}
	return nil
}
// #endregion log-run

// #region list-runs
// ListRuns returns the most recent runs, newest first.
func ListRuns(ctx context.Context, db *sql.DB, limit int) ([]RunEntry, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT run_id, dataset_id, sim_start, sim_end, state, count, pass_count, fail_count, avg_confidence, error, started_at, ended_at
		 FROM simulation_runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunEntry
	for rows.Next() {
		var e RunEntry
		var datasetID, errMsg, endedAt sql.NullString
		var simStart, simEnd, startedAt string
		if err := rows.Scan(&e.RunID, &datasetID, &simStart, &simEnd, &e.State, &e.Count, &e.PassCount,
			&e.FailCount, &e.AvgConfidence, &errMsg, &startedAt, &endedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		e.DatasetID = datasetID.String
		e.Error = errMsg.String
		e.SimStart, _ = time.Parse(timeLayout, simStart)
		e.SimEnd, _ = time.Parse(timeLayout, simEnd)
		e.StartedAt, _ = time.Parse(timeLayout, startedAt)
		if endedAt.Valid {
			e.EndedAt, _ = time.Parse(timeLayout, endedAt.String)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
// #endregion list-runs

// #region observer
// RunLog persists run summaries as a simulate.Observer.
type RunLog struct {
	db *sql.DB
}

// NewRunLog migrates db and returns an observer writing to it.
func NewRunLog(db *sql.DB) (*RunLog, error) {
	if err := EnsureSchema(db); err != nil {
		return nil, err
	}
	return &RunLog{db: db}, nil
}

// RunStarted records the run as streaming.
func (l *RunLog) RunStarted(ctx context.Context, s simulate.Summary) error {
	e := entryFromSummary(s)
	e.State = string(simulate.StateStreaming)
	return LogRun(ctx, l.db, e)
}

// RunFinished records the final state and totals.
func (l *RunLog) RunFinished(ctx context.Context, s simulate.Summary) error {
	return LogRun(ctx, l.db, entryFromSummary(s))
}

func entryFromSummary(s simulate.Summary) RunEntry {
	return RunEntry{
		RunID:         s.ID,
		DatasetID:     s.DatasetID,
		SimStart:      s.SimStart,
		SimEnd:        s.SimEnd,
		State:         string(s.State),
		Count:         s.Totals.Count,
		PassCount:     s.Totals.PassCount,
		FailCount:     s.Totals.FailCount,
		AvgConfidence: s.Totals.AvgConfidence,
		Error:         s.Error,
		StartedAt:     s.StartedAt,
		EndedAt:       s.EndedAt,
	}
}
// #endregion observer

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(timeLayout)
}
// #endregion helpers
