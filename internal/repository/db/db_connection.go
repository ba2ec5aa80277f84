package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const sqliteDriverName = "sqlite"

// InitDB opens/creates a SQLite DB and ensures tables exist. The default
// path ":memory:" keeps the planner session ephemeral.
func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}

	// A single connection serializes writers, which SQLite wants anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	if path != ":memory:" {
		// WAL only applies to on-disk databases
		pragmas = append([]string{"PRAGMA journal_mode = WAL"}, pragmas...)
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set %s: %w", p, err)
		}
	}

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return db, nil
}

// planner_session holds the one editable session; the CHECK pins its id so
// upserts cannot grow a second row. plan_events is the append-only activity
// log read by the history endpoint.
const schemaPlannerSession = `
CREATE TABLE IF NOT EXISTS planner_session (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    total_flow REAL NOT NULL,
    target_humidity REAL NOT NULL,
    ch2o_source_conc REAL NOT NULL,
    concentrations TEXT NOT NULL,
    use_alternate_math BOOLEAN NOT NULL,
    baseline_min INTEGER NOT NULL,
    exposure_min INTEGER NOT NULL,
    stabilization_min INTEGER NOT NULL,
    humidity_slope REAL NOT NULL,
    humidity_intercept REAL NOT NULL,
    ch2o_factor REAL NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

const schemaPlanEvents = `
CREATE TABLE IF NOT EXISTS plan_events (
    id TEXT PRIMARY KEY,
    occurred_at TIMESTAMP NOT NULL,
    type TEXT NOT NULL,
    message TEXT NOT NULL,
    meta TEXT
);
`

// ensureSchema applies both table definitions in one transaction so a partial
// bootstrap cannot survive a crash.
func ensureSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i, stmt := range []string{
		schemaPlannerSession,
		schemaPlanEvents,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema transaction: %w", err)
	}
	return nil
}
