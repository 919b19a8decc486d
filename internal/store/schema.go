package store

import (
	"database/sql"
	"fmt"
)

// createSchema creates the run table. Safe to call repeatedly — uses
// IF NOT EXISTS.
func createSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("store: create schema: %w", err)
	}
	return nil
}

const schema = `
-- One row per immutable analysis run.
CREATE TABLE IF NOT EXISTS run (
    id          TEXT PRIMARY KEY,
    label       TEXT NOT NULL,
    dataset     TEXT NOT NULL,
    created_at  INTEGER NOT NULL,         -- Unix nanoseconds UTC
    k           INTEGER NOT NULL,
    effect      REAL NOT NULL,
    se          REAL NOT NULL,
    ci_low      REAL NOT NULL,
    ci_high     REAL NOT NULL,
    level       REAL NOT NULL,
    q           REAL NOT NULL,
    p           REAL NOT NULL,
    degenerate  INTEGER NOT NULL DEFAULT 0,
    payload     TEXT NOT NULL             -- full types.Run as JSON
);

CREATE INDEX IF NOT EXISTS idx_run_created_at ON run(created_at);
`
