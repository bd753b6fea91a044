package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SchemaVersion is the current schema version.
const SchemaVersion = 1

const schemaV1 = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    objective TEXT NOT NULL,
    target REAL NOT NULL,
    total INTEGER NOT NULL,
    cap INTEGER NOT NULL,
    evaluated INTEGER NOT NULL,
    truncated INTEGER NOT NULL,
    created_at TEXT NOT NULL
);

-- One row per (policy, p, delivery) unit; idx preserves report order
CREATE TABLE IF NOT EXISTS results (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    idx INTEGER NOT NULL,
    policy TEXT NOT NULL,
    steps TEXT NOT NULL,     -- JSON
    p REAL NOT NULL,
    delivery TEXT NOT NULL,  -- JSON
    repetitions INTEGER NOT NULL,
    successes INTEGER NOT NULL,
    success_rate REAL NOT NULL,
    avg_discrepancy REAL NOT NULL,
    avg_consensus_round REAL,
    PRIMARY KEY (run_id, idx)
);
CREATE INDEX IF NOT EXISTS idx_results_policy ON results(policy);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);
`

// initSchema creates the tables on a fresh database and rejects databases
// written by a newer schema.
func initSchema(ctx context.Context, db *sql.DB) error {
	var version int
	err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&version)
	if err == nil {
		if version > SchemaVersion {
			return fmt.Errorf("database schema version %d is newer than supported version %d", version, SchemaVersion)
		}
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schemaV1); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_version (version, applied_at) VALUES (?, ?)`,
		SchemaVersion, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return tx.Commit()
}
