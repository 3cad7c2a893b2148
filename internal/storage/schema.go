package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// SchemaVersion is the version written to schema_metadata by CreateSchema.
const SchemaVersion = "1"

// CreateSchema creates all tables and indexes for the run history.
// Uses a transaction for atomicity - all schema creation succeeds or fails together.
//
// Must be called with SQLite PRAGMA foreign_keys = ON.
func CreateSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	tables := []struct {
		name string
		ddl  string
	}{
		{"runs", createRunsTable},
		{"components", createComponentsTable},
		{"schema_metadata", createSchemaMetadataTable},
	}
	for _, table := range tables {
		if _, err := tx.Exec(table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}

	for i, idx := range indexes {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index %d: %w", i+1, err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.Exec(
		`INSERT INTO schema_metadata (key, value, updated_at) VALUES ('schema_version', ?, ?)`,
		SchemaVersion, now,
	); err != nil {
		return fmt.Errorf("failed to bootstrap schema_metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}
	return nil
}

// GetSchemaVersion retrieves the schema version from schema_metadata.
// Returns "0" if the table doesn't exist (new database).
func GetSchemaVersion(db *sql.DB) (string, error) {
	var tableExists int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_metadata'").Scan(&tableExists)
	if err != nil {
		return "", fmt.Errorf("failed to check schema_metadata existence: %w", err)
	}
	if tableExists == 0 {
		return "0", nil // New database
	}

	var version string
	err = db.QueryRow("SELECT value FROM schema_metadata WHERE key = 'schema_version'").Scan(&version)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("schema_version key not found in schema_metadata")
	}
	if err != nil {
		return "", fmt.Errorf("failed to query schema version: %w", err)
	}
	return version, nil
}

const createRunsTable = `
CREATE TABLE runs (
    run_id TEXT PRIMARY KEY,                     -- UUID
    started_at TEXT NOT NULL,                    -- ISO 8601
    module_count INTEGER NOT NULL DEFAULT 0,
    file_count INTEGER NOT NULL DEFAULT 0,
    component_count INTEGER NOT NULL DEFAULT 0,
    duration_ms INTEGER NOT NULL DEFAULT 0
)
`

const createComponentsTable = `
CREATE TABLE components (
    run_id TEXT NOT NULL,
    seq INTEGER NOT NULL,                        -- Position in the sorted run output
    component_id TEXT NOT NULL,
    type TEXT NOT NULL,                          -- api, useCase, ..., custom
    custom_type TEXT NOT NULL DEFAULT '',
    module TEXT NOT NULL,
    file_path TEXT NOT NULL,
    line INTEGER NOT NULL,
    name TEXT NOT NULL DEFAULT '',
    fields TEXT NOT NULL,                        -- JSON object of field values
    PRIMARY KEY (run_id, component_id),
    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
)
`

const createSchemaMetadataTable = `
CREATE TABLE schema_metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL
)
`

var indexes = []string{
	"CREATE INDEX idx_runs_started_at ON runs(started_at)",
	"CREATE INDEX idx_components_run_seq ON components(run_id, seq)",
	"CREATE INDEX idx_components_module ON components(run_id, module)",
}
