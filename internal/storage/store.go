// Package storage persists extraction runs in SQLite so results can be
// compared across sessions and served without re-parsing the tree.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mvp-joe/archextract/internal/component"
	"github.com/mvp-joe/archextract/internal/extract"
	"github.com/mvp-joe/archextract/internal/rules"
)

// ErrNoRuns is returned when the database holds no runs.
var ErrNoRuns = errors.New("no extraction runs recorded")

// ErrRunNotFound is returned for an unknown run ID.
var ErrRunNotFound = errors.New("extraction run not found")

// Run describes one recorded extraction session.
type Run struct {
	ID         string
	StartedAt  time.Time
	Modules    int
	Files      int
	Components int
	Duration   time.Duration
}

// Store reads and writes extraction runs.
type Store struct {
	db     *sql.DB
	ownsDB bool // true if we opened the connection, false if shared
}

// Open opens (creating if needed) the database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s, err := newStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.ownsDB = true
	return s, nil
}

// NewStoreWithDB creates a Store using an existing database connection.
// The caller is responsible for closing db.
func NewStoreWithDB(db *sql.DB) (*Store, error) {
	return newStore(db)
}

func newStore(db *sql.DB) (*Store, error) {
	// Enable foreign keys (must be set for each connection)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	version, err := GetSchemaVersion(db)
	if err != nil {
		return nil, err
	}
	switch version {
	case "0":
		if err := CreateSchema(db); err != nil {
			return nil, err
		}
	case SchemaVersion:
	default:
		return nil, fmt.Errorf("unsupported schema version %q (expected %q)", version, SchemaVersion)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection if owned by this store.
func (s *Store) Close() error {
	if !s.ownsDB || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveRun records run and its components in a single transaction. A new
// UUID is assigned when run.ID is empty; the stored ID is returned.
func (s *Store) SaveRun(ctx context.Context, run Run, components []component.Component) (string, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	_, err = sq.Insert("runs").
		Columns("run_id", "started_at", "module_count", "file_count", "component_count", "duration_ms").
		Values(
			run.ID, run.StartedAt.UTC().Format(time.RFC3339Nano),
			run.Modules, run.Files, run.Components, run.Duration.Milliseconds(),
		).
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}

	for i, c := range components {
		fields, err := json.Marshal(c.Fields)
		if err != nil {
			return "", fmt.Errorf("failed to encode fields of %s: %w", c.ID, err)
		}
		_, err = sq.Insert("components").
			Columns(
				"run_id", "seq", "component_id", "type", "custom_type",
				"module", "file_path", "line", "name", "fields",
			).
			Values(
				run.ID, i, c.ID, string(c.Type), c.CustomType,
				c.Module, c.File, c.Line, c.Name, string(fields),
			).
			RunWith(tx).
			ExecContext(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to insert component %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	return run.ID, nil
}

// Runs lists recorded runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := sq.Select("run_id", "started_at", "module_count", "file_count", "component_count", "duration_ms").
		From("runs").
		OrderBy("started_at DESC", "rowid DESC").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// LatestRun returns the most recent run, or ErrNoRuns.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	runs, err := s.Runs(ctx)
	if err != nil {
		return Run{}, err
	}
	if len(runs) == 0 {
		return Run{}, ErrNoRuns
	}
	return runs[0], nil
}

// LoadComponents returns the components of runID in their recorded order.
func (s *Store) LoadComponents(ctx context.Context, runID string) ([]component.Component, error) {
	var exists int
	err := sq.Select("COUNT(*)").
		From("runs").
		Where(sq.Eq{"run_id": runID}).
		RunWith(s.db).
		QueryRowContext(ctx).
		Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to query run %s: %w", runID, err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	rows, err := sq.Select("component_id", "type", "custom_type", "module", "file_path", "line", "name", "fields").
		From("components").
		Where(sq.Eq{"run_id": runID}).
		OrderBy("seq").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query components: %w", err)
	}
	defer rows.Close()

	components := []component.Component{}
	for rows.Next() {
		c, err := scanComponent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan component: %w", err)
		}
		components = append(components, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating components: %w", err)
	}
	return components, nil
}

// DeleteRun removes runID and its components.
func (s *Store) DeleteRun(ctx context.Context, runID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := sq.Delete("components").Where(sq.Eq{"run_id": runID}).RunWith(tx).ExecContext(ctx); err != nil {
		return fmt.Errorf("failed to delete components of run %s: %w", runID, err)
	}
	res, err := sq.Delete("runs").Where(sq.Eq{"run_id": runID}).RunWith(tx).ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete run %s: %w", runID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return tx.Commit()
}

func scanRun(rows *sql.Rows) (Run, error) {
	var (
		run        Run
		startedAt  string
		durationMs int64
	)
	if err := rows.Scan(&run.ID, &startedAt, &run.Modules, &run.Files, &run.Components, &durationMs); err != nil {
		return Run{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return Run{}, fmt.Errorf("invalid started_at %q: %w", startedAt, err)
	}
	run.StartedAt = t
	run.Duration = time.Duration(durationMs) * time.Millisecond
	return run, nil
}

func scanComponent(rows *sql.Rows) (component.Component, error) {
	var (
		c       component.Component
		typ     string
		rawJSON string
	)
	if err := rows.Scan(&c.ID, &typ, &c.CustomType, &c.Module, &c.File, &c.Line, &c.Name, &rawJSON); err != nil {
		return c, err
	}
	c.Type = rules.ComponentType(typ)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(rawJSON), &raw); err != nil {
		return c, fmt.Errorf("invalid fields of %s: %w", c.ID, err)
	}
	c.Fields = make(map[string]extract.Value, len(raw))
	for name, data := range raw {
		v, err := extract.ParseValue(data)
		if err != nil {
			return c, fmt.Errorf("invalid field %q of %s: %w", name, c.ID, err)
		}
		c.Fields[name] = v
	}
	return c, nil
}
