package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"

	"github.com/Masterminds/semver/v3"
)

const (
	// CurrentSchemaVersion is the version a fresh database is created at
	CurrentSchemaVersion = "1.2.0"
)

// Migration represents one additive schema step
type Migration struct {
	Version string
	Up      string
}

// AllMigrations contains all database migrations in ascending order.
// Steps only add structures and must tolerate already being applied.
var AllMigrations = []Migration{
	{Version: "1.0.0", Up: schemaBase},
	{Version: "1.1.0", Up: schemaEntityFTS + rebuildEntityFTS},
	{Version: "1.2.0", Up: schemaLookupIndexes},
}

// targetSchema is executed directly on a fresh database
const targetSchema = schemaBase + schemaEntityFTS + schemaLookupIndexes

const schemaBase = `
CREATE TABLE IF NOT EXISTS schema_version (
    version TEXT PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS notes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL UNIQUE,
    subsystem TEXT NOT NULL,
    category TEXT NOT NULL,
    summary TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL DEFAULT '',
    source_files TEXT NOT NULL DEFAULT '[]',
    tags TEXT NOT NULL DEFAULT '[]',
    related_entries TEXT NOT NULL DEFAULT '[]',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notes_subsystem ON notes(subsystem);
CREATE INDEX IF NOT EXISTS idx_notes_category ON notes(category);
CREATE INDEX IF NOT EXISTS idx_notes_updated ON notes(updated_at);

CREATE TABLE IF NOT EXISTS types (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    kind TEXT NOT NULL,
    parent_type TEXT NOT NULL DEFAULT '',
    outer_type TEXT NOT NULL DEFAULT '',
    subsystem TEXT NOT NULL,
    module TEXT NOT NULL DEFAULT '',
    header_path TEXT NOT NULL DEFAULT '',
    specifiers TEXT NOT NULL DEFAULT '',
    doc_comment TEXT NOT NULL DEFAULT '',
    summary TEXT NOT NULL DEFAULT '',
    inheritance_chain TEXT NOT NULL DEFAULT '[]',
    known_children TEXT NOT NULL DEFAULT '[]',
    interfaces TEXT NOT NULL DEFAULT '[]',
    related_types TEXT NOT NULL DEFAULT '[]',
    key_methods TEXT NOT NULL DEFAULT '[]',
    key_properties TEXT NOT NULL DEFAULT '[]',
    key_delegates TEXT NOT NULL DEFAULT '[]',
    lifecycle_order TEXT NOT NULL DEFAULT '',
    depth TEXT NOT NULL DEFAULT 'stub',
    note_id INTEGER REFERENCES notes(id) ON DELETE SET NULL,
    source_line_count INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS callables (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    qualified_name TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    owner_type TEXT NOT NULL DEFAULT '',
    subsystem TEXT NOT NULL,
    return_type TEXT NOT NULL DEFAULT 'void',
    parameters TEXT NOT NULL DEFAULT '[]',
    signature TEXT NOT NULL DEFAULT '',
    specifiers TEXT NOT NULL DEFAULT '',
    is_virtual INTEGER NOT NULL DEFAULT 0,
    is_const INTEGER NOT NULL DEFAULT 0,
    is_static INTEGER NOT NULL DEFAULT 0,
    is_blueprint_callable INTEGER NOT NULL DEFAULT 0,
    is_blueprint_event INTEGER NOT NULL DEFAULT 0,
    is_rpc INTEGER NOT NULL DEFAULT 0,
    rpc_type TEXT NOT NULL DEFAULT '',
    doc_comment TEXT NOT NULL DEFAULT '',
    summary TEXT NOT NULL DEFAULT '',
    call_context TEXT NOT NULL DEFAULT '',
    call_order TEXT NOT NULL DEFAULT '',
    calls_into TEXT NOT NULL DEFAULT '[]',
    called_by TEXT NOT NULL DEFAULT '[]',
    note_id INTEGER REFERENCES notes(id) ON DELETE SET NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS fields (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    qualified_name TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    owner_type TEXT NOT NULL,
    subsystem TEXT NOT NULL,
    declared_type TEXT NOT NULL,
    default_value TEXT NOT NULL DEFAULT '',
    specifiers TEXT NOT NULL DEFAULT '',
    is_replicated INTEGER NOT NULL DEFAULT 0,
    replicated_using TEXT NOT NULL DEFAULT '',
    is_blueprint_visible INTEGER NOT NULL DEFAULT 0,
    is_edit_anywhere INTEGER NOT NULL DEFAULT 0,
    is_config INTEGER NOT NULL DEFAULT 0,
    doc_comment TEXT NOT NULL DEFAULT '',
    summary TEXT NOT NULL DEFAULT '',
    note_id INTEGER REFERENCES notes(id) ON DELETE SET NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS coverage_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    file_path TEXT NOT NULL,
    module TEXT NOT NULL DEFAULT '',
    subsystem TEXT NOT NULL DEFAULT '',
    depth TEXT NOT NULL,
    types_found INTEGER NOT NULL DEFAULT 0,
    callables_found INTEGER NOT NULL DEFAULT 0,
    fields_found INTEGER NOT NULL DEFAULT 0,
    notes TEXT NOT NULL DEFAULT '',
    analyzed_at TEXT NOT NULL
);

CREATE VIRTUAL TABLE IF NOT EXISTS notes_fts USING fts5(
    title,
    summary,
    content,
    tokenize='porter unicode61'
);
`

const schemaEntityFTS = `
CREATE VIRTUAL TABLE IF NOT EXISTS types_fts USING fts5(
    name,
    summary,
    doc_comment,
    specifiers,
    lifecycle_order,
    tokenize='porter unicode61'
);

CREATE VIRTUAL TABLE IF NOT EXISTS callables_fts USING fts5(
    qualified_name,
    summary,
    doc_comment,
    specifiers,
    signature,
    tokenize='porter unicode61'
);

CREATE VIRTUAL TABLE IF NOT EXISTS fields_fts USING fts5(
    qualified_name,
    summary,
    doc_comment,
    specifiers,
    declared_type,
    tokenize='porter unicode61'
);
`

// rebuildEntityFTS indexes entity rows written before the entity indexes
// existed. Rows already indexed are skipped.
const rebuildEntityFTS = `
INSERT INTO types_fts (rowid, name, summary, doc_comment, specifiers, lifecycle_order)
SELECT id, name, summary, doc_comment, specifiers, lifecycle_order FROM types
WHERE id NOT IN (SELECT rowid FROM types_fts);

INSERT INTO callables_fts (rowid, qualified_name, summary, doc_comment, specifiers, signature)
SELECT id, qualified_name, summary, doc_comment, specifiers, signature FROM callables
WHERE id NOT IN (SELECT rowid FROM callables_fts);

INSERT INTO fields_fts (rowid, qualified_name, summary, doc_comment, specifiers, declared_type)
SELECT id, qualified_name, summary, doc_comment, specifiers, declared_type FROM fields
WHERE id NOT IN (SELECT rowid FROM fields_fts);
`

const schemaLookupIndexes = `
CREATE INDEX IF NOT EXISTS idx_types_parent ON types(parent_type);
CREATE INDEX IF NOT EXISTS idx_types_depth ON types(depth);
CREATE INDEX IF NOT EXISTS idx_types_note ON types(note_id);
CREATE INDEX IF NOT EXISTS idx_callables_owner ON callables(owner_type);
CREATE INDEX IF NOT EXISTS idx_callables_name ON callables(name);
CREATE INDEX IF NOT EXISTS idx_callables_note ON callables(note_id);
CREATE INDEX IF NOT EXISTS idx_fields_owner ON fields(owner_type);
CREATE INDEX IF NOT EXISTS idx_fields_note ON fields(note_id);
CREATE INDEX IF NOT EXISTS idx_coverage_module ON coverage_log(module);
CREATE INDEX IF NOT EXISTS idx_coverage_subsystem ON coverage_log(subsystem);
`

// ApplyMigrations brings db up to CurrentSchemaVersion. A fresh database is
// created at the target schema in one step; an older one runs each pending
// step in its own transaction together with its version row.
func ApplyMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	var tableName string
	err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableName)
	if err == sql.ErrNoRows {
		if err := runStep(ctx, db, CurrentSchemaVersion, targetSchema); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
		logger.Info("initialized database schema", "version", CurrentSchemaVersion)
		return nil
	} else if err != nil {
		return fmt.Errorf("failed to check schema_version table: %w", err)
	}

	currentVersion, err := SchemaVersion(ctx, db)
	if err != nil {
		return err
	}

	pending, err := pendingMigrations(currentVersion)
	if err != nil {
		return err
	}
	for _, migration := range pending {
		if err := runStep(ctx, db, migration.Version, migration.Up); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", migration.Version, err)
		}
		logger.Info("applied migration", "version", migration.Version)
	}
	return nil
}

// SchemaVersion returns the highest version recorded in schema_version,
// or 0.0.0 when nothing has been recorded yet.
func SchemaVersion(ctx context.Context, db *sql.DB) (*semver.Version, error) {
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_version")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_version: %w", err)
	}
	defer func() { _ = rows.Close() }()

	current := semver.MustParse("0.0.0")
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan schema version: %w", err)
		}
		v, err := semver.NewVersion(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid schema version %s: %w", raw, err)
		}
		if v.GreaterThan(current) {
			current = v
		}
	}
	return current, rows.Err()
}

// pendingMigrations returns the steps newer than current, oldest first
func pendingMigrations(current *semver.Version) ([]Migration, error) {
	type versioned struct {
		v *semver.Version
		m Migration
	}
	var pending []versioned
	for _, migration := range AllMigrations {
		v, err := semver.NewVersion(migration.Version)
		if err != nil {
			return nil, fmt.Errorf("invalid migration version %s: %w", migration.Version, err)
		}
		if current.LessThan(v) {
			pending = append(pending, versioned{v: v, m: migration})
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].v.LessThan(pending[j].v) })

	out := make([]Migration, len(pending))
	for i, p := range pending {
		out[i] = p.m
	}
	return out, nil
}

func runStep(ctx context.Context, db *sql.DB, version, ddl string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO schema_version (version) VALUES (?)", version); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to record version %s: %w", version, err)
	}
	return tx.Commit()
}
