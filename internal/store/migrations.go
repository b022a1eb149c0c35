package store

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"linetally/internal/logging"
)

// CurrentSchemaVersion is stored in PRAGMA user_version.
//
//	v1: snapshots and snapshot_languages
//	v2: snapshots.label
const CurrentSchemaVersion = 2

const baseSchema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id         TEXT PRIMARY KEY,
	root       TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	files      INTEGER NOT NULL,
	blank      INTEGER NOT NULL,
	comment    INTEGER NOT NULL,
	code       INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_root_created ON snapshots(root, created_at);

CREATE TABLE IF NOT EXISTS snapshot_languages (
	snapshot_id TEXT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
	language    TEXT NOT NULL,
	files       INTEGER NOT NULL,
	blank       INTEGER NOT NULL,
	comment     INTEGER NOT NULL,
	code        INTEGER NOT NULL,
	PRIMARY KEY (snapshot_id, language)
);
`

// Migration adds a column that later schema versions introduced.
type Migration struct {
	Version int
	Table   string
	Column  string
	Def     string
}

var pendingMigrations = []Migration{
	{Version: 2, Table: "snapshots", Column: "label", Def: "TEXT NOT NULL DEFAULT ''"},
}

// migrate creates the base tables and applies column migrations newer than
// the stored version.
func migrate(ctx context.Context, db *sql.DB) error {
	log := logging.Get(logging.CategoryStore)

	if _, err := db.ExecContext(ctx, baseSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	version, err := schemaVersion(ctx, db)
	if err != nil {
		return err
	}
	if version > CurrentSchemaVersion {
		return fmt.Errorf("database schema v%d is newer than supported v%d", version, CurrentSchemaVersion)
	}

	applied := 0
	for _, m := range pendingMigrations {
		if m.Version <= version {
			continue
		}
		exists, err := columnExists(ctx, db, m.Table, m.Column)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.Table, m.Column, m.Def)
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("migration %s.%s failed: %w", m.Table, m.Column, err)
		}
		log.Info("migration applied", zap.String("table", m.Table), zap.String("column", m.Column))
		applied++
	}

	if version != CurrentSchemaVersion {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", CurrentSchemaVersion)); err != nil {
			return fmt.Errorf("failed to set schema version: %w", err)
		}
	}
	log.Debug("schema up to date", zap.Int("from", version), zap.Int("to", CurrentSchemaVersion), zap.Int("applied", applied))
	return nil
}

func schemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return v, nil
}

// columnExists checks a column with PRAGMA table_info.
func columnExists(ctx context.Context, db *sql.DB, table, column string) (bool, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("failed to inspect %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notnull int
			dflt    any
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
