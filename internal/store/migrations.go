package store

import (
	"database/sql"
	"fmt"
)

// migration is one named, forward-only schema step. Applied migrations are
// recorded in schema_migrations and never run twice.
type migration struct {
	name string
	sql  string
}

var migrations = []migration{
	{
		name: "v1_initial_schema",
		sql: `
CREATE TABLE IF NOT EXISTS projects (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	uuid           TEXT NOT NULL UNIQUE,
	name           TEXT NOT NULL,
	path           TEXT NOT NULL UNIQUE,
	is_favorite    INTEGER NOT NULL DEFAULT 0,
	is_pinned      INTEGER NOT NULL DEFAULT 0,
	created_at     DATETIME NOT NULL,
	last_opened_at DATETIME,
	document_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS documents (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	uuid             TEXT NOT NULL UNIQUE,
	project_id       INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	title            TEXT NOT NULL,
	path             TEXT NOT NULL,
	relative_path    TEXT NOT NULL,
	content          TEXT NOT NULL DEFAULT '',
	headings         TEXT NOT NULL DEFAULT '',
	file_size        INTEGER NOT NULL DEFAULT 0,
	last_modified    DATETIME NOT NULL,
	frontmatter_json TEXT
);

CREATE INDEX IF NOT EXISTS idx_documents_project ON documents(project_id);
CREATE INDEX IF NOT EXISTS idx_documents_path ON documents(path);

CREATE TABLE IF NOT EXISTS project_state (
	id                     INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id             INTEGER NOT NULL UNIQUE REFERENCES projects(id) ON DELETE CASCADE,
	last_document_path     TEXT,
	sidebar_expansion_json TEXT,
	scroll_position_json   TEXT,
	updated_at             DATETIME NOT NULL
);
`,
	},
	{
		name: "v2_project_tags",
		sql: `
ALTER TABLE projects ADD COLUMN tags TEXT NOT NULL DEFAULT '[]';
ALTER TABLE projects ADD COLUMN category TEXT;
`,
	},
	{
		// content holds the frontmatter-stripped body feeding the full-text
		// index; raw_content keeps the file verbatim so reads round-trip.
		name: "v3_document_raw_content",
		sql: `
ALTER TABLE documents ADD COLUMN raw_content TEXT NOT NULL DEFAULT '';
`,
	},
}

// migrate applies every pending migration inside its own transaction.
func migrate(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name       TEXT PRIMARY KEY,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for _, m := range migrations {
		var n int
		if err := conn.QueryRow(`SELECT count(*) FROM schema_migrations WHERE name = ?`, m.name).Scan(&n); err != nil {
			return fmt.Errorf("check %s: %w", m.name, err)
		}
		if n > 0 {
			continue
		}

		tx, err := conn.Begin()
		if err != nil {
			return fmt.Errorf("begin %s: %w", m.name, err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("apply %s: %w", m.name, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (name) VALUES (?)`, m.name); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("record %s: %w", m.name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", m.name, err)
		}
	}
	return nil
}
