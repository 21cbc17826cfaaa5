//go:build sqlite_fts5

package store

import (
	"database/sql"
	"fmt"
	"log/slog"
)

// initFTS creates the external-content FTS5 table over documents and the
// triggers that keep it synchronized inside every write transaction.
func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
			title,
			headings,
			content,
			content = 'documents',
			content_rowid = 'id',
			tokenize = 'unicode61 remove_diacritics 2'
		);

		CREATE TRIGGER IF NOT EXISTS documents_fts_ai AFTER INSERT ON documents BEGIN
			INSERT INTO documents_fts (rowid, title, headings, content)
			VALUES (new.id, new.title, new.headings, new.content);
		END;

		CREATE TRIGGER IF NOT EXISTS documents_fts_ad AFTER DELETE ON documents BEGIN
			INSERT INTO documents_fts (documents_fts, rowid, title, headings, content)
			VALUES ('delete', old.id, old.title, old.headings, old.content);
		END;

		CREATE TRIGGER IF NOT EXISTS documents_fts_au AFTER UPDATE ON documents BEGIN
			INSERT INTO documents_fts (documents_fts, rowid, title, headings, content)
			VALUES ('delete', old.id, old.title, old.headings, old.content);
			INSERT INTO documents_fts (rowid, title, headings, content)
			VALUES (new.id, new.title, new.headings, new.content);
		END;
	`)
	return err
}

// Search runs a full-text query over title, headings, and content with bm25
// weights favoring title over headings over body. Results come back best
// match first with a highlighted snippet. projectUUID narrows the search to
// one project; empty searches everything.
func (s *Store) Search(query, projectUUID string) ([]SearchResult, error) {
	pattern := buildMatchPattern(query)
	if pattern == "" {
		return nil, nil
	}

	rows, err := s.conn.Query(`
		SELECT d.uuid, d.title, d.path,
		       snippet(documents_fts, 2, '<b>', '</b>', '...', 32),
		       bm25(documents_fts, 5.0, 2.0, 1.0) AS rank
		FROM documents_fts
		JOIN documents d ON d.id = documents_fts.rowid
		WHERE documents_fts MATCH ?
		  AND (? = '' OR d.project_id = (SELECT id FROM projects WHERE uuid = ?))
		ORDER BY rank, d.path ASC
		LIMIT ?
	`, pattern, projectUUID, projectUUID, searchLimit)
	if err != nil {
		slog.Warn("store: search failed", slog.String("query", query), slog.String("error", err.Error()))
		return nil, nil
	}
	defer rows.Close()

	return collectResults(rows)
}

// QuickOpen is the jump-by-name variant: title weighted far above headings,
// body nearly ignored, the relative path standing in for the snippet.
func (s *Store) QuickOpen(query, projectUUID string) ([]SearchResult, error) {
	pattern := buildMatchPattern(query)
	if pattern == "" {
		return nil, nil
	}

	rows, err := s.conn.Query(`
		SELECT d.uuid, d.title, d.path, d.relative_path,
		       bm25(documents_fts, 10.0, 3.0, 0.5) AS rank
		FROM documents_fts
		JOIN documents d ON d.id = documents_fts.rowid
		WHERE documents_fts MATCH ?
		  AND (? = '' OR d.project_id = (SELECT id FROM projects WHERE uuid = ?))
		ORDER BY rank, d.path ASC
		LIMIT ?
	`, pattern, projectUUID, projectUUID, quickOpenLimit)
	if err != nil {
		slog.Warn("store: quick open failed", slog.String("query", query), slog.String("error", err.Error()))
		return nil, nil
	}
	defer rows.Close()

	return collectResults(rows)
}

func collectResults(rows *sql.Rows) ([]SearchResult, error) {
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.DocumentUUID, &r.Title, &r.Path, &r.Snippet, &r.Rank); err != nil {
			return nil, fmt.Errorf("store: scan result: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
