//go:build !sqlite_fts5

package store

import (
	"database/sql"
	"log/slog"
	"strings"
)

// Without the sqlite_fts5 build tag the full-text index is unavailable and
// search degrades to LIKE matching over the documents table, with a coarse
// title-over-headings-over-body ordering standing in for bm25.
func initFTS(_ *sql.DB) error {
	return nil
}

// Search performs a LIKE-based search (fallback when FTS5 is not compiled in).
func (s *Store) Search(query, projectUUID string) ([]SearchResult, error) {
	return s.likeSearch(query, projectUUID, searchLimit, false)
}

// QuickOpen performs a LIKE-based title/path search with a smaller cap.
func (s *Store) QuickOpen(query, projectUUID string) ([]SearchResult, error) {
	return s.likeSearch(query, projectUUID, quickOpenLimit, true)
}

func (s *Store) likeSearch(query, projectUUID string, limit int, pathSnippet bool) ([]SearchResult, error) {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return nil, nil
	}

	// Placeholders bind in order of appearance: the CASE in the select list
	// comes first, then the per-token filters, then scoping and limit.
	firstLike := "%" + fields[0] + "%"
	args := []any{firstLike, firstLike}
	var where []string
	for _, f := range fields {
		like := "%" + f + "%"
		where = append(where, `(title LIKE ? OR headings LIKE ? OR content LIKE ?)`)
		args = append(args, like, like, like)
	}

	snippetCol := `substr(content, 1, 200)`
	if pathSnippet {
		snippetCol = `relative_path`
	}

	args = append(args, projectUUID, projectUUID, limit)
	rows, err := s.conn.Query(`
		SELECT uuid, title, path, `+snippetCol+`,
		       CASE WHEN title LIKE ? THEN 1.0 WHEN headings LIKE ? THEN 2.0 ELSE 3.0 END AS rank
		FROM documents
		WHERE `+strings.Join(where, " AND ")+`
		  AND (? = '' OR project_id = (SELECT id FROM projects WHERE uuid = ?))
		ORDER BY rank, path ASC
		LIMIT ?
	`, args...)
	if err != nil {
		slog.Warn("store: fallback search failed", slog.String("query", query), slog.String("error", err.Error()))
		return nil, nil
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.DocumentUUID, &r.Title, &r.Path, &r.Snippet, &r.Rank); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
