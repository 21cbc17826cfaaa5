package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/halvard/lectern/internal/apperr"
	"github.com/halvard/lectern/internal/models"
)

// ReplaceDocuments re-indexes a whole project with replace-all semantics:
// every existing row for the project is deleted and the full current set is
// inserted in one transaction. The full-text index follows via triggers.
func (s *Store) ReplaceDocuments(projectUUID string, docs []models.Document) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM documents WHERE project_id = (SELECT id FROM projects WHERE uuid = ?)`, projectUUID); err != nil {
		return fmt.Errorf("store: clear documents: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO documents (uuid, project_id, title, path, relative_path, content, raw_content, headings, file_size, last_modified, frontmatter_json)
		VALUES (?, (SELECT id FROM projects WHERE uuid = ?), ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, d := range docs {
		if _, err := stmt.Exec(d.UUID, projectUUID, d.DisplayTitle(), d.Path, d.RelativePath,
			d.Body, d.Content, d.Headings, d.FileSize, d.LastModified, frontmatterJSON(d.Frontmatter)); err != nil {
			return fmt.Errorf("store: insert document %s: %w", d.RelativePath, err)
		}
	}

	return tx.Commit()
}

// ReindexDocument updates the row matching the document's absolute path in
// place, or inserts a new row when none exists. Used after a targeted
// file-change event.
func (s *Store) ReindexDocument(projectUUID string, d models.Document) error {
	res, err := s.conn.Exec(`
		UPDATE documents
		SET title = ?, content = ?, raw_content = ?, headings = ?, file_size = ?, last_modified = ?, frontmatter_json = ?
		WHERE path = ?`,
		d.DisplayTitle(), d.Body, d.Content, d.Headings, d.FileSize, d.LastModified,
		frontmatterJSON(d.Frontmatter), d.Path)
	if err != nil {
		return fmt.Errorf("store: reindex document: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	_, err = s.conn.Exec(`
		INSERT INTO documents (uuid, project_id, title, path, relative_path, content, raw_content, headings, file_size, last_modified, frontmatter_json)
		VALUES (?, (SELECT id FROM projects WHERE uuid = ?), ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.UUID, projectUUID, d.DisplayTitle(), d.Path, d.RelativePath,
		d.Body, d.Content, d.Headings, d.FileSize, d.LastModified, frontmatterJSON(d.Frontmatter))
	if err != nil {
		return fmt.Errorf("store: insert document: %w", err)
	}
	return nil
}

// RemoveDocument deletes the row for one absolute path.
func (s *Store) RemoveDocument(path string) error {
	if _, err := s.conn.Exec(`DELETE FROM documents WHERE path = ?`, path); err != nil {
		return fmt.Errorf("store: remove document: %w", err)
	}
	return nil
}

// DocumentsByProject returns a project's documents ordered by relative path.
func (s *Store) DocumentsByProject(projectUUID string) ([]models.Document, error) {
	rows, err := s.conn.Query(`
		SELECT `+documentColumns+` FROM documents
		WHERE project_id = (SELECT id FROM projects WHERE uuid = ?)
		ORDER BY relative_path ASC`, projectUUID)
	if err != nil {
		return nil, fmt.Errorf("store: documents by project: %w", err)
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// DocumentByPath fetches one document by absolute path.
func (s *Store) DocumentByPath(path string) (models.Document, error) {
	return s.fetchDocument(`WHERE path = ?`, path)
}

// DocumentByRelativePath fetches one document by project and root-relative path.
func (s *Store) DocumentByRelativePath(projectUUID, relativePath string) (models.Document, error) {
	return s.fetchDocument(
		`WHERE project_id = (SELECT id FROM projects WHERE uuid = ?) AND relative_path = ?`,
		projectUUID, relativePath)
}

// DocumentCount returns the number of indexed documents for a project.
func (s *Store) DocumentCount(projectUUID string) (int, error) {
	var n int
	err := s.conn.QueryRow(`
		SELECT count(*) FROM documents
		WHERE project_id = (SELECT id FROM projects WHERE uuid = ?)`, projectUUID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: document count: %w", err)
	}
	return n, nil
}

// NeedsReindex reports whether the stored row for path is missing or stale
// relative to the given file metadata.
func (s *Store) NeedsReindex(path string, lastModified time.Time, fileSize int64) (bool, error) {
	var storedSize int64
	var storedMod time.Time
	err := s.conn.QueryRow(`SELECT file_size, last_modified FROM documents WHERE path = ?`, path).
		Scan(&storedSize, &storedMod)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: needs reindex: %w", err)
	}
	return storedSize != fileSize || !storedMod.Equal(lastModified), nil
}

const documentColumns = `uuid, title, path, relative_path, content, raw_content, headings, file_size, last_modified, frontmatter_json`

func (s *Store) fetchDocument(where string, args ...any) (models.Document, error) {
	row := s.conn.QueryRow(`SELECT `+documentColumns+` FROM documents `+where, args...)
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Document{}, apperr.ErrNotFound
	}
	if err != nil {
		return models.Document{}, fmt.Errorf("store: fetch document: %w", err)
	}
	return d, nil
}

func scanDocument(r rowScanner) (models.Document, error) {
	var d models.Document
	var fmJSON sql.NullString
	err := r.Scan(&d.UUID, &d.Title, &d.Path, &d.RelativePath, &d.Body, &d.Content,
		&d.Headings, &d.FileSize, &d.LastModified, &fmJSON)
	if err != nil {
		return models.Document{}, err
	}
	if fmJSON.Valid {
		_ = json.Unmarshal([]byte(fmJSON.String), &d.Frontmatter)
	}
	return d, nil
}

func frontmatterJSON(fm map[string]string) any {
	if len(fm) == 0 {
		return nil
	}
	data, err := json.Marshal(fm)
	if err != nil {
		return nil
	}
	return string(data)
}
