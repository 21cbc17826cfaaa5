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

// UpsertProject inserts a project or, when one already exists at the same
// path, re-attaches to it: the existing uuid, creation time, and favorite/pin
// flags are preserved and only name and last-opened are refreshed.
func (s *Store) UpsertProject(p models.Project) (models.Project, error) {
	existing, err := s.ProjectByPath(p.Path)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return models.Project{}, err
	}

	if err == nil {
		existing.Name = p.Name
		existing.LastOpenedAt = p.LastOpenedAt
		_, execErr := s.conn.Exec(`
			UPDATE projects SET name = ?, last_opened_at = ? WHERE uuid = ?`,
			existing.Name, nullTime(existing.LastOpenedAt), existing.UUID)
		if execErr != nil {
			return models.Project{}, fmt.Errorf("store: update project: %w", execErr)
		}
		return existing, nil
	}

	tagsJSON, _ := json.Marshal(p.Tags)
	_, err = s.conn.Exec(`
		INSERT INTO projects (uuid, name, path, is_favorite, is_pinned, tags, category, created_at, last_opened_at, document_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.UUID, p.Name, p.Path, p.IsFavorite, p.IsPinned, string(tagsJSON),
		nullString(p.Category), p.CreatedAt, nullTime(p.LastOpenedAt), p.DocumentCount)
	if err != nil {
		return models.Project{}, fmt.Errorf("store: insert project: %w", err)
	}
	return p, nil
}

// DeleteProject removes a project; documents and state rows cascade.
func (s *Store) DeleteProject(uuid string) error {
	if _, err := s.conn.Exec(`DELETE FROM projects WHERE uuid = ?`, uuid); err != nil {
		return fmt.Errorf("store: delete project: %w", err)
	}
	return nil
}

// ProjectByPath fetches a project by its filesystem path.
func (s *Store) ProjectByPath(path string) (models.Project, error) {
	return s.fetchProject(`WHERE path = ?`, path)
}

// ProjectByUUID fetches a project by its stable id.
func (s *Store) ProjectByUUID(uuid string) (models.Project, error) {
	return s.fetchProject(`WHERE uuid = ?`, uuid)
}

// Projects returns every project, most recently opened first, then by name.
func (s *Store) Projects() ([]models.Project, error) {
	return s.fetchProjects(`ORDER BY last_opened_at DESC, name ASC`)
}

// RecentProjects returns the most recently opened projects, newest first.
func (s *Store) RecentProjects(limit int) ([]models.Project, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.fetchProjects(`WHERE last_opened_at IS NOT NULL ORDER BY last_opened_at DESC LIMIT ?`, limit)
}

// ToggleFavorite flips the favorite flag for a project.
func (s *Store) ToggleFavorite(uuid string) error {
	if _, err := s.conn.Exec(`UPDATE projects SET is_favorite = NOT is_favorite WHERE uuid = ?`, uuid); err != nil {
		return fmt.Errorf("store: toggle favorite: %w", err)
	}
	return nil
}

// TogglePin flips the pinned flag for a project.
func (s *Store) TogglePin(uuid string) error {
	if _, err := s.conn.Exec(`UPDATE projects SET is_pinned = NOT is_pinned WHERE uuid = ?`, uuid); err != nil {
		return fmt.Errorf("store: toggle pin: %w", err)
	}
	return nil
}

// TouchLastOpened stamps the project's last-opened time.
func (s *Store) TouchLastOpened(uuid string, at time.Time) error {
	if _, err := s.conn.Exec(`UPDATE projects SET last_opened_at = ? WHERE uuid = ?`, at, uuid); err != nil {
		return fmt.Errorf("store: touch last opened: %w", err)
	}
	return nil
}

// SetDocumentCount updates the cached document count on a project record.
func (s *Store) SetDocumentCount(uuid string, count int) error {
	if _, err := s.conn.Exec(`UPDATE projects SET document_count = ? WHERE uuid = ?`, count, uuid); err != nil {
		return fmt.Errorf("store: set document count: %w", err)
	}
	return nil
}

const projectColumns = `uuid, name, path, is_favorite, is_pinned, tags, category, created_at, last_opened_at, document_count`

func (s *Store) fetchProject(where string, args ...any) (models.Project, error) {
	row := s.conn.QueryRow(`SELECT `+projectColumns+` FROM projects `+where, args...)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, apperr.ErrNotFound
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("store: fetch project: %w", err)
	}
	return p, nil
}

func (s *Store) fetchProjects(tail string, args ...any) ([]models.Project, error) {
	rows, err := s.conn.Query(`SELECT `+projectColumns+` FROM projects `+tail, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list projects: %w", err)
	}
	defer rows.Close()

	var out []models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(r rowScanner) (models.Project, error) {
	var p models.Project
	var tagsJSON string
	var category sql.NullString
	var lastOpened sql.NullTime
	err := r.Scan(&p.UUID, &p.Name, &p.Path, &p.IsFavorite, &p.IsPinned,
		&tagsJSON, &category, &p.CreatedAt, &lastOpened, &p.DocumentCount)
	if err != nil {
		return models.Project{}, err
	}
	_ = json.Unmarshal([]byte(tagsJSON), &p.Tags)
	p.Category = category.String
	if lastOpened.Valid {
		t := lastOpened.Time
		p.LastOpenedAt = &t
	}
	return p, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
