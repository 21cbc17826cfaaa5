package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/halvard/lectern/internal/apperr"
)

// ProjectState is the persisted per-project view state, read once when a
// project is reopened. The sidebar and scroll blobs are opaque JSON owned
// by the caller.
type ProjectState struct {
	LastDocumentPath     string
	SidebarExpansionJSON string
	ScrollPositionJSON   string
	UpdatedAt            time.Time
}

// SaveProjectState upserts the per-project view state snapshot.
func (s *Store) SaveProjectState(projectUUID string, st ProjectState) error {
	res, err := s.conn.Exec(`
		UPDATE project_state
		SET last_document_path = ?, sidebar_expansion_json = ?, scroll_position_json = ?, updated_at = ?
		WHERE project_id = (SELECT id FROM projects WHERE uuid = ?)`,
		nullString(st.LastDocumentPath), nullString(st.SidebarExpansionJSON),
		nullString(st.ScrollPositionJSON), time.Now(), projectUUID)
	if err != nil {
		return fmt.Errorf("store: save project state: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	_, err = s.conn.Exec(`
		INSERT INTO project_state (project_id, last_document_path, sidebar_expansion_json, scroll_position_json, updated_at)
		VALUES ((SELECT id FROM projects WHERE uuid = ?), ?, ?, ?, ?)`,
		projectUUID, nullString(st.LastDocumentPath), nullString(st.SidebarExpansionJSON),
		nullString(st.ScrollPositionJSON), time.Now())
	if err != nil {
		return fmt.Errorf("store: insert project state: %w", err)
	}
	return nil
}

// LoadProjectState fetches the saved state for a project, or ErrNotFound.
func (s *Store) LoadProjectState(projectUUID string) (ProjectState, error) {
	var st ProjectState
	var lastDoc, sidebar, scroll sql.NullString
	err := s.conn.QueryRow(`
		SELECT last_document_path, sidebar_expansion_json, scroll_position_json, updated_at
		FROM project_state
		WHERE project_id = (SELECT id FROM projects WHERE uuid = ?)`, projectUUID).
		Scan(&lastDoc, &sidebar, &scroll, &st.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ProjectState{}, apperr.ErrNotFound
	}
	if err != nil {
		return ProjectState{}, fmt.Errorf("store: load project state: %w", err)
	}
	st.LastDocumentPath = lastDoc.String
	st.SidebarExpansionJSON = sidebar.String
	st.ScrollPositionJSON = scroll.String
	return st, nil
}
