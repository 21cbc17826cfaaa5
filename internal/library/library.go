// Package library manages the registry of known projects: the list shown
// before any project is open, with favorites, pins and recency.
package library

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/halvard/lectern/internal/models"
	"github.com/halvard/lectern/internal/store"
)

// Library is a thin service over the project rows in the store. It owns no
// mutable state of its own.
type Library struct {
	store  *store.Store
	logger *slog.Logger
}

// New creates a project registry backed by the given store.
func New(st *store.Store, logger *slog.Logger) *Library {
	return &Library{store: st, logger: logger}
}

// Projects lists all registered projects, most recently opened first.
func (l *Library) Projects() ([]models.Project, error) {
	return l.store.Projects()
}

// Recent lists the most recently opened projects, capped at limit.
func (l *Library) Recent(limit int) ([]models.Project, error) {
	return l.store.RecentProjects(limit)
}

// Favorites lists favorite projects in the usual ordering.
func (l *Library) Favorites() ([]models.Project, error) {
	all, err := l.store.Projects()
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, p := range all {
		if p.IsFavorite {
			out = append(out, p)
		}
	}
	return out, nil
}

// Pinned lists pinned projects in the usual ordering.
func (l *Library) Pinned() ([]models.Project, error) {
	all, err := l.store.Projects()
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, p := range all {
		if p.IsPinned {
			out = append(out, p)
		}
	}
	return out, nil
}

// ToggleFavorite flips the favorite flag and returns the updated project.
func (l *Library) ToggleFavorite(uuid string) (models.Project, error) {
	if err := l.store.ToggleFavorite(uuid); err != nil {
		return models.Project{}, fmt.Errorf("library: toggle favorite: %w", err)
	}
	return l.store.ProjectByUUID(uuid)
}

// TogglePin flips the pinned flag and returns the updated project.
func (l *Library) TogglePin(uuid string) (models.Project, error) {
	if err := l.store.TogglePin(uuid); err != nil {
		return models.Project{}, fmt.Errorf("library: toggle pin: %w", err)
	}
	return l.store.ProjectByUUID(uuid)
}

// Remove deletes a project and everything indexed under it.
func (l *Library) Remove(uuid string) error {
	return l.store.DeleteProject(uuid)
}

// Resolve fetches a project for opening. A project whose directory no
// longer exists on disk is deleted from the registry and reported as an
// error so the caller can refresh its list.
func (l *Library) Resolve(uuid string) (models.Project, error) {
	p, err := l.store.ProjectByUUID(uuid)
	if err != nil {
		return models.Project{}, err
	}

	info, statErr := os.Stat(p.Path)
	if statErr != nil || !info.IsDir() {
		l.logger.Info("library: dropping stale project",
			slog.String("uuid", p.UUID),
			slog.String("path", p.Path))
		if delErr := l.store.DeleteProject(p.UUID); delErr != nil {
			l.logger.Warn("library: stale project delete failed",
				slog.String("error", delErr.Error()))
		}
		return models.Project{}, fmt.Errorf("library: project path gone: %s", p.Path)
	}
	return p, nil
}
