package session

import (
	"log/slog"

	"github.com/halvard/lectern/internal/scanner"
	"github.com/halvard/lectern/internal/watcher"
)

// reconcile applies one filesystem change to the session state. It runs on
// the session sequence, so events apply strictly in arrival order and a
// rescan triggered by one event completes before the next is handled.
func (s *Session) reconcile(ev watcher.Event) {
	if s.project == nil {
		return
	}

	switch ev.Kind {
	case watcher.Modified:
		s.handleModified(ev.Path)

	case watcher.Created, watcher.Renamed:
		// Tree position depends on sibling ordering and folder membership,
		// which a targeted patch cannot reproduce. Rescan instead.
		s.rescan()

	case watcher.Deleted:
		s.handleDeleted(ev.Path)

	case watcher.RescanNeeded:
		s.rescan()
	}
}

// handleModified reloads the selected document when it was the one touched
// and pushes a single-document reindex for the path either way.
func (s *Session) handleModified(path string) {
	doc, ok := scanner.LoadDocument(path, s.project.Path)
	if !ok {
		// File unreadable; keep the last-known-good content.
		s.logger.Warn("session: reload failed, keeping cached content",
			slog.String("path", path))
		return
	}

	if s.selected != nil && s.selected.Path == path {
		if entry := s.documentAt(path); entry != nil {
			*entry = doc
			s.selected = entry
		}
		s.notify(Change{Kind: DocumentReloaded, Path: path})
	}

	// Editors often emit several write events per save; skip the store write
	// when the stored row already matches the file on disk.
	if stale, err := s.store.NeedsReindex(path, doc.LastModified, doc.FileSize); err == nil && !stale {
		return
	}
	if err := s.store.ReindexDocument(s.project.UUID, doc); err != nil {
		s.logger.Warn("session: reindex failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
	}
}

// handleDeleted drops the path from the flat list and selection right away,
// removes its store row, then rescans to repair tree structure since the
// delete may have emptied a folder.
func (s *Session) handleDeleted(path string) {
	wasSelected := s.selected != nil && s.selected.Path == path

	kept := s.documents[:0]
	for _, d := range s.documents {
		if d.Path != path {
			kept = append(kept, d)
		}
	}
	s.documents = kept

	if wasSelected {
		if len(s.documents) > 0 {
			s.setSelected(&s.documents[0])
		} else {
			s.setSelected(nil)
		}
	}

	if err := s.store.RemoveDocument(path); err != nil {
		s.logger.Warn("session: remove document failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
	}

	s.rescan()
}

// rescan rebuilds tree, flat list and index from current disk state,
// preserving the selection by path when it survived the change.
func (s *Session) rescan() {
	selectedPath := ""
	if s.selected != nil {
		selectedPath = s.selected.Path
	}

	result := scanner.Scan(s.project.Path)
	s.tree = result.Tree
	s.documents = result.Documents

	if err := s.store.ReplaceDocuments(s.project.UUID, result.Documents); err != nil {
		s.logger.Warn("session: bulk reindex failed",
			slog.String("project", s.project.UUID),
			slog.String("error", err.Error()))
	}
	if err := s.store.SetDocumentCount(s.project.UUID, len(result.Documents)); err != nil {
		s.logger.Warn("session: document count update failed", slog.String("error", err.Error()))
	}
	s.project.DocumentCount = len(result.Documents)

	if doc := s.documentAt(selectedPath); doc != nil {
		s.selected = doc
	} else {
		s.setSelected(firstDocument(s.tree))
	}

	s.notify(Change{Kind: TreeReplaced})
}
