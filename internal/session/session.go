// Package session owns the mutable state of the currently open project:
// the folder tree, the flat document list and the active selection. It
// orchestrates the scanner, the store and the filesystem watcher, and
// reconciles change events against that state.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/halvard/lectern/internal/apperr"
	"github.com/halvard/lectern/internal/models"
	"github.com/halvard/lectern/internal/scanner"
	"github.com/halvard/lectern/internal/store"
	"github.com/halvard/lectern/internal/watcher"
)

// ChangeKind classifies a state change reported to listeners.
type ChangeKind int

const (
	// ProjectOpened fires after a project's tree and index are ready.
	ProjectOpened ChangeKind = iota
	// TreeReplaced fires after a rescan replaced the tree and flat list.
	TreeReplaced
	// SelectionChanged fires whenever the selected document changes.
	SelectionChanged
	// DocumentReloaded fires when the selected document's content was
	// re-read from disk after a modification.
	DocumentReloaded
)

// Change describes one state transition. Path carries the affected
// document's absolute path where one applies.
type Change struct {
	Kind ChangeKind
	Path string
}

// Listener receives state changes. Listeners run on the session's internal
// sequence and must return quickly without calling back into the Session.
type Listener func(Change)

// Session is the single owner of all mutable project state.
//
// Concurrency model: one internal goroutine owns the tree, flat list and
// selection. Public methods marshal onto that goroutine through a call
// channel and block until applied, so no mutexes are required and all
// mutations, whether user-driven or watcher-driven, apply strictly
// sequentially.
type Session struct {
	store     *store.Store
	source    watcher.Source
	logger    *slog.Logger
	saveDelay time.Duration

	callCh  chan func()
	stopCh  chan struct{}
	stopped chan struct{}

	// Owned by the run loop. Never touched from outside it.
	project     *models.Project
	tree        []models.FolderNode
	documents   []models.Document
	selected    *models.Document
	listeners   []Listener
	watchCancel context.CancelFunc
	events      <-chan watcher.Event
	savePending bool
	armSave     func()
	sidebarJSON string
	scrollJSON  string
}

// Option configures a Session.
type Option func(*Session)

// WithSaveDelay overrides the debounce interval for persisting view state.
func WithSaveDelay(d time.Duration) Option {
	return func(s *Session) { s.saveDelay = d }
}

// New creates a Session and starts its event loop. Close releases it.
func New(st *store.Store, source watcher.Source, logger *slog.Logger, opts ...Option) *Session {
	s := &Session{
		store:     st,
		source:    source,
		logger:    logger,
		saveDelay: 500 * time.Millisecond,
		callCh:    make(chan func()),
		stopCh:    make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.run()
	return s
}

// Close detaches the watcher, flushes pending view state and stops the
// session loop. Safe to call once.
func (s *Session) Close() {
	close(s.stopCh)
	<-s.stopped
}

func (s *Session) run() {
	defer close(s.stopped)

	saveTimer := time.NewTimer(s.saveDelay)
	if !saveTimer.Stop() {
		<-saveTimer.C
	}
	s.armSave = func() {
		if !s.savePending {
			s.savePending = true
			saveTimer.Reset(s.saveDelay)
		}
	}

	for {
		select {
		case <-s.stopCh:
			s.detachWatcher()
			if s.savePending {
				s.persistViewState()
			}
			return

		case fn := <-s.callCh:
			fn()

		case ev, ok := <-s.events:
			if !ok {
				s.events = nil
				continue
			}
			s.reconcile(ev)

		case <-saveTimer.C:
			if s.savePending {
				s.savePending = false
				s.persistViewState()
			}
		}
	}
}

// do executes fn on the session sequence and waits for it.
func (s *Session) do(fn func()) {
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		fn()
	}
	select {
	case s.callCh <- wrapped:
		<-done
	case <-s.stopped:
	}
}

// Subscribe registers a listener for state changes.
func (s *Session) Subscribe(fn Listener) {
	s.do(func() { s.listeners = append(s.listeners, fn) })
}

func (s *Session) notify(c Change) {
	for _, fn := range s.listeners {
		fn(c)
	}
}

// OpenProject registers path in the store, scans and indexes it, attaches
// the filesystem watcher and restores the last-viewed document. Opening a
// project tears down the previous one first.
func (s *Session) OpenProject(ctx context.Context, path string) (models.Project, error) {
	var (
		project models.Project
		err     error
	)
	s.do(func() { project, err = s.openProject(ctx, path) })
	return project, err
}

func (s *Session) openProject(ctx context.Context, path string) (models.Project, error) {
	s.closeProject()

	now := time.Now()
	project, err := s.store.UpsertProject(models.Project{
		UUID:         uuid.NewString(),
		Name:         filepath.Base(path),
		Path:         path,
		Tags:         []string{},
		CreatedAt:    now,
		LastOpenedAt: &now,
	})
	if err != nil {
		return models.Project{}, fmt.Errorf("session: open project: %w", err)
	}

	result := scanner.Scan(path)
	s.project = &project
	s.tree = result.Tree
	s.documents = result.Documents

	if err := s.store.ReplaceDocuments(project.UUID, result.Documents); err != nil {
		s.logger.Warn("session: bulk index failed",
			slog.String("project", project.UUID),
			slog.String("error", err.Error()))
	}
	if err := s.store.SetDocumentCount(project.UUID, len(result.Documents)); err != nil {
		s.logger.Warn("session: document count update failed", slog.String("error", err.Error()))
	}

	s.attachWatcher(ctx, path)
	s.restoreSelection()

	s.notify(Change{Kind: ProjectOpened, Path: path})
	if s.selected != nil {
		s.notify(Change{Kind: SelectionChanged, Path: s.selected.Path})
	}
	s.logger.Info("session: project opened",
		slog.String("path", path),
		slog.Int("documents", len(s.documents)))
	return project, nil
}

// CloseProject detaches the watcher and clears all project state.
func (s *Session) CloseProject() {
	s.do(s.closeProject)
}

func (s *Session) closeProject() {
	if s.project == nil {
		return
	}
	s.detachWatcher()
	if s.savePending {
		s.savePending = false
		s.persistViewState()
	}
	s.project = nil
	s.tree = nil
	s.documents = nil
	s.selected = nil
	s.sidebarJSON = ""
	s.scrollJSON = ""
}

func (s *Session) attachWatcher(ctx context.Context, root string) {
	if s.source == nil {
		return
	}
	watchCtx, cancel := context.WithCancel(ctx)
	events, err := s.source.Watch(watchCtx, root)
	if err != nil {
		cancel()
		s.logger.Warn("session: watcher attach failed",
			slog.String("root", root),
			slog.String("error", err.Error()))
		return
	}
	s.watchCancel = cancel
	s.events = events
}

func (s *Session) detachWatcher() {
	if s.watchCancel != nil {
		s.watchCancel()
		s.watchCancel = nil
	}
	s.events = nil
}

// restoreSelection picks the last-viewed document recorded for the project,
// falling back to the first document in display order.
func (s *Session) restoreSelection() {
	s.selected = nil
	if s.project == nil {
		return
	}
	state, err := s.store.LoadProjectState(s.project.UUID)
	if err == nil {
		s.sidebarJSON = state.SidebarExpansionJSON
		s.scrollJSON = state.ScrollPositionJSON
		if doc := s.documentAt(state.LastDocumentPath); doc != nil {
			s.selected = doc
			return
		}
	} else if !errors.Is(err, apperr.ErrNotFound) {
		s.logger.Warn("session: load project state failed", slog.String("error", err.Error()))
	}
	s.selected = firstDocument(s.tree)
}

// documentAt returns a pointer into the flat list for an absolute path.
func (s *Session) documentAt(path string) *models.Document {
	if path == "" {
		return nil
	}
	for i := range s.documents {
		if s.documents[i].Path == path {
			return &s.documents[i]
		}
	}
	return nil
}

// firstDocument walks the tree in display order and returns the first
// document node, which is a README-adopting folder or the first file.
func firstDocument(tree []models.FolderNode) *models.Document {
	for i := range tree {
		n := &tree[i]
		if n.IsFile && n.Document != nil {
			return n.Document
		}
		if !n.IsFile {
			if n.Document != nil {
				return n.Document
			}
			if doc := firstDocument(n.Children); doc != nil {
				return doc
			}
		}
	}
	return nil
}

// Project returns the currently open project, if any.
func (s *Session) Project() (models.Project, bool) {
	var (
		p  models.Project
		ok bool
	)
	s.do(func() {
		if s.project != nil {
			p, ok = *s.project, true
		}
	})
	return p, ok
}

// Tree returns a snapshot of the current folder tree.
func (s *Session) Tree() []models.FolderNode {
	var tree []models.FolderNode
	s.do(func() {
		tree = make([]models.FolderNode, len(s.tree))
		copy(tree, s.tree)
	})
	return tree
}

// Documents returns a snapshot of the flat document list in display order.
func (s *Session) Documents() []models.Document {
	var docs []models.Document
	s.do(func() {
		docs = make([]models.Document, len(s.documents))
		copy(docs, s.documents)
	})
	return docs
}

// Selected returns a copy of the selected document, if any.
func (s *Session) Selected() (models.Document, bool) {
	var (
		doc models.Document
		ok  bool
	)
	s.do(func() {
		if s.selected != nil {
			doc, ok = *s.selected, true
		}
	})
	return doc, ok
}

// Select makes the document at the given absolute path the active
// selection. Returns false when the path is not in the flat list.
func (s *Session) Select(path string) bool {
	var ok bool
	s.do(func() { ok = s.selectPath(path) })
	return ok
}

func (s *Session) selectPath(path string) bool {
	doc := s.documentAt(path)
	if doc == nil {
		return false
	}
	s.setSelected(doc)
	return true
}

func (s *Session) setSelected(doc *models.Document) {
	s.selected = doc
	path := ""
	if doc != nil {
		path = doc.Path
	}
	s.notify(Change{Kind: SelectionChanged, Path: path})
	s.armSave()
}

// SetSidebarExpansion records the expanded-folder state for persistence.
// The payload is an opaque JSON document owned by the caller.
func (s *Session) SetSidebarExpansion(raw json.RawMessage) {
	s.do(func() {
		s.sidebarJSON = string(raw)
		s.armSave()
	})
}

// SetScrollPosition records per-document scroll offsets for persistence.
func (s *Session) SetScrollPosition(raw json.RawMessage) {
	s.do(func() {
		s.scrollJSON = string(raw)
		s.armSave()
	})
}

// persistViewState writes the debounced view state snapshot. Failures are
// logged; the in-memory state stays authoritative.
func (s *Session) persistViewState() {
	if s.project == nil {
		return
	}
	state := store.ProjectState{
		SidebarExpansionJSON: s.sidebarJSON,
		ScrollPositionJSON:   s.scrollJSON,
	}
	if s.selected != nil {
		state.LastDocumentPath = s.selected.Path
	}
	if err := s.store.SaveProjectState(s.project.UUID, state); err != nil {
		s.logger.Warn("session: save project state failed", slog.String("error", err.Error()))
	}
}
