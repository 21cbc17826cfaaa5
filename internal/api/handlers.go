package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/halvard/lectern/internal/apperr"
	"github.com/halvard/lectern/internal/docsconfig"
	"github.com/halvard/lectern/internal/gitstatus"
	"github.com/halvard/lectern/internal/library"
	"github.com/halvard/lectern/internal/models"
	"github.com/halvard/lectern/internal/session"
	"github.com/halvard/lectern/internal/store"
)

// Handler holds API route handlers.
type Handler struct {
	session *session.Session
	library *library.Library
	store   *store.Store
	git     *gitstatus.Provider
}

// NewHandler creates a new Handler.
func NewHandler(sess *session.Session, lib *library.Library, st *store.Store, git *gitstatus.Provider) *Handler {
	return &Handler{session: sess, library: lib, store: st, git: git}
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListProjects handles GET /api/projects with an optional filter query
// param (recent, favorites, pinned).
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	var (
		projects []models.Project
		err      error
	)
	switch r.URL.Query().Get("filter") {
	case "recent":
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		projects, err = h.library.Recent(limit)
	case "favorites":
		projects, err = h.library.Favorites()
	case "pinned":
		projects, err = h.library.Pinned()
	default:
		projects, err = h.library.Projects()
	}
	if err != nil {
		slog.Error("list projects failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, ProjectListResponse{Projects: projects, Total: len(projects)})
}

// OpenProject handles POST /api/projects/open. The body carries a
// directory path; the project is registered on first open.
func (h *Handler) OpenProject(w http.ResponseWriter, r *http.Request) {
	var req OpenProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	project, err := h.session.OpenProject(r.Context(), req.Path)
	if err != nil {
		slog.Error("open project failed",
			slog.String("path", req.Path),
			slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("open failed"))
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// OpenProjectByID handles POST /api/projects/{uuid}/open for projects
// already in the registry. A project whose directory vanished is dropped
// and reported as gone.
func (h *Handler) OpenProjectByID(w http.ResponseWriter, r *http.Request) {
	p, err := h.library.Resolve(chi.URLParam(r, "uuid"))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("project not found"))
			return
		}
		writeJSON(w, http.StatusGone, errorBody(err.Error()))
		return
	}
	project, err := h.session.OpenProject(r.Context(), p.Path)
	if err != nil {
		slog.Error("open project failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("open failed"))
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// ToggleFavorite handles POST /api/projects/{uuid}/favorite.
func (h *Handler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	p, err := h.library.ToggleFavorite(chi.URLParam(r, "uuid"))
	if err != nil {
		h.projectError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// TogglePin handles POST /api/projects/{uuid}/pin.
func (h *Handler) TogglePin(w http.ResponseWriter, r *http.Request) {
	p, err := h.library.TogglePin(chi.URLParam(r, "uuid"))
	if err != nil {
		h.projectError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DeleteProject handles DELETE /api/projects/{uuid}.
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.library.Remove(chi.URLParam(r, "uuid")); err != nil {
		h.projectError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) projectError(w http.ResponseWriter, err error) {
	if errors.Is(err, apperr.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody("project not found"))
		return
	}
	slog.Error("project operation failed", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
}

// Tree handles GET /api/tree for the currently open project.
func (h *Handler) Tree(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.session.Project(); !ok {
		writeJSON(w, http.StatusConflict, errorBody("no project open"))
		return
	}
	writeJSON(w, http.StatusOK, TreeResponse{Tree: h.session.Tree()})
}

// CurrentDocument handles GET /api/document, returning the selection.
func (h *Handler) CurrentDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.session.Selected()
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("no document selected"))
		return
	}
	writeJSON(w, http.StatusOK, documentResponse(doc))
}

// Navigate handles POST /api/navigate. A body with "path" selects that
// absolute path; a body with "ref" resolves a document link against the
// current location.
func (h *Handler) Navigate(w http.ResponseWriter, r *http.Request) {
	var req NavigateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid body"))
		return
	}

	switch {
	case req.Path != "":
		if !h.session.Select(req.Path) {
			writeJSON(w, http.StatusNotFound, errorBody("document not in project"))
			return
		}
	case req.Ref != "":
		if _, ok := h.session.ResolveLink(req.Ref); !ok {
			writeJSON(w, http.StatusNotFound, errorBody("reference did not resolve"))
			return
		}
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("path or ref is required"))
		return
	}

	doc, _ := h.session.Selected()
	writeJSON(w, http.StatusOK, documentResponse(doc))
}

// NavigateNext handles POST /api/navigate/next.
func (h *Handler) NavigateNext(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.session.SelectNext()
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("no next document"))
		return
	}
	writeJSON(w, http.StatusOK, documentResponse(doc))
}

// NavigatePrevious handles POST /api/navigate/previous.
func (h *Handler) NavigatePrevious(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.session.SelectPrevious()
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("no previous document"))
		return
	}
	writeJSON(w, http.StatusOK, documentResponse(doc))
}

// Search handles GET /api/search?q=...&project=...
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	h.runQuery(w, r, h.store.Search)
}

// QuickOpen handles GET /api/quickopen?q=...&project=...
func (h *Handler) QuickOpen(w http.ResponseWriter, r *http.Request) {
	h.runQuery(w, r, h.store.QuickOpen)
}

func (h *Handler) runQuery(w http.ResponseWriter, r *http.Request, query func(q, projectUUID string) ([]store.SearchResult, error)) {
	q := r.URL.Query().Get("q")
	projectUUID := r.URL.Query().Get("project")
	if projectUUID == "" {
		if p, ok := h.session.Project(); ok {
			projectUUID = p.UUID
		}
	}

	results, err := query(q, projectUUID)
	if err != nil {
		slog.Error("query failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	hits := make([]SearchHit, 0, len(results))
	for _, res := range results {
		hits = append(hits, SearchHit{
			UUID:    res.DocumentUUID,
			Title:   res.Title,
			Path:    res.Path,
			Snippet: res.Snippet,
			Rank:    res.Rank,
		})
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: hits})
}

// GitStatus handles GET /api/git/status for the open project.
func (h *Handler) GitStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := h.session.Project()
	if !ok {
		writeJSON(w, http.StatusConflict, errorBody("no project open"))
		return
	}
	writeJSON(w, http.StatusOK, h.git.Summary(r.Context(), p.Path))
}

// GitDiff handles GET /api/git/diff?path=relative/doc.md.
func (h *Handler) GitDiff(w http.ResponseWriter, r *http.Request) {
	p, ok := h.session.Project()
	if !ok {
		writeJSON(w, http.StatusConflict, errorBody("no project open"))
		return
	}
	relPath := r.URL.Query().Get("path")
	if relPath == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	diff, err := h.git.Diff(r.Context(), p.Path, relPath)
	if err != nil {
		slog.Error("git diff failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("diff failed"))
		return
	}
	writeJSON(w, http.StatusOK, DiffResponse{Path: relPath, Diff: diff})
}

// SaveViewState handles PUT /api/state. The viewer posts its sidebar
// expansion and scroll offsets; persistence is debounced server-side.
func (h *Handler) SaveViewState(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.session.Project(); !ok {
		writeJSON(w, http.StatusConflict, errorBody("no project open"))
		return
	}
	var req ViewStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid body"))
		return
	}
	if len(req.SidebarExpansion) > 0 {
		h.session.SetSidebarExpansion(req.SidebarExpansion)
	}
	if len(req.ScrollPosition) > 0 {
		h.session.SetScrollPosition(req.ScrollPosition)
	}
	w.WriteHeader(http.StatusNoContent)
}

// CheckConfig handles GET /api/config/check, validating the project's
// optional layout configuration. An absent file is a clean result.
func (h *Handler) CheckConfig(w http.ResponseWriter, r *http.Request) {
	p, ok := h.session.Project()
	if !ok {
		writeJSON(w, http.StatusConflict, errorBody("no project open"))
		return
	}
	problems := docsconfig.Validate(docsconfig.Load(p.Path), p.Path)
	if problems == nil {
		problems = []string{}
	}
	writeJSON(w, http.StatusOK, ConfigCheckResponse{Problems: problems})
}
