package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(h *Handler, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/health", h.Health)

	// Project registry.
	r.Get("/projects", h.ListProjects)
	r.Post("/projects/open", h.OpenProject)
	r.Post("/projects/{uuid}/open", h.OpenProjectByID)
	r.Post("/projects/{uuid}/favorite", h.ToggleFavorite)
	r.Post("/projects/{uuid}/pin", h.TogglePin)
	r.Delete("/projects/{uuid}", h.DeleteProject)

	// Current project.
	r.Get("/tree", h.Tree)
	r.Get("/document", h.CurrentDocument)
	r.Post("/navigate", h.Navigate)
	r.Post("/navigate/next", h.NavigateNext)
	r.Post("/navigate/previous", h.NavigatePrevious)
	r.Put("/state", h.SaveViewState)

	// Search.
	r.Get("/search", h.Search)
	r.Get("/quickopen", h.QuickOpen)

	// Version control.
	r.Get("/git/status", h.GitStatus)
	r.Get("/git/diff", h.GitDiff)

	// Layout configuration.
	r.Get("/config/check", h.CheckConfig)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
