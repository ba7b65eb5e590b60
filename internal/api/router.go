package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/bomberos/internal/session"
	"github.com/starford/bomberos/internal/toolkit"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *toolkit.Service, sessions *session.Manager, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, sessions)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/catalog", h.Catalog)
	r.Get("/search", h.Search)
	r.Get("/history", h.History)

	r.Get("/convert", h.Convert)
	r.Get("/units", h.Units)

	r.Route("/kv/{key}", func(r chi.Router) {
		r.Get("/", h.GetValue)
		r.Put("/", h.SetValue)
		r.Delete("/", h.DeleteValue)
	})

	r.Post("/sessions", h.CreateSession)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", h.SessionState)
		r.Delete("/", h.CloseSession)
		r.Post("/input", h.SessionInput)
	})

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
