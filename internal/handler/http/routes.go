package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (h *Handler) Init() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5, "application/json"))
	router.Use(h.withTraceID)
	router.Use(h.withLogging)

	// routes without authorization
	router.Group(func(r chi.Router) {
		r.Post("/api/auth/register", h.register)
		r.Post("/api/auth/login", h.login)
		r.Get("/api/version", h.appVersion)
	})

	// sync protocol, JWT required
	router.Group(func(r chi.Router) {
		r.Use(h.auth)

		r.Get("/api/sync", h.pull)
		r.Post("/api/sync/batch", h.pushBatch)
		r.Post("/api/sync/resolve-conflicts", h.resolveConflicts)
		r.Post("/api/sync/auto-resolve", h.autoResolve)
		r.Get("/api/sync/status", h.syncStatus)
	})

	return router
}
