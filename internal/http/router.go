// Package http wires the API routes and middleware.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"refind/internal/docstore"
	"refind/internal/handlers"
	"refind/internal/queue"
	"refind/internal/rag"
	"refind/internal/service"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Papers *service.PaperService
	Store  *docstore.Store
	Queue  *queue.Worker
	Engine *rag.Engine
}

// NewRouter creates the API router.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(CORS)

	uploadHandler := handlers.NewUploadHandler(deps.Papers)
	paperHandler := handlers.NewPaperHandler(deps.Store)
	queryHandler := handlers.NewQueryHandler(deps.Engine)
	referencesHandler := handlers.NewReferencesHandler(deps.Store, deps.Queue, deps.Engine)

	r.Method(http.MethodGet, "/health", handlers.NewHealthHandler())
	r.Method(http.MethodPost, "/upload", uploadHandler)
	r.Method(http.MethodGet, "/paper", paperHandler)
	r.Method(http.MethodPost, "/query", queryHandler)

	r.Route("/references", func(r chi.Router) {
		r.Get("/", referencesHandler.List)
		r.Get("/status", referencesHandler.Status)
		r.Get("/queue/status", referencesHandler.QueueStatus)
		r.Post("/search", referencesHandler.Search)
		r.Post("/{refID}/process", referencesHandler.Process)
		r.Get("/{refID}/content", referencesHandler.Content)
		r.Post("/{refID}/search", referencesHandler.SearchOne)
	})

	return r
}
