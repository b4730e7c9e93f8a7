package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hoanghai1803/citewatch/internal/api/handlers"
	"github.com/hoanghai1803/citewatch/internal/pipeline"
	"github.com/hoanghai1803/citewatch/internal/storage"
)

// Deps are the services the HTTP API is built on. Generator may be nil, in
// which case prompt generation answers 503.
type Deps struct {
	Store     *storage.Store
	Registry  handlers.ModelRegistry
	Runner    *pipeline.Runner
	Generator handlers.PromptGenerator
	Location  *time.Location
}

// NewRouter creates the HTTP router with every API route mounted under /api.
func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestLogger)
	r.Use(Recovery)
	r.Use(CORS)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := d.Store.Ping(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/api", func(api chi.Router) {
		api.Get("/models", handlers.GetModels(d.Registry))

		api.Route("/prompts", func(pr chi.Router) {
			pr.Get("/", handlers.ListPrompts(d.Store))
			pr.Post("/", handlers.CreatePrompts(d.Store, d.Registry, d.Location))
			pr.Post("/generate", handlers.GeneratePrompts(d.Store, d.Generator))
			pr.Get("/{id}", handlers.GetPrompt(d.Store))
			pr.Put("/{id}", handlers.UpdatePrompt(d.Store, d.Registry, d.Location))
			pr.Delete("/{id}", handlers.DeletePrompt(d.Store))
			pr.Post("/{id}/run", handlers.RunPrompt(d.Store, d.Runner))
			pr.Get("/{id}/runs", handlers.GetPromptRuns(d.Store))
		})

		api.Route("/responses", func(rr chi.Router) {
			rr.Get("/", handlers.ListResponses(d.Store))
			rr.Get("/{id}", handlers.GetResponse(d.Store))
			rr.Post("/{id}/followups", handlers.StartFollowUp(d.Runner))
			rr.Get("/{id}/followups/{followupID}", handlers.GetFollowUp(d.Runner))
			rr.Post("/{id}/followups/{followupID}", handlers.ContinueFollowUp(d.Runner))
			rr.Delete("/{id}/followups/{followupID}", handlers.DeleteFollowUp(d.Runner))
		})

		api.Get("/search", handlers.SearchResponses(d.Store))

		api.Get("/links", handlers.GetLinks(d.Store))
		api.Get("/links/{hostname}", handlers.GetLinksByHostname(d.Store))
		api.Get("/sentiments", handlers.GetSentiments(d.Store))
		api.Get("/trends", handlers.GetTrends(d.Store))

		api.Get("/tags", handlers.ListTags(d.Store))
		api.Post("/tags", handlers.CreateTag(d.Store))
		api.Put("/tags/{id}", handlers.RenameTag(d.Store))
		api.Delete("/tags/{id}", handlers.DeleteTag(d.Store))

		api.Get("/competitors", handlers.ListCompetitors(d.Store))
		api.Post("/competitors", handlers.CreateCompetitor(d.Store))
		api.Put("/competitors/{id}", handlers.UpdateCompetitor(d.Store))
		api.Delete("/competitors/{id}", handlers.DeleteCompetitor(d.Store))
	})

	return r
}
