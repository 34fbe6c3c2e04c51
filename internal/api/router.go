package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"activity-plan-service/internal/adapters/matsim"
	"activity-plan-service/internal/api/handlers"
	"activity-plan-service/internal/domain"
	"activity-plan-service/internal/ports"
)

// Deps are the adapters the HTTP layer needs.
type Deps struct {
	Repo        ports.PopulationRepository
	Cache       ports.ReportCache
	DB          handlers.Pinger
	Version     matsim.Version
	Speeds      domain.ModeSpeeds
	CORSOrigins []string
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(d Deps) http.Handler {
	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	version := d.Version
	if version == 0 {
		version = matsim.V12
	}

	health := &handlers.HealthHandler{DB: d.DB}
	persons := &handlers.PersonHandler{Repo: d.Repo, Speeds: d.Speeds}
	plans := &handlers.PlanHandler{Cache: d.Cache, DefaultVersion: version}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
	}))

	r.Get("/health", health.Health)

	r.Get("/persons", persons.List)
	r.Route("/persons/{id}", func(r chi.Router) {
		r.Get("/", persons.Get)
		r.Get("/matsim", persons.Matsim)
		r.Post("/mode-shift", persons.ModeShift)
		r.Delete("/activities/{seq}", persons.RemoveActivity)
	})

	r.Post("/plans/validate", plans.Validate)

	return r
}
