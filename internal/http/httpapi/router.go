// Package httpapi assembles the chi router for the colorway API.
package httpapi

import (
	"net/http"

	"colorway/internal/http/handlers"
	"colorway/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(app *handlers.App) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimw.RealIP,
		middleware.RequestID,
		middleware.Logger(app.Logger),
		middleware.Metrics,
		middleware.CORS(app.Config.CORSAllowedOrigins),
		chimw.Recoverer,
	)

	r.Get("/healthz", app.Health)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/openapi.json", app.OpenAPIJSON)
	r.Get("/docs", app.OpenAPIDocs)

	r.Route("/v1", func(r chi.Router) {
		// Operation endpoints need a provider key; job polling does not.
		r.Group(func(r chi.Router) {
			r.Use(middleware.APIKey(app.Config.OpenAIAPIKey))
			r.Post("/generate", app.Generate)
			r.Post("/edit", app.Edit)
			r.Post("/recolor", app.Recolor)
			r.Post("/visualize", app.Visualize)
			r.Post("/batch", app.BatchSubmit)
		})
		r.Get("/jobs/{job_id}", app.JobStatus)
		r.Get("/jobs/{job_id}/download", app.JobDownload)
	})

	return r
}
