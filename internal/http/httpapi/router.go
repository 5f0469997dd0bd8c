// Package httpapi assembles the chi router for the studio API.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"studio/internal/http/handlers"
	"studio/internal/infra"
	"studio/internal/middleware"
	"studio/internal/storage"
)

// Options configures cross-cutting middleware.
type Options struct {
	Logger          *infra.Logger
	AllowedOrigins  []string
	DefaultLocale   string
	CountryLookup   middleware.CountryLookup
	RateLimitPerMin int
	MediaDir        string
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimw.RealIP,
		middleware.RequestID,
		middleware.Logger(opts.Logger),
		chimw.Recoverer,
		middleware.CORS(opts.AllowedOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
	)

	limit := opts.RateLimitPerMin
	if limit <= 0 {
		limit = 30
	}
	spend := middleware.RateLimit(limit, time.Minute)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/healthz", app.Health)
		r.Get("/openapi.json", app.OpenAPIJSON)
		r.Get("/docs", app.OpenAPIDocs)

		r.Get("/providers", app.Providers)
		r.Get("/estimate", app.Estimate)
		r.Post("/route", app.Route)

		r.Route("/projects/{id}", func(r chi.Router) {
			r.Get("/scenes", app.ProjectScenes)
			r.Get("/render", app.RenderStatus)
			r.Post("/render/cancel", app.CancelRender)
			r.Get("/export", app.Export)
			r.With(spend).Post("/screenplay", app.Screenplay)
			r.With(spend).Post("/render", app.StartRender)
		})

		r.With(spend).Post("/scenes/{id}/narration", app.Narration)
		r.With(spend).Post("/scenes/{id}/keyframe", app.Keyframe)
	})

	if opts.MediaDir != "" {
		r.Handle(storage.MediaPrefix+"*", http.StripPrefix(storage.MediaPrefix, http.FileServer(http.Dir(opts.MediaDir))))
	}

	return r
}
