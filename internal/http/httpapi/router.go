package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"ugcfactory/internal/http/handlers"
	"ugcfactory/internal/infra"
	"ugcfactory/internal/middleware"
)

// Options carries the router wiring that comes from configuration.
type Options struct {
	APIKey          string
	InternalToken   string
	RateLimitPerMin int
	Logger          infra.Logger
	// Files, when set, serves development artifacts from the filesystem
	// store under /static. S3 deployments leave it nil.
	Files http.Handler
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
	)

	r.Get("/healthz", app.Health)
	r.Get("/openapi.json", app.OpenAPIJSON)
	r.Get("/docs", app.OpenAPIDocs)

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
		r.Use(middleware.APIKey(opts.APIKey))

		r.Post("/jobs", app.JobsCreate)
		r.Route("/jobs/{job_id}", func(r chi.Router) {
			r.Get("/", app.JobsGet)
			r.Post("/run", app.JobsRun)
			r.Post("/steps/script", app.StepScript)
			r.Post("/steps/tts", app.StepTTS)
			r.Post("/steps/video", app.StepVideo)
			r.Post("/steps/finalize", app.StepFinalize)
		})
	})

	r.Route("/internal", func(r chi.Router) {
		r.Use(middleware.InternalToken(opts.InternalToken))
		r.Post("/finalize", app.InternalFinalize)
	})

	if opts.Files != nil {
		r.Mount("/static", http.StripPrefix("/static", opts.Files))
	}

	return r
}
