package httpapi

import (
	"net/http"
	"time"

	"cinedolly/internal/http/handlers"
	"cinedolly/internal/infra"
	mw "cinedolly/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Options configures the middleware stack.
type Options struct {
	CORSOrigins     []string
	RateLimitPerMin int
	DefaultLocale   string
	CountryLookup   mw.CountryLookup
	Logger          infra.Logger
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		mw.RequestID,
		mw.Logger(opts.Logger),
		middleware.Recoverer,
		mw.CORS(opts.CORSOrigins),
		mw.I18N(opts.DefaultLocale, opts.CountryLookup),
	)

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/credentials", func(r chi.Router) {
		r.Get("/", app.CredentialStatus)
		r.Post("/selector", app.OpenKeySelector)
		r.With(mw.RateLimit(opts.RateLimitPerMin, time.Minute)).Put("/key", app.SelectKey)
	})

	r.Route("/v1/videos", func(r chi.Router) {
		r.With(mw.RateLimit(opts.RateLimitPerMin, time.Minute)).Post("/", app.GenerateVideo)
		r.Get("/current", app.CurrentVideo)
		r.Delete("/current", app.ResetVideo)
	})

	r.Get("/v1/media/{id}", app.ServeMedia)

	return r
}
