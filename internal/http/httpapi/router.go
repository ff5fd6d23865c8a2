package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"podstudio/internal/http/handlers"
	"podstudio/internal/infra"
	"podstudio/internal/middleware"
)

type Options struct {
	JWTSecret       string
	AllowedOrigins  []string
	RateLimitPerMin int
	DefaultLocale   string
	CountryLookup   middleware.CountryLookup
	// StaticDir is served under /static when the file store is in use.
	StaticDir string
	Logger    *infra.Logger
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(*infra.LoggerOrDiscard(opts.Logger)),
		middleware.CORS(opts.AllowedOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
	)

	r.Get("/v1/healthz", app.Health)

	if opts.StaticDir != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir))))
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthJWT(opts.JWTSecret))
		r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))

		r.Get("/v1/products/{id}", app.ProductGet)

		r.Route("/v1/sessions", func(r chi.Router) {
			r.Post("/", app.SessionCreate)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", app.SessionGet)
				r.Delete("/", app.SessionDelete)
				r.Put("/product", app.SessionProduct)
				r.Put("/variant", app.SessionVariant)
				r.Put("/placements", app.SessionPlacements)
				r.Put("/sources", app.SessionSources)
				r.Post("/generate", app.SessionGenerate)
				r.Post("/remix", app.SessionRemix)
				r.Post("/mockups", app.SessionMockups)
				r.Post("/publish", app.SessionPublish)
				r.Post("/save", app.SessionSave)
			})
		})

		r.Route("/v1/designs", func(r chi.Router) {
			r.Get("/", app.DesignsList)
			r.Delete("/{id}", app.DesignsDelete)
		})
	})

	return r
}
