package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/noah-isme/ad-checkout/internal/catalog"
	"github.com/noah-isme/ad-checkout/internal/checkout"
	"github.com/noah-isme/ad-checkout/internal/health"
	"github.com/noah-isme/ad-checkout/internal/obs"
	"github.com/noah-isme/ad-checkout/internal/ratelimit"
	"github.com/noah-isme/ad-checkout/internal/security"
)

// RouterDeps lists the handlers and middleware mounted by NewRouter.
type RouterDeps struct {
	Logger         zerolog.Logger
	HTTPMetrics    *obs.HTTPMetrics
	MetricsHandler http.Handler
	Health         health.Handler
	Catalog        *catalog.Handler
	Checkout       *checkout.Handler
	QuoteLimit     *ratelimit.Handler
	AllowedOrigins []string
	Headers        security.Headers
	BodyLimit      security.BodyLimit
}

// NewRouter assembles the HTTP surface.
func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if d.HTTPMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: d.HTTPMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: d.Logger}.Middleware)
	r.Use(d.Headers.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(d.AllowedOrigins),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		MaxAge:         300,
	}))

	if d.MetricsHandler != nil {
		r.Handle("/metrics", d.MetricsHandler)
	}
	r.Get("/health/live", d.Health.Live)
	r.Get("/health/ready", d.Health.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(d.BodyLimit.Middleware)
		if d.Catalog != nil {
			v.Get("/products/{code}", d.Catalog.Product)
			v.Get("/customers/{id}/deals", d.Catalog.CustomerDeals)
		}
		if d.Checkout != nil {
			quote := http.Handler(http.HandlerFunc(d.Checkout.Quote))
			if d.QuoteLimit != nil {
				quote = d.QuoteLimit.Middleware(quote)
			}
			v.Method(http.MethodPost, "/checkout/quote", quote)
		}
	})
	return r
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
