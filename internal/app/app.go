// Package app wires configuration into a running checkout service.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/ad-checkout/internal/catalog"
	"github.com/noah-isme/ad-checkout/internal/checkout"
	"github.com/noah-isme/ad-checkout/internal/config"
	"github.com/noah-isme/ad-checkout/internal/health"
	"github.com/noah-isme/ad-checkout/internal/obs"
	"github.com/noah-isme/ad-checkout/internal/pricing"
	"github.com/noah-isme/ad-checkout/internal/ratelimit"
	"github.com/noah-isme/ad-checkout/internal/resilience"
	"github.com/noah-isme/ad-checkout/internal/security"
)

const serviceName = "ad-checkout"

// App owns the long-lived dependencies of the API process.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Catalog  catalog.Catalog
	Registry *prometheus.Registry
	Handler  http.Handler

	pool  *pgxpool.Pool
	redis *redis.Client
}

// New connects to the configured backing services and builds the HTTP handler.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger, Registry: prometheus.NewRegistry()}
	if cfg.Obs.EnablePrometheus {
		a.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	source, err := a.openCatalog(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	if err := a.openRedis(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	if a.redis != nil {
		source = catalog.NewCached(source, catalog.NewCache(a.redis, cfg.CatalogCacheTTL), &a.Logger)
	}
	a.Catalog = source

	handler, err := a.buildHandler()
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Handler = handler
	return a, nil
}

func (a *App) openCatalog(ctx context.Context) (catalog.Catalog, error) {
	if a.Config.DatabaseURL == "" {
		a.Logger.Warn().Msg("DATABASE_URL not set, serving the built-in catalog")
		return catalog.Default(), nil
	}
	poolConfig, err := pgxpool.ParseConfig(a.Config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = serviceName

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	a.pool = pool
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	store, err := catalog.NewStore(pool)
	if err != nil {
		return nil, err
	}
	var breakerMetrics *resilience.BreakerMetrics
	if a.Config.Obs.EnablePrometheus {
		breakerMetrics = resilience.NewBreakerMetrics(a.Config.Obs.MetricsNamespace, a.Registry)
	}
	breaker := resilience.NewBreaker(resilience.BreakerConfig{
		Target:       "catalog_db",
		MinRequests:  a.Config.DBBreaker.MinRequests,
		FailureRatio: a.Config.DBBreaker.FailureRatio,
		OpenFor:      a.Config.DBBreaker.OpenFor,
		Logger:       &a.Logger,
		Metrics:      breakerMetrics,
	})
	return catalog.NewGuarded(store, breaker), nil
}

func (a *App) openRedis(ctx context.Context) error {
	if a.Config.RedisURL == "" {
		return nil
	}
	opts, err := redis.ParseURL(a.Config.RedisURL)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	a.redis = client
	if a.Config.Obs.EnableTracing {
		if err := redisotel.InstrumentTracing(client); err != nil {
			a.Logger.Error().Err(err).Msg("instrument redis tracing")
		}
	}
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

func (a *App) buildHandler() (http.Handler, error) {
	cfg := a.Config
	var (
		httpMetrics    *obs.HTTPMetrics
		pricingMetrics *obs.PricingMetrics
		metricsHandler http.Handler
	)
	if cfg.Obs.EnablePrometheus {
		httpMetrics = obs.NewHTTPMetrics(cfg.Obs.MetricsNamespace, obs.ParseBucketsCSV(cfg.Obs.MetricsBuckets), a.Registry)
		pricingMetrics = obs.NewPricingMetrics(cfg.Obs.MetricsNamespace, a.Registry)
		metricsHandler = promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{Registry: a.Registry})
	}

	resolver, err := pricing.NewResolver(pricing.ResolverConfig{
		Prices:         catalog.UnitPrices(a.Catalog),
		Logger:         &a.Logger,
		Metrics:        pricingMetrics,
		MaxSearchSteps: cfg.PricingMaxSearchSteps,
	})
	if err != nil {
		return nil, err
	}
	svc, err := checkout.NewService(checkout.ServiceConfig{
		Catalog:  a.Catalog,
		Resolver: resolver,
		Logger:   &a.Logger,
	})
	if err != nil {
		return nil, err
	}

	var quoteLimit *ratelimit.Handler
	if cfg.RateLimitEnabled() {
		var client redis.UniversalClient
		if a.redis != nil {
			client = a.redis
		}
		store, err := ratelimit.NewStore(client, ratelimit.DefaultPrefix)
		if err != nil {
			return nil, err
		}
		lim, err := ratelimit.New(store, cfg.RateLimitQuotes)
		if err != nil {
			return nil, err
		}
		quoteLimit = &ratelimit.Handler{
			Limiter: lim,
			OnError: func(err error) { a.Logger.Warn().Err(err).Msg("quote rate limiter unavailable") },
		}
	}

	router := NewRouter(RouterDeps{
		Logger:         a.Logger,
		HTTPMetrics:    httpMetrics,
		MetricsHandler: metricsHandler,
		Health:         health.Handler{Checker: readinessChecker{db: a.pool, redis: a.redis}},
		Catalog:        catalog.NewHandler(catalog.HandlerConfig{Catalog: a.Catalog}),
		Checkout:       checkout.NewHandler(svc),
		QuoteLimit:     quoteLimit,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Headers: security.Headers{
			Enable:     cfg.Security.EnableHeaders,
			EnableHSTS: cfg.Security.EnableHSTS,
			HSTSMaxAge: cfg.Security.HSTSMaxAge,
		},
		BodyLimit: security.BodyLimit{Max: cfg.Security.MaxBodyBytes},
	})
	if cfg.Obs.EnableTracing {
		return otelhttp.NewHandler(router, serviceName), nil
	}
	return router, nil
}

// Close releases database and Redis connections.
func (a *App) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
		a.redis = nil
	}
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
	return errors.Join(errs...)
}

type readinessChecker struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func (c readinessChecker) PingDB(ctx context.Context, timeout time.Duration) error {
	if c.db == nil {
		return health.ErrDisabled
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.db.Ping(ctx)
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return health.ErrDisabled
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
}
