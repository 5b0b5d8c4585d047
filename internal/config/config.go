package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string

	CatalogCacheTTL       time.Duration
	PricingMaxSearchSteps int
	RateLimitQuotes       string

	DBBreaker BreakerConfig
	Security  SecurityConfig
	Obs       ObsConfig
}

// BreakerConfig tunes the circuit breaker guarding catalog database reads.
type BreakerConfig struct {
	MinRequests  int
	FailureRatio float64
	OpenFor      time.Duration
}

// SecurityConfig controls response hardening and request size limits.
type SecurityConfig struct {
	EnableHeaders bool
	EnableHSTS    bool
	HSTSMaxAge    int
	MaxBodyBytes  int64
}

// ObsConfig groups logging, metrics and tracing settings.
type ObsConfig struct {
	LogFormat        string
	LogLevel         string
	MetricsNamespace string
	MetricsBuckets   string
	EnablePrometheus bool
	EnableTracing    bool
	OTLPEndpoint     string
	SamplingRatio    float64
}

// Load reads configuration from environment variables and optional .env files.
// An empty DATABASE_URL selects the built-in catalog and an empty REDIS_URL
// disables caching and distributed rate limiting.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:                valueOrDefault(k.String("APP_ENV"), "development"),
		Port:                  valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:           strings.TrimSpace(k.String("DATABASE_URL")),
		RedisURL:              strings.TrimSpace(k.String("REDIS_URL")),
		CORSAllowedOrigins:    splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		CatalogCacheTTL:       parseDuration(k.String("CATALOG_CACHE_TTL"), "5m"),
		PricingMaxSearchSteps: parseInt(k.String("PRICING_MAX_SEARCH_STEPS"), 1_000_000),
		RateLimitQuotes:       strings.TrimSpace(k.String("RATE_LIMIT_QUOTES")),
		DBBreaker: BreakerConfig{
			MinRequests:  parseInt(k.String("DB_BREAKER_MIN_REQUESTS"), 10),
			FailureRatio: parseFloat(k.String("DB_BREAKER_FAILURE_RATIO"), 0.5),
			OpenFor:      parseDuration(k.String("DB_BREAKER_OPEN_FOR"), "15s"),
		},
		Security: SecurityConfig{
			EnableHeaders: parseBool(k.String("SECURITY_HEADERS_ENABLED"), true),
			EnableHSTS:    parseBool(k.String("SECURITY_HSTS_ENABLED"), false),
			HSTSMaxAge:    parseInt(k.String("SECURITY_HSTS_MAX_AGE"), 31536000),
			MaxBodyBytes:  int64(parseInt(k.String("HTTP_MAX_BODY_BYTES"), 1<<20)),
		},
		Obs: ObsConfig{
			LogFormat:        strings.ToLower(valueOrDefault(k.String("OBS_LOG_FORMAT"), "json")),
			LogLevel:         valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
			MetricsNamespace: valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "checkout"),
			MetricsBuckets:   k.String("OBS_METRICS_BUCKETS_MS"),
			EnablePrometheus: parseBool(k.String("OBS_ENABLE_PROMETHEUS"), true),
			EnableTracing:    parseBool(k.String("OBS_ENABLE_TRACING"), false),
			OTLPEndpoint:     strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
			SamplingRatio:    parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1),
		},
	}

	if _, ok := k.Get("RATE_LIMIT_QUOTES").(string); !ok {
		cfg.RateLimitQuotes = "120-M"
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.PricingMaxSearchSteps < 1 {
		errs = append(errs, errors.New("PRICING_MAX_SEARCH_STEPS must be positive"))
	}
	if c.DBBreaker.FailureRatio <= 0 || c.DBBreaker.FailureRatio > 1 {
		errs = append(errs, errors.New("DB_BREAKER_FAILURE_RATIO must be within (0,1]"))
	}
	if c.Security.MaxBodyBytes < 0 {
		errs = append(errs, errors.New("HTTP_MAX_BODY_BYTES must not be negative"))
	}
	if c.Obs.SamplingRatio < 0 || c.Obs.SamplingRatio > 1 {
		errs = append(errs, errors.New("OBS_TRACING_SAMPLING_RATIO must be within [0,1]"))
	}
	switch c.Obs.LogFormat {
	case "json", "console", "text":
	default:
		errs = append(errs, fmt.Errorf("OBS_LOG_FORMAT %q is not supported", c.Obs.LogFormat))
	}
	return errors.Join(errs...)
}

// RateLimitEnabled reports whether the quote endpoint is throttled. Setting
// RATE_LIMIT_QUOTES to an empty value or "off" disables it.
func (c *Config) RateLimitEnabled() bool {
	v := strings.ToLower(c.RateLimitQuotes)
	return v != "" && v != "off"
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	v := strings.ReplaceAll(strings.TrimSpace(value), "_", "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	v := strings.TrimSpace(value)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func parseBool(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "t", "true", "yes", "on":
		return true
	case "0", "f", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]*string, len(env))
	for key, value := range env {
		if prev, ok := os.LookupEnv(key); ok {
			original[key] = &prev
		} else {
			original[key] = nil
		}
		if err := os.Setenv(key, value); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func restoreEnv(values map[string]*string) error {
	var errs []string
	for key, value := range values {
		var err error
		if value == nil {
			err = os.Unsetenv(key)
		} else {
			err = os.Setenv(key, *value)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
