package app_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ad-checkout/internal/app"
	"github.com/noah-isme/ad-checkout/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:                "test",
		CatalogCacheTTL:       time.Minute,
		PricingMaxSearchSteps: 1_000_000,
		RateLimitQuotes:       "2-M",
		Security: config.SecurityConfig{
			EnableHeaders: true,
			MaxBodyBytes:  256,
		},
		Obs: config.ObsConfig{
			LogFormat:        "json",
			MetricsNamespace: "test",
			EnablePrometheus: true,
		},
	}
}

func newApp(t *testing.T, cfg *config.Config) *app.App {
	t.Helper()
	a, err := app.New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

const quoteBody = `{"customerId":1,"items":["classic","classic","classic","premium"]}`

func TestAppServesQuotesFromBuiltInCatalog(t *testing.T) {
	a := newApp(t, testConfig())

	rec := do(t, a.Handler, http.MethodPost, "/api/v1/checkout/quote", quoteBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), `"total":"934.97"`)
	require.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))

	product := do(t, a.Handler, http.MethodGet, "/api/v1/products/premium", "")
	require.Equal(t, http.StatusOK, product.Code)

	deals := do(t, a.Handler, http.MethodGet, "/api/v1/customers/1/deals", "")
	require.Equal(t, http.StatusOK, deals.Code)
	require.Contains(t, deals.Body.String(), "3 for 2 deal")
}

func TestAppRateLimitsQuotes(t *testing.T) {
	a := newApp(t, testConfig())

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, do(t, a.Handler, http.MethodPost, "/api/v1/checkout/quote", quoteBody).Code)
	}
	require.Equal(t, http.StatusTooManyRequests, do(t, a.Handler, http.MethodPost, "/api/v1/checkout/quote", quoteBody).Code)

	// other routes are not throttled
	require.Equal(t, http.StatusOK, do(t, a.Handler, http.MethodGet, "/api/v1/products/classic", "").Code)
}

func TestAppHardensResponses(t *testing.T) {
	a := newApp(t, testConfig())

	rec := do(t, a.Handler, http.MethodGet, "/api/v1/products/classic", "")
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	items := strings.Repeat(`"classic",`, 40)
	oversized := `{"customerId":1,"items":[` + items + `"premium"]}`
	tooLarge := do(t, a.Handler, http.MethodPost, "/api/v1/checkout/quote", oversized)
	require.Equal(t, http.StatusRequestEntityTooLarge, tooLarge.Code)
	require.Contains(t, tooLarge.Body.String(), "PAYLOAD_TOO_LARGE")
}

func TestAppHealthAndMetrics(t *testing.T) {
	a := newApp(t, testConfig())

	ready := do(t, a.Handler, http.MethodGet, "/health/ready", "")
	require.Equal(t, http.StatusOK, ready.Code)
	require.Contains(t, ready.Body.String(), `"db":"disabled"`)

	require.Equal(t, http.StatusOK, do(t, a.Handler, http.MethodPost, "/api/v1/checkout/quote", quoteBody).Code)
	metrics := do(t, a.Handler, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, metrics.Code)
	body := metrics.Body.String()
	require.Contains(t, body, "test_http_requests_total")
	require.Contains(t, body, `route="/api/v1/checkout/quote"`)
	require.Contains(t, body, `test_pricing_passes_total{result="ok"} 1`)
	require.Contains(t, body, "go_goroutines")
}

func TestAppWithoutPrometheus(t *testing.T) {
	cfg := testConfig()
	cfg.Obs.EnablePrometheus = false
	cfg.RateLimitQuotes = "off"
	a := newApp(t, cfg)

	require.Equal(t, http.StatusNotFound, do(t, a.Handler, http.MethodGet, "/metrics", "").Code)
	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusOK, do(t, a.Handler, http.MethodPost, "/api/v1/checkout/quote", quoteBody).Code)
	}
}

func TestAppCachesCatalogInRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.RedisURL = "redis://" + mr.Addr()
	a := newApp(t, cfg)

	require.Equal(t, http.StatusOK, do(t, a.Handler, http.MethodPost, "/api/v1/checkout/quote", quoteBody).Code)
	require.True(t, mr.Exists("catalog:v1:customer:1"))
	require.True(t, mr.Exists("catalog:v1:product:classic"))
	require.True(t, mr.Exists("catalog:v1:deals:bulk:1"))

	ready := do(t, a.Handler, http.MethodGet, "/health/ready", "")
	require.Contains(t, ready.Body.String(), `"redis":"ok"`)
}

func TestAppFailsOnUnreachableRedis(t *testing.T) {
	cfg := testConfig()
	cfg.RedisURL = "redis://127.0.0.1:1"
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := app.New(ctx, cfg, zerolog.Nop())
	require.Error(t, err)
}
