package resilience_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ad-checkout/internal/resilience"
)

func TestBreakerMetricsTransitions(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := resilience.NewBreakerMetrics("test", reg)
	breaker := resilience.NewBreaker(resilience.BreakerConfig{
		Target:      "catalog_db",
		MinRequests: 1,
		OpenFor:     20 * time.Millisecond,
		Metrics:     metrics,
	})
	ctx := context.Background()

	require.Equal(t, 0.0, testutil.ToFloat64(metrics.State.WithLabelValues("catalog_db")))

	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.State.WithLabelValues("catalog_db")))

	require.Eventually(t, func() bool { return breaker.Allow(ctx) }, time.Second, 5*time.Millisecond)
	require.Equal(t, 2.0, testutil.ToFloat64(metrics.State.WithLabelValues("catalog_db")))

	breaker.Report(ctx, true)
	require.Equal(t, 0.0, testutil.ToFloat64(metrics.State.WithLabelValues("catalog_db")))

	require.Equal(t, 1.0, testutil.ToFloat64(metrics.Opened.WithLabelValues("catalog_db")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.Transitions.WithLabelValues("catalog_db", "closed", "open")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.Transitions.WithLabelValues("catalog_db", "open", "half_open")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.Transitions.WithLabelValues("catalog_db", "half_open", "closed")))

	again := resilience.NewBreakerMetrics("test", reg)
	require.Same(t, metrics.State, again.State)
}
