package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ad-checkout/internal/resilience"
)

var errDown = errors.New("db down")

func TestBreakerTransitions(t *testing.T) {
	breaker := resilience.NewBreaker(resilience.BreakerConfig{MinRequests: 2, FailureRatio: 0.5, OpenFor: 50 * time.Millisecond})
	ctx := context.Background()

	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)
	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)

	require.False(t, breaker.Allow(ctx), "breaker should open after threshold exceeded")
	require.Equal(t, resilience.Open, breaker.State())

	require.Eventually(t, func() bool { return breaker.Allow(ctx) }, time.Second, 5*time.Millisecond)
	require.Equal(t, resilience.HalfOpen, breaker.State())
	require.False(t, breaker.Allow(ctx), "only one probe while half-open")

	breaker.Report(ctx, true)
	require.Equal(t, resilience.Closed, breaker.State())
	require.True(t, breaker.Allow(ctx))
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	breaker := resilience.NewBreaker(resilience.BreakerConfig{MinRequests: 1, OpenFor: 10 * time.Millisecond})
	ctx := context.Background()

	breaker.Report(ctx, false)
	require.Eventually(t, func() bool { return breaker.Allow(ctx) }, time.Second, 2*time.Millisecond)
	breaker.Report(ctx, false)
	require.Equal(t, resilience.Open, breaker.State())
}

func TestBreakerDo(t *testing.T) {
	breaker := resilience.NewBreaker(resilience.BreakerConfig{MinRequests: 1, OpenFor: time.Minute})
	ctx := context.Background()
	notCounted := errors.New("not found")

	err := breaker.Do(ctx, func(context.Context) error { return notCounted }, func(err error) bool {
		return !errors.Is(err, notCounted)
	})
	require.ErrorIs(t, err, notCounted)
	require.Equal(t, resilience.Closed, breaker.State())

	err = breaker.Do(ctx, func(context.Context) error { return errDown }, nil)
	require.ErrorIs(t, err, errDown)

	called := false
	err = breaker.Do(ctx, func(context.Context) error { called = true; return nil }, nil)
	require.ErrorIs(t, err, resilience.ErrOpenCircuit)
	require.False(t, called)
}
