package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/noah-isme/ad-checkout/internal/pricing"
)

// Breaker gates calls to a failing dependency.
type Breaker interface {
	Do(ctx context.Context, fn func(context.Context) error, isFailure func(error) bool) error
}

// Guarded routes every lookup of a Catalog through a Breaker. Not-found
// results are answers, not failures, and never trip the breaker. Rejected
// calls fail with ErrUnavailable.
type Guarded struct {
	source  Catalog
	breaker Breaker
}

// NewGuarded decorates source with breaker.
func NewGuarded(source Catalog, breaker Breaker) *Guarded {
	return &Guarded{source: source, breaker: breaker}
}

func (g *Guarded) Product(ctx context.Context, code string) (Product, error) {
	return guard(ctx, g.breaker, func(ctx context.Context) (Product, error) {
		return g.source.Product(ctx, code)
	})
}

func (g *Guarded) Customer(ctx context.Context, id int64) (Customer, error) {
	return guard(ctx, g.breaker, func(ctx context.Context) (Customer, error) {
		return g.source.Customer(ctx, id)
	})
}

func (g *Guarded) PriceDeals(ctx context.Context, customerID int64) ([]pricing.PriceOverrideDeal, error) {
	return guard(ctx, g.breaker, func(ctx context.Context) ([]pricing.PriceOverrideDeal, error) {
		return g.source.PriceDeals(ctx, customerID)
	})
}

func (g *Guarded) BulkDeals(ctx context.Context, customerID int64) ([]pricing.BulkDeal, error) {
	return guard(ctx, g.breaker, func(ctx context.Context) ([]pricing.BulkDeal, error) {
		return g.source.BulkDeals(ctx, customerID)
	})
}

func guard[T any](ctx context.Context, b Breaker, load func(context.Context) (T, error)) (T, error) {
	if b == nil {
		return load(ctx)
	}
	var (
		out    T
		called bool
	)
	err := b.Do(ctx, func(ctx context.Context) error {
		called = true
		var err error
		out, err = load(ctx)
		return err
	}, countsAsFailure)
	if err != nil && !called {
		return out, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return out, err
}

func countsAsFailure(err error) bool {
	return !errors.Is(err, ErrNotFound) && !errors.Is(err, context.Canceled)
}
