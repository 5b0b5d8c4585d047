// Package catalog holds the product, customer and deal master data that
// checkout pricing reads from.
package catalog

import (
	"context"
	"errors"

	"github.com/noah-isme/ad-checkout/internal/pricing"
)

// ErrNotFound reports an unknown product code or customer id.
var ErrNotFound = errors.New("catalog: not found")

// ErrUnavailable reports that the backing store is refusing lookups.
var ErrUnavailable = errors.New("catalog: unavailable")

// Product is a sellable ad product at its standard price.
type Product struct {
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

// Customer identifies the buyer a bill is priced for.
type Customer struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ProductLookup resolves product codes.
type ProductLookup interface {
	Product(ctx context.Context, code string) (Product, error)
}

// CustomerLookup resolves customer ids.
type CustomerLookup interface {
	Customer(ctx context.Context, id int64) (Customer, error)
}

// DealLookup returns the deals a customer has negotiated. Customers without
// deals yield empty slices.
type DealLookup interface {
	PriceDeals(ctx context.Context, customerID int64) ([]pricing.PriceOverrideDeal, error)
	BulkDeals(ctx context.Context, customerID int64) ([]pricing.BulkDeal, error)
}

// Catalog is the full master data surface.
type Catalog interface {
	ProductLookup
	CustomerLookup
	DealLookup
}

// UnitPrices adapts a product lookup to the resolver's price source.
func UnitPrices(products ProductLookup) pricing.PriceLookupFunc {
	return func(ctx context.Context, code string) (float64, error) {
		p, err := products.Product(ctx, code)
		if err != nil {
			return 0, err
		}
		return p.Price, nil
	}
}
