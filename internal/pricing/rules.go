package pricing

import (
	"context"
	"fmt"
)

// DealSource loads the deal catalog of a customer. Customers without deals
// yield empty slices.
type DealSource interface {
	PriceDeals(ctx context.Context, customerID int64) ([]PriceOverrideDeal, error)
	BulkDeals(ctx context.Context, customerID int64) ([]BulkDeal, error)
}

// Rules is the immutable set of deals applied during one pricing pass.
type Rules struct {
	PriceDeals []PriceOverrideDeal
	BulkDeals  []BulkDeal
}

// NewRules validates every deal and returns the rule set.
func NewRules(priceDeals []PriceOverrideDeal, bulkDeals []BulkDeal) (Rules, error) {
	for _, d := range priceDeals {
		if err := d.Validate(); err != nil {
			return Rules{}, err
		}
	}
	for _, d := range bulkDeals {
		if err := d.Validate(); err != nil {
			return Rules{}, err
		}
	}
	return Rules{PriceDeals: priceDeals, BulkDeals: bulkDeals}, nil
}

// LoadRules fetches and validates the deals configured for a customer.
func LoadRules(ctx context.Context, src DealSource, customerID int64) (Rules, error) {
	priceDeals, err := src.PriceDeals(ctx, customerID)
	if err != nil {
		return Rules{}, fmt.Errorf("load price deals: %w", err)
	}
	bulkDeals, err := src.BulkDeals(ctx, customerID)
	if err != nil {
		return Rules{}, fmt.Errorf("load bulk deals: %w", err)
	}
	return NewRules(priceDeals, bulkDeals)
}

// Empty reports whether no deal is configured.
func (r Rules) Empty() bool {
	return len(r.PriceDeals) == 0 && len(r.BulkDeals) == 0
}

// Deals returns every rule as a Deal, price overrides first.
func (r Rules) Deals() []Deal {
	out := make([]Deal, 0, len(r.PriceDeals)+len(r.BulkDeals))
	for _, d := range r.PriceDeals {
		out = append(out, OverrideDeal(d))
	}
	for _, d := range r.BulkDeals {
		out = append(out, BundleDeal(d))
	}
	return out
}

// bestOverride picks the cheapest eligible price override. Ties keep the first.
func (r Rules) bestOverride(code string, stdPrice float64, count int) (PriceOverrideDeal, bool) {
	var (
		best  PriceOverrideDeal
		found bool
	)
	for _, d := range r.PriceDeals {
		if d.ProductCode != code || !d.Eligible(stdPrice, count) {
			continue
		}
		if !found || d.Price < best.Price {
			best = d
			found = true
		}
	}
	return best, found
}

// bundles returns the bulk deals for code that undercut the standard price.
func (r Rules) bundles(code string, stdPrice float64) []BulkDeal {
	var out []BulkDeal
	for _, d := range r.BulkDeals {
		if d.ProductCode == code && d.EffectivePrice(stdPrice) < stdPrice {
			out = append(out, d)
		}
	}
	return out
}
