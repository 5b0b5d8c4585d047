// Package checkout prices customer bills against their negotiated deals.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/noah-isme/ad-checkout/internal/bill"
	"github.com/noah-isme/ad-checkout/internal/catalog"
	"github.com/noah-isme/ad-checkout/internal/pricing"
)

var (
	// ErrUnknownCustomer wraps catalog.ErrNotFound for customer lookups.
	ErrUnknownCustomer = errors.New("unknown customer")
	// ErrUnknownProduct wraps catalog.ErrNotFound for scanned product codes.
	ErrUnknownProduct = errors.New("unknown product")
)

// Checkout accumulates scanned product codes for one customer. It is not
// safe for concurrent use.
type Checkout struct {
	customer catalog.Customer
	rules    pricing.Rules
	resolver *pricing.Resolver
	codes    []string
}

// Add scans one unit of the product. Unknown codes surface when the bill is priced.
func (c *Checkout) Add(code string) {
	c.codes = append(c.codes, code)
}

// Customer returns the customer the checkout prices for.
func (c *Checkout) Customer() catalog.Customer { return c.customer }

// Items returns the scanned codes in scan order.
func (c *Checkout) Items() []string { return slices.Clone(c.codes) }

// Bill prices the scanned items and returns the itemised bill.
func (c *Checkout) Bill(ctx context.Context) (*bill.Bill, error) {
	b := bill.New(c.codes)
	if err := c.resolver.Price(ctx, b, c.rules); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrUnknownProduct, err)
		}
		return nil, err
	}
	return b, nil
}

// Total prices the scanned items and returns the amount due.
func (c *Checkout) Total(ctx context.Context) (float64, error) {
	b, err := c.Bill(ctx)
	if err != nil {
		return 0, err
	}
	return b.Total(), nil
}
