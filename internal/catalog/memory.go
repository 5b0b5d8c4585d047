package catalog

import (
	"context"
	"fmt"
	"slices"

	"github.com/noah-isme/ad-checkout/internal/pricing"
)

// Seed is the raw content of a Memory catalog.
type Seed struct {
	Customers  []Customer
	Products   []Product
	PriceDeals []pricing.PriceOverrideDeal
	BulkDeals  []pricing.BulkDeal
}

// Memory is an immutable in-process catalog. It is safe for concurrent use.
type Memory struct {
	customers  map[int64]Customer
	products   map[string]Product
	priceDeals map[int64][]pricing.PriceOverrideDeal
	bulkDeals  map[int64][]pricing.BulkDeal
}

// NewMemory indexes seed. Duplicate keys and invalid deals are rejected.
func NewMemory(seed Seed) (*Memory, error) {
	m := &Memory{
		customers:  make(map[int64]Customer, len(seed.Customers)),
		products:   make(map[string]Product, len(seed.Products)),
		priceDeals: make(map[int64][]pricing.PriceOverrideDeal),
		bulkDeals:  make(map[int64][]pricing.BulkDeal),
	}
	for _, c := range seed.Customers {
		if _, dup := m.customers[c.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate customer %d", c.ID)
		}
		m.customers[c.ID] = c
	}
	for _, p := range seed.Products {
		if p.Code == "" || p.Price < 0 {
			return nil, fmt.Errorf("catalog: invalid product %q", p.Code)
		}
		if _, dup := m.products[p.Code]; dup {
			return nil, fmt.Errorf("catalog: duplicate product %q", p.Code)
		}
		m.products[p.Code] = p
	}
	for _, d := range seed.PriceDeals {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		m.priceDeals[d.CustomerID] = append(m.priceDeals[d.CustomerID], d)
	}
	for _, d := range seed.BulkDeals {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		m.bulkDeals[d.CustomerID] = append(m.bulkDeals[d.CustomerID], d)
	}
	return m, nil
}

// MustMemory is NewMemory that panics on error. Intended for fixtures.
func MustMemory(seed Seed) *Memory {
	m, err := NewMemory(seed)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Memory) Product(_ context.Context, code string) (Product, error) {
	p, ok := m.products[code]
	if !ok {
		return Product{}, fmt.Errorf("product %q: %w", code, ErrNotFound)
	}
	return p, nil
}

func (m *Memory) Customer(_ context.Context, id int64) (Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return Customer{}, fmt.Errorf("customer %d: %w", id, ErrNotFound)
	}
	return c, nil
}

func (m *Memory) PriceDeals(_ context.Context, customerID int64) ([]pricing.PriceOverrideDeal, error) {
	return slices.Clone(m.priceDeals[customerID]), nil
}

func (m *Memory) BulkDeals(_ context.Context, customerID int64) ([]pricing.BulkDeal, error) {
	return slices.Clone(m.bulkDeals[customerID]), nil
}

// Products lists every product ordered by code.
func (m *Memory) Products() []Product {
	out := make([]Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b Product) int {
		switch {
		case a.Code < b.Code:
			return -1
		case a.Code > b.Code:
			return 1
		}
		return 0
	})
	return out
}
