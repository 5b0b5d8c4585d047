package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/ad-checkout/internal/bill"
	"github.com/noah-isme/ad-checkout/internal/catalog"
	"github.com/noah-isme/ad-checkout/internal/pricing"
)

// QuoteLine is one priced unit on a quote.
type QuoteLine struct {
	ProductCode string
	ProductName string
	Price       float64
	Discount    *bill.Discount
	Total       float64
}

// Quote is a priced, itemised bill for a customer.
type Quote struct {
	ID       string
	Customer catalog.Customer
	Lines    []QuoteLine
	Subtotal float64
	Discount float64
	Total    float64
}

// Service opens checkouts and produces quotes.
type Service struct {
	catalog  catalog.Catalog
	resolver *pricing.Resolver
	logger   zerolog.Logger
	newID    func() string
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Catalog  catalog.Catalog
	Resolver *pricing.Resolver
	Logger   *zerolog.Logger
	// NewID generates quote ids. Defaults to random UUIDs.
	NewID func() string
}

// NewService constructs a Service. When Resolver is nil one is built over
// the catalog's product prices.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("checkout: catalog is required")
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str("component", "checkout").Logger()
	}
	resolver := cfg.Resolver
	if resolver == nil {
		r, err := pricing.NewResolver(pricing.ResolverConfig{
			Prices: catalog.UnitPrices(cfg.Catalog),
			Logger: cfg.Logger,
		})
		if err != nil {
			return nil, err
		}
		resolver = r
	}
	newID := cfg.NewID
	if newID == nil {
		newID = func() string { return uuid.NewString() }
	}
	return &Service{catalog: cfg.Catalog, resolver: resolver, logger: logger, newID: newID}, nil
}

// Open loads the customer and their deals and returns an empty checkout.
func (s *Service) Open(ctx context.Context, customerID int64) (*Checkout, error) {
	customer, err := s.catalog.Customer(ctx, customerID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrUnknownCustomer, err)
		}
		return nil, err
	}
	rules, err := pricing.LoadRules(ctx, s.catalog, customerID)
	if err != nil {
		return nil, fmt.Errorf("customer %d: %w", customerID, err)
	}
	return &Checkout{customer: customer, rules: rules, resolver: s.resolver}, nil
}

// Quote prices codes for the customer.
func (s *Service) Quote(ctx context.Context, customerID int64, codes []string) (Quote, error) {
	co, err := s.Open(ctx, customerID)
	if err != nil {
		return Quote{}, err
	}
	for _, code := range codes {
		co.Add(code)
	}
	b, err := co.Bill(ctx)
	if err != nil {
		return Quote{}, err
	}

	q := Quote{
		ID:       s.newID(),
		Customer: co.Customer(),
		Lines:    make([]QuoteLine, 0, len(b.Lines)),
		Subtotal: b.Subtotal(),
		Total:    b.Total(),
	}
	q.Discount = q.Subtotal - q.Total

	names := make(map[string]string)
	for _, line := range b.Lines {
		name, ok := names[line.ProductCode]
		if !ok {
			p, err := s.catalog.Product(ctx, line.ProductCode)
			if err != nil {
				return Quote{}, fmt.Errorf("product %q: %w", line.ProductCode, err)
			}
			name = p.Name
			names[line.ProductCode] = name
		}
		q.Lines = append(q.Lines, QuoteLine{
			ProductCode: line.ProductCode,
			ProductName: name,
			Price:       line.Price,
			Discount:    line.Discount,
			Total:       line.Total(),
		})
	}

	s.logger.Debug().
		Str("quote_id", q.ID).
		Int64("customer_id", customerID).
		Int("items", len(q.Lines)).
		Float64("total", q.Total).
		Msg("quote_priced")
	return q, nil
}
