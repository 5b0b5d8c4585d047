package pricing

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/ad-checkout/internal/alloc"
	"github.com/noah-isme/ad-checkout/internal/bill"
	"github.com/noah-isme/ad-checkout/internal/obs"
)

// DefaultMaxSearchSteps bounds a single allocation search.
const DefaultMaxSearchSteps = 1_000_000

// PriceLookup resolves the standard unit price of a product.
type PriceLookup interface {
	UnitPrice(ctx context.Context, productCode string) (float64, error)
}

// PriceLookupFunc adapts a function to PriceLookup.
type PriceLookupFunc func(ctx context.Context, productCode string) (float64, error)

// UnitPrice implements PriceLookup.
func (f PriceLookupFunc) UnitPrice(ctx context.Context, productCode string) (float64, error) {
	return f(ctx, productCode)
}

// ResolverConfig groups Resolver dependencies.
type ResolverConfig struct {
	Prices         PriceLookup
	Logger         *zerolog.Logger
	Metrics        *obs.PricingMetrics
	MaxSearchSteps int
}

// Resolver applies customer deals to bills.
type Resolver struct {
	prices   PriceLookup
	logger   zerolog.Logger
	metrics  *obs.PricingMetrics
	maxSteps int
	tracer   trace.Tracer
}

// NewResolver constructs a Resolver.
func NewResolver(cfg ResolverConfig) (*Resolver, error) {
	if cfg.Prices == nil {
		return nil, errors.New("pricing: price lookup is required")
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	maxSteps := cfg.MaxSearchSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSearchSteps
	}
	return &Resolver{
		prices:   cfg.Prices,
		logger:   logger.With().Str("component", "pricing").Logger(),
		metrics:  cfg.Metrics,
		maxSteps: maxSteps,
		tracer:   otel.Tracer("pricing"),
	}, nil
}

// Price resets every line to its standard price and applies rules in place.
// Calling it again with the same rules yields the same bill.
func (r *Resolver) Price(ctx context.Context, b *bill.Bill, rules Rules) (err error) {
	ctx, span := r.tracer.Start(ctx, "pricing.price", trace.WithAttributes(
		attribute.Int("bill.lines", len(b.Lines)),
		attribute.Int("rules.price_deals", len(rules.PriceDeals)),
		attribute.Int("rules.bulk_deals", len(rules.BulkDeals)),
	))
	start := time.Now()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		r.metrics.ObservePass(err, time.Since(start))
	}()

	stdPrices, err := r.reset(ctx, b)
	if err != nil {
		return err
	}
	for _, group := range b.GroupByProduct() {
		if err := r.priceGroup(group, stdPrices[group.ProductCode], rules); err != nil {
			return fmt.Errorf("price %s: %w", group.ProductCode, err)
		}
	}
	span.SetAttributes(attribute.Float64("bill.total", b.Total()))
	return nil
}

func (r *Resolver) reset(ctx context.Context, b *bill.Bill) (map[string]float64, error) {
	prices := make(map[string]float64)
	for _, line := range b.Lines {
		price, ok := prices[line.ProductCode]
		if !ok {
			p, err := r.prices.UnitPrice(ctx, line.ProductCode)
			if err != nil {
				return nil, err
			}
			price = p
			prices[line.ProductCode] = price
		}
		line.Price = price
		line.ClearDiscount()
	}
	return prices, nil
}

func (r *Resolver) priceGroup(group bill.Group, stdPrice float64, rules Rules) error {
	count := len(group.Lines)
	override, hasOverride := rules.bestOverride(group.ProductCode, stdPrice, count)
	bundles := rules.bundles(group.ProductCode, stdPrice)
	if !hasOverride && len(bundles) == 0 {
		return nil
	}
	baseline := stdPrice
	if hasOverride {
		baseline = override.Price
	}

	plan := r.plan(group.ProductCode, bundles, count, stdPrice, baseline)
	remaining := group.Lines
	for _, entry := range plan.Entries {
		deal := entry.Item.Payload
		if deal == nil || entry.Repeats == 0 {
			continue
		}
		n := min(entry.Repeats*deal.PurchaseSize, len(remaining))
		if err := BundleDeal(*deal).Apply(remaining[:n]); err != nil {
			return err
		}
		remaining = remaining[n:]
	}
	if hasOverride {
		return OverrideDeal(override).Apply(remaining)
	}
	return nil
}

// plan builds the allocator input for one product. Bundles that cannot beat
// the baseline per unit are left out; without any bundle the search is skipped.
func (r *Resolver) plan(code string, bundles []BulkDeal, count int, stdPrice, baseline float64) alloc.Plan[*BulkDeal] {
	items := make([]alloc.Item[*BulkDeal], 0, len(bundles)+1)
	for i := range bundles {
		d := &bundles[i]
		effective := d.EffectivePrice(stdPrice)
		if effective >= baseline {
			continue
		}
		items = append(items, alloc.Item[*BulkDeal]{
			Weight:  d.PurchaseSize,
			Cost:    effective * float64(d.CostSize),
			Payload: d,
		})
	}
	if len(items) == 0 {
		r.metrics.ObserveAllocation("skipped", 0)
		return alloc.Plan[*BulkDeal]{}
	}
	// Larger bundles first so equal-rate ties report the bigger deal.
	slices.SortStableFunc(items, func(a, b alloc.Item[*BulkDeal]) int {
		return cmp.Compare(b.Weight, a.Weight)
	})
	items = append(items, alloc.Item[*BulkDeal]{Weight: 1, Cost: baseline})

	var stats alloc.Stats
	plan, err := alloc.Allocate(items, count, alloc.WithMaxSteps(r.maxSteps), alloc.WithStats(&stats))
	if err != nil {
		outcome := "infeasible"
		if errors.Is(err, alloc.ErrBudgetExceeded) {
			outcome = "budget_exceeded"
		}
		r.metrics.ObserveAllocation(outcome, stats.Nodes)
		r.logger.Warn().Err(err).
			Str("product", code).
			Int("units", count).
			Int("nodes", stats.Nodes).
			Msg("bulk allocation unavailable, falling back to price override")
		return alloc.Plan[*BulkDeal]{}
	}
	r.metrics.ObserveAllocation("planned", stats.Nodes)

	if e := r.logger.Debug(); e.Enabled() {
		steps := zerolog.Arr()
		for _, entry := range plan.Entries {
			deal := "single"
			if entry.Item.Payload != nil {
				deal = entry.Item.Payload.Description()
			}
			steps.Dict(zerolog.Dict().Str("deal", deal).Int("repeats", entry.Repeats))
		}
		e.Str("product", code).
			Int("units", count).
			Float64("baseline", baseline).
			Float64("cost", plan.Cost).
			Int("nodes", stats.Nodes).
			Array("plan", steps).
			Msg("pricing_plan")
	}
	return plan
}
