package pricing

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/noah-isme/ad-checkout/internal/bill"
)

var (
	// ErrInvalidDeal is returned when a deal record violates its invariants.
	ErrInvalidDeal = errors.New("pricing: invalid deal")
	// ErrBatchSize is returned when a bundle receives a partial batch of lines.
	ErrBatchSize = errors.New("pricing: lines do not form whole bundles")
)

const priceOverrideDescription = "price discount deal"

// PriceOverrideDeal replaces the unit price of a product once at least
// TriggerSize units are on the bill. TriggerSize zero means always eligible.
type PriceOverrideDeal struct {
	CustomerID  int64   `json:"customerId"`
	ProductCode string  `json:"productCode"`
	Price       float64 `json:"price"`
	TriggerSize int     `json:"triggerSize"`
}

// Validate checks the record invariants.
func (d PriceOverrideDeal) Validate() error {
	switch {
	case strings.TrimSpace(d.ProductCode) == "":
		return fmt.Errorf("%w: price deal without product code", ErrInvalidDeal)
	case math.IsNaN(d.Price) || d.Price < 0:
		return fmt.Errorf("%w: price deal %s has price %v", ErrInvalidDeal, d.ProductCode, d.Price)
	case d.TriggerSize < 0:
		return fmt.Errorf("%w: price deal %s has trigger size %d", ErrInvalidDeal, d.ProductCode, d.TriggerSize)
	}
	return nil
}

// Eligible reports whether the deal beats stdPrice for a group of count units.
func (d PriceOverrideDeal) Eligible(stdPrice float64, count int) bool {
	return d.Price < stdPrice && d.TriggerSize <= count
}

// Apply discounts every line down to the deal price.
func (d PriceOverrideDeal) Apply(lines []*bill.Line) error {
	for _, line := range lines {
		if err := line.SetDiscount(bill.KindPriceOverride, priceOverrideDescription, math.Max(line.Price-d.Price, 0)); err != nil {
			return err
		}
	}
	return nil
}

// BulkDeal is a repeatable "buy PurchaseSize, pay for CostSize" bundle.
type BulkDeal struct {
	CustomerID   int64  `json:"customerId"`
	ProductCode  string `json:"productCode"`
	PurchaseSize int    `json:"purchaseSize"`
	CostSize     int    `json:"costSize"`
}

// Validate checks PurchaseSize > CostSize >= 0.
func (d BulkDeal) Validate() error {
	switch {
	case strings.TrimSpace(d.ProductCode) == "":
		return fmt.Errorf("%w: bulk deal without product code", ErrInvalidDeal)
	case d.PurchaseSize < 1:
		return fmt.Errorf("%w: bulk deal %s has purchase size %d", ErrInvalidDeal, d.ProductCode, d.PurchaseSize)
	case d.CostSize < 0 || d.CostSize >= d.PurchaseSize:
		return fmt.Errorf("%w: bulk deal %s is %d for %d", ErrInvalidDeal, d.ProductCode, d.PurchaseSize, d.CostSize)
	}
	return nil
}

// Description renders the deal the way it appears on a bill line.
func (d BulkDeal) Description() string {
	return fmt.Sprintf("%d for %d deal", d.PurchaseSize, d.CostSize)
}

// EffectivePrice is the per-unit price implied by a fully packed bundle.
func (d BulkDeal) EffectivePrice(stdPrice float64) float64 {
	return float64(d.CostSize) / float64(d.PurchaseSize) * stdPrice
}

// Apply zeroes the last PurchaseSize-CostSize lines of every consecutive batch.
func (d BulkDeal) Apply(lines []*bill.Line) error {
	if d.PurchaseSize < 1 || len(lines)%d.PurchaseSize != 0 {
		return fmt.Errorf("%w: %d lines for %s", ErrBatchSize, len(lines), d.Description())
	}
	desc := d.Description()
	for start := 0; start < len(lines); start += d.PurchaseSize {
		batch := lines[start : start+d.PurchaseSize]
		for _, line := range batch[d.CostSize:] {
			if err := line.SetDiscount(bill.KindBulk, desc, line.Total()); err != nil {
				return err
			}
		}
	}
	return nil
}

// DealKind enumerates the supported deal families.
type DealKind int

const (
	KindPriceOverride DealKind = iota + 1
	KindBulk
)

func (k DealKind) String() string {
	switch k {
	case KindPriceOverride:
		return "price_override"
	case KindBulk:
		return "bulk"
	default:
		return "unknown"
	}
}

// Deal is a closed union over the deal families.
type Deal struct {
	kind     DealKind
	override PriceOverrideDeal
	bulk     BulkDeal
}

// OverrideDeal wraps a price override.
func OverrideDeal(d PriceOverrideDeal) Deal {
	return Deal{kind: KindPriceOverride, override: d}
}

// BundleDeal wraps a bulk deal.
func BundleDeal(d BulkDeal) Deal {
	return Deal{kind: KindBulk, bulk: d}
}

// Kind returns the deal family.
func (d Deal) Kind() DealKind { return d.kind }

// ProductCode returns the product the deal targets.
func (d Deal) ProductCode() string {
	switch d.kind {
	case KindPriceOverride:
		return d.override.ProductCode
	case KindBulk:
		return d.bulk.ProductCode
	default:
		return ""
	}
}

// Apply dispatches to the wrapped deal.
func (d Deal) Apply(lines []*bill.Line) error {
	switch d.kind {
	case KindPriceOverride:
		return d.override.Apply(lines)
	case KindBulk:
		return d.bulk.Apply(lines)
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidDeal, d.kind)
	}
}
