package bill

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidDiscount is returned when a discount would exceed the line price.
var ErrInvalidDiscount = errors.New("bill: invalid discount")

// Kind identifies the deal family that produced a discount.
type Kind string

const (
	// KindPriceOverride marks discounts produced by a fixed replacement price.
	KindPriceOverride Kind = "PriceOverride"
	// KindBulk marks discounts produced by a buy-N-pay-for-M bundle.
	KindBulk Kind = "Bulk"
)

// Discount describes a reduction applied to a single line.
type Discount struct {
	Kind        Kind    `json:"kind"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

// Line is one unit of a product on a bill.
type Line struct {
	ProductCode string
	Price       float64
	Discount    *Discount
}

// Total returns the line price minus any applied discount.
func (l *Line) Total() float64 {
	if l.Discount == nil {
		return l.Price
	}
	return l.Price - l.Discount.Amount
}

// SetDiscount replaces the line discount. Amounts above the line price are
// rejected, never clamped.
func (l *Line) SetDiscount(kind Kind, description string, amount float64) error {
	if math.IsNaN(amount) || amount < 0 || amount > l.Price {
		return fmt.Errorf("%w: %s amount %v exceeds price %v", ErrInvalidDiscount, l.ProductCode, amount, l.Price)
	}
	l.Discount = &Discount{Kind: kind, Description: description, Amount: amount}
	return nil
}

// ClearDiscount removes any applied discount.
func (l *Line) ClearDiscount() {
	l.Discount = nil
}

// Bill is the ordered set of lines for one checkout.
type Bill struct {
	Lines []*Line
}

// New builds a bill with one line per product code, in order. Prices are
// left at zero until a pricing pass runs.
func New(codes []string) *Bill {
	b := &Bill{Lines: make([]*Line, 0, len(codes))}
	for _, code := range codes {
		b.Add(code)
	}
	return b
}

// Add appends a single unit of the product.
func (b *Bill) Add(code string) *Line {
	line := &Line{ProductCode: code}
	b.Lines = append(b.Lines, line)
	return line
}

// Total sums every line total.
func (b *Bill) Total() float64 {
	var total float64
	for _, line := range b.Lines {
		total += line.Total()
	}
	return total
}

// Subtotal sums the undiscounted line prices.
func (b *Bill) Subtotal() float64 {
	var total float64
	for _, line := range b.Lines {
		total += line.Price
	}
	return total
}

// Group holds the lines of a single product in bill order.
type Group struct {
	ProductCode string
	Lines       []*Line
}

// GroupByProduct partitions lines by product code. Groups are returned in
// order of first appearance.
func (b *Bill) GroupByProduct() []Group {
	index := make(map[string]int)
	var groups []Group
	for _, line := range b.Lines {
		i, ok := index[line.ProductCode]
		if !ok {
			i = len(groups)
			index[line.ProductCode] = i
			groups = append(groups, Group{ProductCode: line.ProductCode})
		}
		groups[i].Lines = append(groups[i].Lines, line)
	}
	return groups
}
