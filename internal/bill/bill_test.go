package bill_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ad-checkout/internal/bill"
)

func TestLineTotal(t *testing.T) {
	line := &bill.Line{ProductCode: "standard", Price: 123.123}
	require.Equal(t, 123.123, line.Total())

	require.NoError(t, line.SetDiscount("TEST", "TEST", 100.123))
	require.InDelta(t, 23.0, line.Total(), 1e-9)
}

func TestSetDiscountRejectsAmountAbovePrice(t *testing.T) {
	line := &bill.Line{ProductCode: "classic", Price: 10}
	err := line.SetDiscount(bill.KindBulk, "3 for 2 deal", 10.01)
	require.ErrorIs(t, err, bill.ErrInvalidDiscount)
	require.Nil(t, line.Discount)

	require.ErrorIs(t, line.SetDiscount(bill.KindBulk, "neg", -1), bill.ErrInvalidDiscount)
}

func TestSetDiscountOverwrites(t *testing.T) {
	line := &bill.Line{ProductCode: "classic", Price: 10}
	require.NoError(t, line.SetDiscount(bill.KindPriceOverride, "price discount deal", 2))
	require.NoError(t, line.SetDiscount(bill.KindBulk, "2 for 1 deal", 10))
	require.Equal(t, bill.KindBulk, line.Discount.Kind)
	require.Zero(t, line.Total())

	line.ClearDiscount()
	require.Equal(t, 10.0, line.Total())
}

func TestBillTotals(t *testing.T) {
	b := bill.New([]string{"classic", "premium", "classic"})
	prices := map[string]float64{"classic": 269.99, "premium": 394.99}
	for _, line := range b.Lines {
		line.Price = prices[line.ProductCode]
	}
	require.NoError(t, b.Lines[2].SetDiscount(bill.KindBulk, "2 for 1 deal", 269.99))

	require.InDelta(t, 934.97, b.Subtotal(), 1e-9)
	require.InDelta(t, 664.98, b.Total(), 1e-9)
}

func TestGroupByProductPreservesOrder(t *testing.T) {
	b := bill.New([]string{"premium", "classic", "premium", "standout", "classic"})
	groups := b.GroupByProduct()
	require.Len(t, groups, 3)
	require.Equal(t, "premium", groups[0].ProductCode)
	require.Equal(t, "classic", groups[1].ProductCode)
	require.Equal(t, "standout", groups[2].ProductCode)
	require.Len(t, groups[0].Lines, 2)
	require.Same(t, b.Lines[0], groups[0].Lines[0])
	require.Same(t, b.Lines[2], groups[0].Lines[1])
}
