package alloc_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ad-checkout/internal/alloc"
)

func bundleItems(unitPrice float64) []alloc.Item[string] {
	return []alloc.Item[string]{
		{Weight: 6, Cost: 24.0, Payload: "6-pack"},
		{Weight: 20, Cost: 120.0, Payload: "20-pack"},
		{Weight: 1, Cost: unitPrice, Payload: "single"},
	}
}

// bruteForce enumerates every exact combination and returns the cheapest cost.
func bruteForce(items []alloc.Item[string], target int) (float64, bool) {
	best := math.Inf(1)
	var rec func(i, remaining int, cost float64)
	rec = func(i, remaining int, cost float64) {
		if remaining == 0 {
			if cost < best {
				best = cost
			}
			return
		}
		if i == len(items) {
			return
		}
		for n := 0; n*items[i].Weight <= remaining; n++ {
			rec(i+1, remaining-n*items[i].Weight, cost+float64(n)*items[i].Cost)
		}
	}
	rec(0, target, 0)
	return best, !math.IsInf(best, 1)
}

func TestAllocateMatchesBruteForce(t *testing.T) {
	for _, unit := range []float64{3.0, 4.5, 6.0, 7.0} {
		items := bundleItems(unit)
		for target := 1; target <= 40; target++ {
			plan, err := alloc.Allocate(items, target)
			require.NoError(t, err, "unit=%v target=%d", unit, target)
			require.Equal(t, target, plan.Weight(), "unit=%v target=%d", unit, target)

			want, ok := bruteForce(items, target)
			require.True(t, ok)
			require.InDelta(t, want, plan.Cost, 1e-9, "unit=%v target=%d", unit, target)

			var cost float64
			for _, e := range plan.Entries {
				require.Positive(t, e.Repeats)
				cost += float64(e.Repeats) * e.Item.Cost
			}
			require.InDelta(t, plan.Cost, cost, 1e-9)
		}
	}
}

func TestAllocateWithoutFallbackMatchesBruteForce(t *testing.T) {
	items := []alloc.Item[string]{
		{Weight: 4, Cost: 10, Payload: "a"},
		{Weight: 6, Cost: 13, Payload: "b"},
		{Weight: 9, Cost: 21, Payload: "c"},
	}
	for target := 1; target <= 40; target++ {
		want, ok := bruteForce(items, target)
		plan, err := alloc.Allocate(items, target)
		if !ok {
			require.ErrorIs(t, err, alloc.ErrInfeasible, "target=%d", target)
			require.True(t, plan.Empty())
			continue
		}
		require.NoError(t, err, "target=%d", target)
		require.Equal(t, target, plan.Weight())
		require.InDelta(t, want, plan.Cost, 1e-9, "target=%d", target)
	}
}

func TestAllocateZeroTarget(t *testing.T) {
	plan, err := alloc.Allocate(bundleItems(5), 0)
	require.NoError(t, err)
	require.True(t, plan.Empty())
	require.Zero(t, plan.Cost)
}

func TestAllocateDropsOversizedItems(t *testing.T) {
	items := []alloc.Item[string]{
		{Weight: 30, Cost: 1, Payload: "huge"},
		{Weight: 1, Cost: 2, Payload: "single"},
	}
	plan, err := alloc.Allocate(items, 5)
	require.NoError(t, err)
	require.Len(t, plan.Entries, 1)
	require.Equal(t, "single", plan.Entries[0].Item.Payload)
	require.Equal(t, 5, plan.Entries[0].Repeats)

	_, err = alloc.Allocate(items[:1], 5)
	require.ErrorIs(t, err, alloc.ErrInfeasible)
}

func TestAllocateSingleItemNotDividing(t *testing.T) {
	_, err := alloc.Allocate([]alloc.Item[string]{{Weight: 4, Cost: 1}}, 6)
	require.ErrorIs(t, err, alloc.ErrInfeasible)
}

func TestAllocatePrefersCallerOrderOnTies(t *testing.T) {
	big := alloc.Item[string]{Weight: 6, Cost: 6, Payload: "big"}
	small := alloc.Item[string]{Weight: 3, Cost: 3, Payload: "small"}
	single := alloc.Item[string]{Weight: 1, Cost: 2, Payload: "single"}

	plan, err := alloc.Allocate([]alloc.Item[string]{big, small, single}, 6)
	require.NoError(t, err)
	require.Equal(t, []alloc.Entry[string]{{Item: big, Repeats: 1}}, plan.Entries)

	plan, err = alloc.Allocate([]alloc.Item[string]{small, big, single}, 6)
	require.NoError(t, err)
	require.Equal(t, []alloc.Entry[string]{{Item: small, Repeats: 2}}, plan.Entries)
	require.Equal(t, 6.0, plan.Cost)
}

func TestAllocateMixesBundles(t *testing.T) {
	// 26 units against 6-for-4, 20-for-12 and 30-for-15 bundles at 394.99.
	std := 394.99
	items := []alloc.Item[string]{
		{Weight: 30, Cost: 15.0 / 30 * std * 15, Payload: "30 for 15"},
		{Weight: 20, Cost: 12.0 / 20 * std * 12, Payload: "20 for 12"},
		{Weight: 6, Cost: 4.0 / 6 * std * 4, Payload: "6 for 4"},
		{Weight: 1, Cost: std},
	}
	plan, err := alloc.Allocate(items, 26)
	require.NoError(t, err)
	require.Len(t, plan.Entries, 2)
	require.Equal(t, "20 for 12", plan.Entries[0].Item.Payload)
	require.Equal(t, 1, plan.Entries[0].Repeats)
	require.Equal(t, "6 for 4", plan.Entries[1].Item.Payload)
	require.Equal(t, 1, plan.Entries[1].Repeats)
}

func TestAllocateRejectsInvalidInput(t *testing.T) {
	_, err := alloc.Allocate([]alloc.Item[string]{{Weight: 0, Cost: 1}}, 3)
	require.ErrorIs(t, err, alloc.ErrInvalidItem)

	_, err = alloc.Allocate([]alloc.Item[string]{{Weight: 1, Cost: -1}}, 3)
	require.ErrorIs(t, err, alloc.ErrInvalidItem)

	_, err = alloc.Allocate([]alloc.Item[string]{{Weight: 1, Cost: math.NaN()}}, 3)
	require.ErrorIs(t, err, alloc.ErrInvalidItem)

	_, err = alloc.Allocate(bundleItems(1), -1)
	require.ErrorIs(t, err, alloc.ErrInvalidTarget)
}

func TestAllocateBudgetFailsClosed(t *testing.T) {
	plan, err := alloc.Allocate(bundleItems(7), 39, alloc.WithMaxSteps(1))
	require.ErrorIs(t, err, alloc.ErrBudgetExceeded)
	require.ErrorIs(t, err, alloc.ErrInfeasible)
	require.True(t, plan.Empty())
}

func TestAllocateStats(t *testing.T) {
	var stats alloc.Stats
	_, err := alloc.Allocate(bundleItems(7), 39, alloc.WithStats(&stats))
	require.NoError(t, err)
	require.Positive(t, stats.Nodes)
	require.Positive(t, stats.Leaves)
}

func TestAllocateDoesNotMutateInput(t *testing.T) {
	items := bundleItems(7)
	snapshot := append([]alloc.Item[string](nil), items...)
	_, err := alloc.Allocate(items, 27)
	require.NoError(t, err)
	require.Equal(t, snapshot, items)
}
