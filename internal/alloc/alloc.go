// Package alloc finds the cheapest way to fill an exact total weight from an
// unlimited supply of weighted item types.
//
// The search is a depth-first branch-and-bound walk. Item types are visited in
// ascending cost-per-unit order and each level tries the largest repeat count
// first, so the first exact fills found are usually already optimal and later
// branches are cut off by the running best cost:
//
//   - a branch that lands exactly on the target with the current (cheapest
//     remaining) item cannot be beaten by any smaller count of that item;
//   - once the cost accumulated so far exceeds the best plan, smaller counts of
//     the current item can only be completed with pricier items and are skipped.
//
// Costs must be non-negative for both cuts to hold. Worst case is exponential in
// the number of item types; typical bundle catalogs resolve in a few hundred
// nodes. WithMaxSteps bounds the walk for pathological inputs.
package alloc

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"
)

var (
	// ErrInfeasible is returned when no combination sums exactly to the target.
	ErrInfeasible = errors.New("alloc: no exact allocation")
	// ErrBudgetExceeded is returned when the walk explores more nodes than allowed.
	// It matches ErrInfeasible so callers can fail closed with a single check.
	ErrBudgetExceeded = fmt.Errorf("%w: search budget exceeded", ErrInfeasible)
	// ErrInvalidItem is returned for non-positive weights or negative/NaN costs.
	ErrInvalidItem = errors.New("alloc: invalid item")
	// ErrInvalidTarget is returned for negative target weights.
	ErrInvalidTarget = errors.New("alloc: invalid target weight")
)

// Item is a repeatable item type. Cost is the price of one whole item, not a
// per-unit rate.
type Item[T any] struct {
	Weight  int
	Cost    float64
	Payload T
}

// Rate returns the cost per unit of weight.
func (it Item[T]) Rate() float64 {
	return it.Cost / float64(it.Weight)
}

// Entry records how many times an item type is used in a plan.
type Entry[T any] struct {
	Item    Item[T]
	Repeats int
}

// Plan is an ordered allocation whose weights sum exactly to the target.
type Plan[T any] struct {
	Entries []Entry[T]
	Cost    float64
}

// Weight returns the total weight covered by the plan.
func (p Plan[T]) Weight() int {
	var total int
	for _, e := range p.Entries {
		total += e.Repeats * e.Item.Weight
	}
	return total
}

// Empty reports whether the plan allocates nothing.
func (p Plan[T]) Empty() bool {
	return len(p.Entries) == 0
}

// Stats reports how much of the tree a single Allocate call explored.
type Stats struct {
	Nodes  int
	Leaves int
	Pruned int
}

type options struct {
	maxSteps int
	stats    *Stats
}

// Option customises Allocate.
type Option func(*options)

// WithMaxSteps caps the number of explored nodes. Zero or negative means no cap.
func WithMaxSteps(n int) Option {
	return func(o *options) { o.maxSteps = n }
}

// WithStats records search statistics into s.
func WithStats(s *Stats) Option {
	return func(o *options) { o.stats = s }
}

// Allocate returns the minimum-cost multiset of items whose weights sum exactly
// to target. Among equally cheap plans the caller's ordering of equal-rate items
// decides which one is reported. A zero target yields an empty plan and no error.
func Allocate[T any](items []Item[T], target int, opts ...Option) (Plan[T], error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if target < 0 {
		return Plan[T]{}, fmt.Errorf("%w: %d", ErrInvalidTarget, target)
	}
	for i, it := range items {
		if it.Weight <= 0 || it.Cost < 0 || math.IsNaN(it.Cost) || math.IsInf(it.Cost, 0) {
			return Plan[T]{}, fmt.Errorf("%w: item %d weight=%d cost=%v", ErrInvalidItem, i, it.Weight, it.Cost)
		}
	}
	if target == 0 {
		return Plan[T]{}, nil
	}

	candidates := fitting(items, target)
	if len(candidates) == 0 {
		return Plan[T]{}, ErrInfeasible
	}
	slices.SortStableFunc(candidates, func(a, b Item[T]) int {
		return cmp.Compare(a.Rate(), b.Rate())
	})

	s := &search[T]{maxSteps: o.maxSteps}
	s.walk(candidates, target, 0, nil)
	if o.stats != nil {
		*o.stats = s.stats
	}
	if s.exceeded {
		return Plan[T]{}, ErrBudgetExceeded
	}
	if !s.found {
		return Plan[T]{}, ErrInfeasible
	}
	return s.best, nil
}

type search[T any] struct {
	best     Plan[T]
	found    bool
	maxSteps int
	exceeded bool
	stats    Stats
}

func (s *search[T]) walk(items []Item[T], remaining int, cost float64, entries []Entry[T]) {
	if s.exceeded {
		return
	}
	s.stats.Nodes++
	if s.maxSteps > 0 && s.stats.Nodes > s.maxSteps {
		s.exceeded = true
		return
	}

	items = fitting(items, remaining)
	if len(items) == 0 {
		return
	}

	if len(items) == 1 {
		it := items[0]
		if remaining%it.Weight == 0 {
			repeats := remaining / it.Weight
			s.offer(withEntry(entries, it, repeats), cost+float64(repeats)*it.Cost)
		}
		return
	}

	it := items[0]
	for repeats := remaining / it.Weight; repeats >= 0; repeats-- {
		nextEntries := entries
		nextCost := cost
		nextRemaining := remaining
		if repeats > 0 {
			nextEntries = withEntry(entries, it, repeats)
			nextCost += float64(repeats) * it.Cost
			nextRemaining -= repeats * it.Weight
		}

		if nextRemaining == 0 {
			s.offer(nextEntries, nextCost)
			return
		}
		if s.found && nextCost > s.best.Cost {
			s.stats.Pruned++
			return
		}
		s.walk(items[1:], nextRemaining, nextCost, nextEntries)
		if s.exceeded {
			return
		}
	}
}

func (s *search[T]) offer(entries []Entry[T], cost float64) {
	s.stats.Leaves++
	if s.found && cost >= s.best.Cost {
		return
	}
	s.found = true
	s.best = Plan[T]{Entries: entries, Cost: cost}
}

// withEntry returns a fresh slice so sibling branches never share backing arrays.
func withEntry[T any](entries []Entry[T], it Item[T], repeats int) []Entry[T] {
	next := make([]Entry[T], len(entries), len(entries)+1)
	copy(next, entries)
	return append(next, Entry[T]{Item: it, Repeats: repeats})
}

func fitting[T any](items []Item[T], remaining int) []Item[T] {
	out := make([]Item[T], 0, len(items))
	for _, it := range items {
		if it.Weight <= remaining {
			out = append(out, it)
		}
	}
	return out
}
