package posting

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Delta is a signed stock movement for one item.
type Delta struct {
	ItemID int64
	Qty    decimal.Decimal
}

// StockWriter persists a new running quantity for an item.
type StockWriter interface {
	SetItemQuantity(ctx context.Context, itemID int64, qty decimal.Decimal) error
}

// deltasFor sums line quantities per item and signs them. The result is in
// ascending item id order, the same order the rows were locked in.
func deltasFor(sign int, lines []Line) []Delta {
	sums := make(map[int64]decimal.Decimal, len(lines))
	for _, l := range lines {
		sums[l.ItemID] = sums[l.ItemID].Add(l.Quantity)
	}
	out := make([]Delta, 0, len(sums))
	for id, qty := range sums {
		if sign < 0 {
			qty = qty.Neg()
		}
		out = append(out, Delta{ItemID: id, Qty: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out
}

// checkAvailability fails on the first delta that would take an item below zero.
func checkAvailability(items map[int64]StockItem, deltas []Delta) error {
	for _, d := range deltas {
		if !d.Qty.IsNegative() {
			continue
		}
		item, ok := items[d.ItemID]
		if !ok {
			return fmt.Errorf("posting: item %d not locked", d.ItemID)
		}
		if item.CurrentQty.Add(d.Qty).IsNegative() {
			return &StockError{
				ItemID:    item.ID,
				Product:   item.Product,
				Available: item.CurrentQty,
				Requested: d.Qty.Neg(),
			}
		}
	}
	return nil
}

// applyDeltas writes the adjusted quantities and mirrors them into items.
func applyDeltas(ctx context.Context, w StockWriter, items map[int64]StockItem, deltas []Delta) error {
	if err := checkAvailability(items, deltas); err != nil {
		return err
	}
	for _, d := range deltas {
		item, ok := items[d.ItemID]
		if !ok {
			return fmt.Errorf("posting: item %d not locked", d.ItemID)
		}
		next := item.CurrentQty.Add(d.Qty)
		if err := w.SetItemQuantity(ctx, d.ItemID, next); err != nil {
			return fmt.Errorf("posting: adjust item %d: %w", d.ItemID, err)
		}
		item.CurrentQty = next
		items[d.ItemID] = item
	}
	return nil
}
