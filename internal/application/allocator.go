package application

import (
	"github.com/shopspring/decimal"

	"github.com/tradesmatepro/fulfillment-service/internal/domain"
)

// LinePlan is one allocator decision: either raise the picked quantity of an
// existing pick list line, or add a new auto-filled line when LineIndex is -1.
type LinePlan struct {
	LineIndex  int
	ItemID     string
	LocationID string
	Quantity   decimal.Decimal
}

// Allocator plans how to cover the unfulfilled remainder of a job's line
// items from what the stock can actually give. It only pencils quantities
// onto the pick list; no ledger movement happens until the pick is confirmed.
type Allocator struct{}

// NewAllocator creates a new allocator
func NewAllocator() *Allocator {
	return &Allocator{}
}

// Plan computes the fill decisions for a job. Requirements are aggregated by
// (item, location): the job's line items first, then pick list lines (manual
// ones included) for pairs the job does not name; when both name a pair, the
// larger requirement wins, so a line asking for more than the job does is
// still filled to its requested quantity. Capacity per pair is available
// stock plus the job's own remaining reservation, minus quantities already
// pencilled on the list. Other jobs' reservations are inside neither term,
// so they are never displaced. Existing unfulfilled lines are bumped before
// new lines are added, and nothing is ever planned beyond capacity.
func (a *Allocator) Plan(job *domain.Job, pickList *domain.PickList, reservations []*domain.Reservation, available map[string]decimal.Decimal) []LinePlan {
	ownRemaining := make(map[string]decimal.Decimal)
	for _, r := range reservations {
		if r.IsActive() {
			key := pairKey(r.ItemID, r.LocationID)
			ownRemaining[key] = ownRemaining[key].Add(r.Remaining())
		}
	}

	pencilled := make(map[string]decimal.Decimal)
	lineRequested := make(map[string]decimal.Decimal)
	for i := range pickList.Lines {
		line := &pickList.Lines[i]
		key := pairKey(line.ItemID, line.LocationID)
		pencilled[key] = pencilled[key].Add(line.QuantityPicked)
		lineRequested[key] = lineRequested[key].Add(line.QuantityRequested)
	}

	type target struct {
		itemID     string
		locationID string
		required   decimal.Decimal
	}
	var order []string
	targets := make(map[string]*target)
	addTarget := func(itemID, locationID string, qty decimal.Decimal) {
		key := pairKey(itemID, locationID)
		t, ok := targets[key]
		if !ok {
			t = &target{itemID: itemID, locationID: locationID}
			targets[key] = t
			order = append(order, key)
		}
		t.required = t.required.Add(qty)
	}
	for _, item := range job.LineItems {
		addTarget(item.ItemID, item.LocationID, item.QuantityRequired)
	}
	for i := range pickList.Lines {
		line := &pickList.Lines[i]
		if _, ok := targets[pairKey(line.ItemID, line.LocationID)]; !ok {
			addTarget(line.ItemID, line.LocationID, decimal.Zero)
		}
	}
	for key, t := range targets {
		if lineRequested[key].GreaterThan(t.required) {
			t.required = lineRequested[key]
		}
	}

	capacity := make(map[string]decimal.Decimal)
	capacityFor := func(key string) decimal.Decimal {
		if c, ok := capacity[key]; ok {
			return c
		}
		c := available[key].Add(ownRemaining[key]).Sub(pencilled[key])
		if c.IsNegative() {
			c = decimal.Zero
		}
		capacity[key] = c
		return c
	}

	var plans []LinePlan
	for _, key := range order {
		t := targets[key]

		shortfall := t.required.Sub(pencilled[key])
		if !shortfall.IsPositive() {
			continue
		}

		give := decimal.Min(shortfall, capacityFor(key))
		if !give.IsPositive() {
			continue
		}
		capacity[key] = capacity[key].Sub(give)

		// Bump existing lines up to their requested quantity first.
		for i := range pickList.Lines {
			line := &pickList.Lines[i]
			if line.ItemID != t.itemID || line.LocationID != t.locationID {
				continue
			}
			room := line.QuantityRequested.Sub(line.QuantityPicked)
			if !room.IsPositive() {
				continue
			}

			bump := decimal.Min(room, give)
			plans = append(plans, LinePlan{
				LineIndex:  i,
				ItemID:     t.itemID,
				LocationID: t.locationID,
				Quantity:   line.QuantityPicked.Add(bump),
			})
			give = give.Sub(bump)
			if !give.IsPositive() {
				break
			}
		}

		if give.IsPositive() {
			plans = append(plans, LinePlan{
				LineIndex:  -1,
				ItemID:     t.itemID,
				LocationID: t.locationID,
				Quantity:   give,
			})
		}
	}

	return plans
}

func pairKey(itemID, locationID string) string {
	return itemID + "/" + locationID
}
