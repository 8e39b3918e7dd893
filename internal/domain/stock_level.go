package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockLevel is the materialized running total for one (item, location) pair.
// It exists for O(1) snapshot reads; the movement log remains the audit trail
// and recovery source. All writers must go through Apply so the quantity
// checks cannot be bypassed, and saves are versioned so concurrent appends
// for the same pair serialize.
type StockLevel struct {
	TenantID   string
	ItemID     string
	LocationID string
	OnHand     decimal.Decimal
	Reserved   decimal.Decimal
	Allocated  decimal.Decimal
	Version    int64
	UpdatedAt  time.Time
}

// NewStockLevel creates a zeroed stock level for an item/location pair.
func NewStockLevel(tenantID, itemID, locationID string) *StockLevel {
	return &StockLevel{
		TenantID:   tenantID,
		ItemID:     itemID,
		LocationID: locationID,
		OnHand:     decimal.Zero,
		Reserved:   decimal.Zero,
		Allocated:  decimal.Zero,
		UpdatedAt:  time.Now().UTC(),
	}
}

// Available returns the available-to-promise quantity: on-hand minus all
// active soft and hard holds.
func (s *StockLevel) Available() decimal.Decimal {
	return s.OnHand.Sub(s.Reserved).Sub(s.Allocated)
}

// Apply folds a movement into the running totals. It fails with
// ErrInsufficientStock if any counter would go negative, which is the single
// overselling check of the whole engine: reservations and allocations are
// rejected when they exceed availability, releases when they exceed the hold.
func (s *StockLevel) Apply(m *Movement) error {
	onHand, reserved, allocated := s.OnHand, s.Reserved, s.Allocated

	switch m.Type {
	case MovementAdjustment, MovementUsage:
		onHand = onHand.Add(m.Quantity)
	case MovementReservation, MovementRelease:
		reserved = reserved.Add(m.Quantity)
	case MovementAllocation:
		allocated = allocated.Add(m.Quantity)
	default:
		return ErrInvalidQuantity
	}

	available := onHand.Sub(reserved).Sub(allocated)
	if onHand.IsNegative() || reserved.IsNegative() || allocated.IsNegative() || available.IsNegative() {
		return ErrInsufficientStock
	}

	s.OnHand = onHand
	s.Reserved = reserved
	s.Allocated = allocated
	s.UpdatedAt = time.Now().UTC()

	return nil
}

// Snapshot is the read view returned by the ledger.
type Snapshot struct {
	ItemID     string
	LocationID string
	OnHand     decimal.Decimal
	Reserved   decimal.Decimal
	Allocated  decimal.Decimal
	Available  decimal.Decimal
}

// ToSnapshot builds a point-in-time read view of the level.
func (s *StockLevel) ToSnapshot() *Snapshot {
	return &Snapshot{
		ItemID:     s.ItemID,
		LocationID: s.LocationID,
		OnHand:     s.OnHand,
		Reserved:   s.Reserved,
		Allocated:  s.Allocated,
		Available:  s.Available(),
	}
}
