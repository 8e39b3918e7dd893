package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementType classifies an inventory ledger entry.
type MovementType string

const (
	MovementReservation MovementType = "RESERVATION" // soft hold placed (positive)
	MovementRelease     MovementType = "RELEASE"     // soft hold returned (negative)
	MovementAllocation  MovementType = "ALLOCATION"  // hard hold placed or released (signed)
	MovementUsage       MovementType = "USAGE"       // permanent consumption (negative)
	MovementAdjustment  MovementType = "ADJUSTMENT"  // receiving / stock count (signed)
)

// IsValid checks if the movement type is valid
func (t MovementType) IsValid() bool {
	switch t {
	case MovementReservation, MovementRelease, MovementAllocation, MovementUsage, MovementAdjustment:
		return true
	default:
		return false
	}
}

// Movement is an immutable, append-only ledger entry. The ledger is the single
// source of truth for stock quantities; every derived counter must be a pure
// sum of movements by type.
type Movement struct {
	ID          string
	TenantID    string
	ItemID      string
	LocationID  string
	Type        MovementType
	Quantity    decimal.Decimal
	ReferenceID string
	CreatedAt   time.Time
}

// NewMovement creates a ledger entry. Quantity must be non-zero and carry the
// sign its type requires.
func NewMovement(tenantID, itemID, locationID string, movType MovementType, qty decimal.Decimal, referenceID string) (*Movement, error) {
	if !movType.IsValid() {
		return nil, ErrInvalidQuantity
	}
	if qty.IsZero() {
		return nil, ErrInvalidQuantity
	}

	switch movType {
	case MovementReservation:
		if qty.IsNegative() {
			return nil, ErrInvalidQuantity
		}
	case MovementRelease, MovementUsage:
		if qty.IsPositive() {
			return nil, ErrInvalidQuantity
		}
	}

	return &Movement{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		ItemID:      itemID,
		LocationID:  locationID,
		Type:        movType,
		Quantity:    qty,
		ReferenceID: referenceID,
		CreatedAt:   time.Now().UTC(),
	}, nil
}
