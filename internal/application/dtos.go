package application

import (
	"time"

	"github.com/shopspring/decimal"
)

// JobLineItemDTO is the API representation of a job line item
type JobLineItemDTO struct {
	ItemID           string           `json:"itemId"`
	LocationID       string           `json:"locationId"`
	QuantityRequired decimal.Decimal  `json:"quantityRequired"`
	UsedQuantity     *decimal.Decimal `json:"usedQuantity,omitempty"`
}

// JobDTO is the API representation of a job
type JobDTO struct {
	ID        string           `json:"id"`
	Status    string           `json:"status"`
	LineItems []JobLineItemDTO `json:"lineItems"`
	Badge     string           `json:"badge"`
	Version   int64            `json:"version"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// StockSnapshotDTO is a point-in-time view of one item/location pair
type StockSnapshotDTO struct {
	ItemID     string          `json:"itemId"`
	LocationID string          `json:"locationId"`
	OnHand     decimal.Decimal `json:"onHand"`
	Reserved   decimal.Decimal `json:"reserved"`
	Allocated  decimal.Decimal `json:"allocated"`
	Available  decimal.Decimal `json:"available"`
}

// MovementDTO is the API representation of a ledger entry
type MovementDTO struct {
	ID          string          `json:"id"`
	ItemID      string          `json:"itemId"`
	LocationID  string          `json:"locationId"`
	Type        string          `json:"type"`
	Quantity    decimal.Decimal `json:"quantity"`
	ReferenceID string          `json:"referenceId,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// ReservationDTO is the API representation of a reservation
type ReservationDTO struct {
	ID                string          `json:"id"`
	JobID             string          `json:"jobId"`
	ItemID            string          `json:"itemId"`
	LocationID        string          `json:"locationId"`
	Quantity          decimal.Decimal `json:"quantity"`
	AllocatedQuantity decimal.Decimal `json:"allocatedQuantity"`
	Partial           bool            `json:"partial"`
	Status            string          `json:"status"`
	CreatedAt         time.Time       `json:"createdAt"`
	ReleasedAt        *time.Time      `json:"releasedAt,omitempty"`
}

// ReserveResultDTO reports the outcome of a reserve request. Granted may be
// less than requested; Shortfall is the uncovered remainder.
type ReserveResultDTO struct {
	Reservation *ReservationDTO `json:"reservation,omitempty"`
	Requested   decimal.Decimal `json:"requested"`
	Granted     decimal.Decimal `json:"granted"`
	Shortfall   decimal.Decimal `json:"shortfall"`
	Partial     bool            `json:"partial"`
}

// PickListLineDTO is the API representation of a pick list line
type PickListLineDTO struct {
	ItemID            string          `json:"itemId"`
	LocationID        string          `json:"locationId"`
	QuantityRequested decimal.Decimal `json:"quantityRequested"`
	QuantityPicked    decimal.Decimal `json:"quantityPicked"`
	Source            string          `json:"source"`
	Fulfilled         bool            `json:"fulfilled"`
}

// PickListDTO is the API representation of a pick list
type PickListDTO struct {
	ID        string            `json:"id"`
	JobID     string            `json:"jobId"`
	Status    string            `json:"status"`
	Badge     string            `json:"badge"`
	Lines     []PickListLineDTO `json:"lines"`
	Version   int64             `json:"version"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
	PickedAt  *time.Time        `json:"pickedAt,omitempty"`
}
