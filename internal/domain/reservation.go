package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReservationStatus represents the status of a reservation
type ReservationStatus string

const (
	ReservationStatusActive   ReservationStatus = "active"
	ReservationStatusReleased ReservationStatus = "released"
)

// Reservation is a soft, releasable hold against available stock tied to a
// scheduled job. Reservations are never hard-deleted; release stamps
// ReleasedAt and flips the status.
type Reservation struct {
	ID         string
	TenantID   string
	JobID      string
	ItemID     string
	LocationID string

	// Quantity is the reserved amount; AllocatedQuantity is the portion that
	// has since been superseded by a hard allocation at pick confirmation.
	Quantity          decimal.Decimal
	AllocatedQuantity decimal.Decimal

	// Partial is set when less than the requested quantity could be reserved.
	Partial bool

	Status     ReservationStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ReleasedAt *time.Time
}

// NewReservation creates an active reservation for a job line item.
func NewReservation(tenantID, jobID, itemID, locationID string, qty decimal.Decimal, partial bool) (*Reservation, error) {
	if !qty.IsPositive() {
		return nil, ErrInvalidQuantity
	}

	now := time.Now().UTC()
	return &Reservation{
		ID:                uuid.NewString(),
		TenantID:          tenantID,
		JobID:             jobID,
		ItemID:            itemID,
		LocationID:        locationID,
		Quantity:          qty,
		AllocatedQuantity: decimal.Zero,
		Partial:           partial,
		Status:            ReservationStatusActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// IsActive returns true while the hold still counts against available stock.
func (r *Reservation) IsActive() bool {
	return r.Status == ReservationStatusActive
}

// Remaining is the reserved quantity not yet superseded by an allocation.
func (r *Reservation) Remaining() decimal.Decimal {
	return r.Quantity.Sub(r.AllocatedQuantity)
}

// TopUp raises the held quantity when a repeat reserve call grants more
// stock. The partial flag is replaced with the outcome of the latest grant.
func (r *Reservation) TopUp(qty decimal.Decimal, partial bool) error {
	if r.Status != ReservationStatusActive {
		return ErrReservationNotActive
	}
	if !qty.IsPositive() {
		return ErrInvalidQuantity
	}

	r.Quantity = r.Quantity.Add(qty)
	r.Partial = partial
	r.UpdatedAt = time.Now().UTC()

	return nil
}

// ConsumeForAllocation records that qty of the hold was converted to a hard
// allocation. A reservation fully consumed is released automatically.
func (r *Reservation) ConsumeForAllocation(qty decimal.Decimal) error {
	if r.Status != ReservationStatusActive {
		return ErrReservationNotActive
	}
	if !qty.IsPositive() || qty.GreaterThan(r.Remaining()) {
		return ErrInvalidQuantity
	}

	now := time.Now().UTC()
	r.AllocatedQuantity = r.AllocatedQuantity.Add(qty)
	r.UpdatedAt = now

	if r.Remaining().IsZero() {
		r.Status = ReservationStatusReleased
		r.ReleasedAt = &now
	}

	return nil
}

// Release soft-deletes the reservation. Releasing an already released
// reservation is a no-op so retries stay safe.
func (r *Reservation) Release() {
	if r.Status == ReservationStatusReleased {
		return
	}

	now := time.Now().UTC()
	r.Status = ReservationStatusReleased
	r.ReleasedAt = &now
	r.UpdatedAt = now
}
