package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DomainEvent is implemented by all fulfillment events published to the bus.
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// MovementAppendedEvent is emitted for every ledger append.
type MovementAppendedEvent struct {
	MovementID  string          `json:"movementId"`
	ItemID      string          `json:"itemId"`
	LocationID  string          `json:"locationId"`
	Type        MovementType    `json:"type"`
	Quantity    decimal.Decimal `json:"quantity"`
	ReferenceID string          `json:"referenceId"`
	OnHand      decimal.Decimal `json:"onHand"`
	Available   decimal.Decimal `json:"available"`
	AppendedAt  time.Time       `json:"appendedAt"`
}

func (e *MovementAppendedEvent) EventType() string     { return "inventory.movement.appended" }
func (e *MovementAppendedEvent) OccurredAt() time.Time { return e.AppendedAt }

// ReservationCreatedEvent is emitted when a job schedules a soft hold.
type ReservationCreatedEvent struct {
	ReservationID string          `json:"reservationId"`
	JobID         string          `json:"jobId"`
	ItemID        string          `json:"itemId"`
	LocationID    string          `json:"locationId"`
	Quantity      decimal.Decimal `json:"quantity"`
	Shortfall     decimal.Decimal `json:"shortfall"`
	Partial       bool            `json:"partial"`
	CreatedAt     time.Time       `json:"createdAt"`
}

func (e *ReservationCreatedEvent) EventType() string     { return "inventory.reservation.created" }
func (e *ReservationCreatedEvent) OccurredAt() time.Time { return e.CreatedAt }

// ReservationReleasedEvent is emitted when a hold is returned to stock.
type ReservationReleasedEvent struct {
	ReservationID string          `json:"reservationId"`
	JobID         string          `json:"jobId"`
	ItemID        string          `json:"itemId"`
	Quantity      decimal.Decimal `json:"quantity"`
	ReleasedAt    time.Time       `json:"releasedAt"`
}

func (e *ReservationReleasedEvent) EventType() string     { return "inventory.reservation.released" }
func (e *ReservationReleasedEvent) OccurredAt() time.Time { return e.ReleasedAt }

// PickListPickedEvent is emitted when a pick list is confirmed.
type PickListPickedEvent struct {
	PickListID string    `json:"pickListId"`
	JobID      string    `json:"jobId"`
	LineCount  int       `json:"lineCount"`
	PickedAt   time.Time `json:"pickedAt"`
}

func (e *PickListPickedEvent) EventType() string     { return "picklist.picked" }
func (e *PickListPickedEvent) OccurredAt() time.Time { return e.PickedAt }

// JobStatusChangedEvent is emitted on every coordinator transition.
type JobStatusChangedEvent struct {
	JobID     string    `json:"jobId"`
	From      JobStatus `json:"from"`
	To        JobStatus `json:"to"`
	ChangedAt time.Time `json:"changedAt"`
}

func (e *JobStatusChangedEvent) EventType() string     { return "job.status.changed" }
func (e *JobStatusChangedEvent) OccurredAt() time.Time { return e.ChangedAt }
