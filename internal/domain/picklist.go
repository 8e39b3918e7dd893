package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PickListStatus represents the status of a pick list
type PickListStatus string

const (
	PickListStatusNotStarted PickListStatus = "not_started"
	PickListStatusInProgress PickListStatus = "in_progress"
	PickListStatusFulfilled  PickListStatus = "fulfilled"
	PickListStatusPicked     PickListStatus = "picked"
	PickListStatusDiscarded  PickListStatus = "discarded"
)

// IsValid checks if the status is valid
func (s PickListStatus) IsValid() bool {
	switch s {
	case PickListStatusNotStarted, PickListStatusInProgress, PickListStatusFulfilled,
		PickListStatusPicked, PickListStatusDiscarded:
		return true
	default:
		return false
	}
}

// LineSource records where a pick list line came from.
type LineSource string

const (
	LineSourceReservation LineSource = "from_reservation"
	LineSourceAutoFilled  LineSource = "auto_filled"
	LineSourceManual      LineSource = "manual"
)

// PickListLine is one item/location row of the physical-pick checklist.
// Invariant: QuantityPicked <= QuantityRequested, and QuantityPicked never
// decreases except through discard.
type PickListLine struct {
	ItemID            string
	LocationID        string
	QuantityRequested decimal.Decimal
	QuantityPicked    decimal.Decimal
	Source            LineSource
}

// Fulfilled reports whether the line's requested quantity is fully covered.
func (l *PickListLine) Fulfilled() bool {
	return l.QuantityPicked.Equal(l.QuantityRequested)
}

// PickList is the aggregate root for the physical-pick workflow of one job.
// A job has at most one active pick list; Version backs the optimistic
// concurrency check shared with job cancellation.
type PickList struct {
	ID       string
	TenantID string
	JobID    string
	Status   PickListStatus
	Lines    []PickListLine
	Version  int64

	CreatedAt time.Time
	UpdatedAt time.Time
	PickedAt  *time.Time
}

// NewPickList creates an empty pick list for a job.
func NewPickList(tenantID, jobID string) *PickList {
	now := time.Now().UTC()
	return &PickList{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		JobID:     jobID,
		Status:    PickListStatusNotStarted,
		Lines:     make([]PickListLine, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// mutable reports whether lines may still change.
func (p *PickList) mutable() error {
	switch p.Status {
	case PickListStatusPicked:
		return ErrAlreadyPicked
	case PickListStatusDiscarded:
		return ErrPickListDiscarded
	default:
		return nil
	}
}

// RefreshFromReservations rebuilds the reservation-sourced lines from the
// job's current active reservations. Manual and auto-filled lines are kept.
// Picked quantities of surviving lines are preserved so a refresh never
// loses pick progress; calling twice with the same reservations yields the
// same line set.
func (p *PickList) RefreshFromReservations(reservations []*Reservation) error {
	if err := p.mutable(); err != nil {
		return err
	}

	picked := make(map[string]decimal.Decimal, len(p.Lines))
	kept := make([]PickListLine, 0, len(p.Lines))
	for _, line := range p.Lines {
		if line.Source == LineSourceReservation {
			picked[line.ItemID+"/"+line.LocationID] = line.QuantityPicked
			continue
		}
		kept = append(kept, line)
	}

	lines := make([]PickListLine, 0, len(reservations)+len(kept))
	for _, r := range reservations {
		line := PickListLine{
			ItemID:            r.ItemID,
			LocationID:        r.LocationID,
			QuantityRequested: r.Quantity,
			QuantityPicked:    decimal.Zero,
			Source:            LineSourceReservation,
		}
		if prev, ok := picked[r.ItemID+"/"+r.LocationID]; ok {
			line.QuantityPicked = decimal.Min(prev, line.QuantityRequested)
		}
		lines = append(lines, line)
	}

	p.Lines = append(lines, kept...)
	if p.Status == PickListStatusNotStarted {
		p.Status = PickListStatusInProgress
	}
	p.UpdatedAt = time.Now().UTC()

	return nil
}

// AddManualLine appends a line for a part not covered by a reservation.
func (p *PickList) AddManualLine(itemID, locationID string, qty decimal.Decimal) error {
	if err := p.mutable(); err != nil {
		return err
	}
	if !qty.IsPositive() {
		return ErrInvalidQuantity
	}

	p.Lines = append(p.Lines, PickListLine{
		ItemID:            itemID,
		LocationID:        locationID,
		QuantityRequested: qty,
		QuantityPicked:    decimal.Zero,
		Source:            LineSourceManual,
	})
	if p.Status == PickListStatusNotStarted {
		p.Status = PickListStatusInProgress
	}
	p.UpdatedAt = time.Now().UTC()

	return nil
}

// AddAutoFilledLine appends a line created by the allocator for quantity not
// covered by any existing line.
func (p *PickList) AddAutoFilledLine(itemID, locationID string, qty decimal.Decimal) error {
	if err := p.mutable(); err != nil {
		return err
	}
	if !qty.IsPositive() {
		return ErrInvalidQuantity
	}

	p.Lines = append(p.Lines, PickListLine{
		ItemID:            itemID,
		LocationID:        locationID,
		QuantityRequested: qty,
		QuantityPicked:    qty,
		Source:            LineSourceAutoFilled,
	})
	p.UpdatedAt = time.Now().UTC()

	return nil
}

// SetLinePicked raises the picked quantity of the line at index. The picked
// quantity is monotonic and capped by the requested quantity.
func (p *PickList) SetLinePicked(index int, qty decimal.Decimal) error {
	if err := p.mutable(); err != nil {
		return err
	}
	if index < 0 || index >= len(p.Lines) {
		return ErrLineNotFound
	}

	line := &p.Lines[index]
	if qty.LessThan(line.QuantityPicked) {
		return ErrPickedBelowCurrent
	}
	if qty.GreaterThan(line.QuantityRequested) {
		return ErrPickedExceedsRequested
	}

	line.QuantityPicked = qty
	p.UpdatedAt = time.Now().UTC()

	return nil
}

// AllLinesFulfilled reports whether every line's requested quantity is covered.
func (p *PickList) AllLinesFulfilled() bool {
	for i := range p.Lines {
		if !p.Lines[i].Fulfilled() {
			return false
		}
	}
	return true
}

// RecomputeStatus settles InProgress vs Fulfilled after an auto-fill pass.
func (p *PickList) RecomputeStatus() {
	if p.Status != PickListStatusInProgress && p.Status != PickListStatusFulfilled {
		return
	}
	if len(p.Lines) > 0 && p.AllLinesFulfilled() {
		p.Status = PickListStatusFulfilled
	} else {
		p.Status = PickListStatusInProgress
	}
	p.UpdatedAt = time.Now().UTC()
}

// MarkPicked transitions the list to Picked. Allowed only from InProgress or
// Fulfilled; a picked list is immutable afterwards.
func (p *PickList) MarkPicked() error {
	switch p.Status {
	case PickListStatusPicked:
		return ErrAlreadyPicked
	case PickListStatusInProgress, PickListStatusFulfilled:
	default:
		return ErrPickListDiscarded
	}

	now := time.Now().UTC()
	p.Status = PickListStatusPicked
	p.PickedAt = &now
	p.UpdatedAt = now

	return nil
}

// Discard abandons an unpicked list on job cancellation. Lines are never
// carried into the ledger.
func (p *PickList) Discard() error {
	if p.Status == PickListStatusPicked {
		return ErrAlreadyPicked
	}

	p.Status = PickListStatusDiscarded
	p.UpdatedAt = time.Now().UTC()

	return nil
}

// Badge is the UI projection of pick-list progress.
type Badge string

const (
	BadgePickNeeded   Badge = "pick_needed"
	BadgeAllFulfilled Badge = "all_fulfilled"
	BadgePicked       Badge = "picked"
)

// BadgeFor computes the badge from current rows. It is a pure projection,
// never stored, so it cannot drift from the underlying truth.
func BadgeFor(p *PickList) Badge {
	if p == nil {
		return BadgePickNeeded
	}
	switch p.Status {
	case PickListStatusPicked:
		return BadgePicked
	case PickListStatusFulfilled:
		return BadgeAllFulfilled
	default:
		return BadgePickNeeded
	}
}
