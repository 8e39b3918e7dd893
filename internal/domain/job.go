package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// JobStatus represents the lifecycle state of a job.
type JobStatus string

const (
	JobStatusQuote      JobStatus = "quote"
	JobStatusScheduled  JobStatus = "scheduled"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusInvoiced   JobStatus = "invoiced"
	JobStatusCancelled  JobStatus = "cancelled"
)

// IsValid checks if the status is valid
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusQuote, JobStatusScheduled, JobStatusInProgress,
		JobStatusCompleted, JobStatusInvoiced, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transitions are allowed.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusInvoiced || s == JobStatusCancelled
}

// jobTransitions is the closed transition table. Cancelled is reachable from
// every non-terminal state.
var jobTransitions = map[JobStatus][]JobStatus{
	JobStatusQuote:      {JobStatusScheduled, JobStatusCancelled},
	JobStatusScheduled:  {JobStatusInProgress, JobStatusCancelled},
	JobStatusInProgress: {JobStatusCompleted, JobStatusCancelled},
	JobStatusCompleted:  {JobStatusInvoiced, JobStatusCancelled},
	JobStatusInvoiced:   {},
	JobStatusCancelled:  {},
}

// JobLineItem is a required part/quantity on a job. UsedQuantity, when set,
// overrides the picked quantity at completion as the consumed amount.
type JobLineItem struct {
	ItemID           string
	LocationID       string
	QuantityRequired decimal.Decimal
	UsedQuantity     *decimal.Decimal
}

// Job is the aggregate root for a unit of billable work. The coordinator is
// the only writer of Status; jobs are created externally by the quoting flow
// and never deleted, only soft-cancelled.
type Job struct {
	ID        string
	TenantID  string
	Status    JobStatus
	LineItems []JobLineItem
	Version   int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewJob creates a job in Quote status.
func NewJob(id, tenantID string, lineItems []JobLineItem) (*Job, error) {
	for i := range lineItems {
		if lineItems[i].QuantityRequired.IsNegative() {
			return nil, ErrInvalidQuantity
		}
	}

	now := time.Now().UTC()
	return &Job{
		ID:        id,
		TenantID:  tenantID,
		Status:    JobStatusQuote,
		LineItems: lineItems,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CanTransition reports whether the table allows current -> to.
func (j *Job) CanTransition(to JobStatus) bool {
	for _, allowed := range jobTransitions[j.Status] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition moves the job to the requested status, rejecting out-of-order
// requests with an error naming both states.
func (j *Job) Transition(to JobStatus) error {
	if !j.CanTransition(to) {
		return &InvalidTransitionError{From: j.Status, To: to}
	}

	j.Status = to
	j.UpdatedAt = time.Now().UTC()

	return nil
}

// AddLineItem appends a required part. Line items are immutable once the job
// leaves Quote status; change orders go through a separate path.
func (j *Job) AddLineItem(item JobLineItem) error {
	if j.Status != JobStatusQuote {
		return ErrLineItemsImmutable
	}
	if item.QuantityRequired.IsNegative() {
		return ErrInvalidQuantity
	}

	j.LineItems = append(j.LineItems, item)
	j.UpdatedAt = time.Now().UTC()

	return nil
}

// RecordUsedQuantity stores the actually consumed quantity for a line item,
// overriding the picked-quantity default at completion.
func (j *Job) RecordUsedQuantity(itemID, locationID string, qty decimal.Decimal) error {
	if qty.IsNegative() {
		return ErrInvalidQuantity
	}
	for i := range j.LineItems {
		if j.LineItems[i].ItemID == itemID && j.LineItems[i].LocationID == locationID {
			q := qty
			j.LineItems[i].UsedQuantity = &q
			j.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return ErrLineNotFound
}
