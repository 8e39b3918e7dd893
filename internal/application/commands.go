package application

import (
	"github.com/shopspring/decimal"
)

// JobLineItemInput is a required part on a job create request
type JobLineItemInput struct {
	ItemID           string
	LocationID       string
	QuantityRequired decimal.Decimal
}

// CreateJobCommand creates a job in quote status
type CreateJobCommand struct {
	JobID     string
	LineItems []JobLineItemInput
}

// TransitionJobCommand requests a job status transition
type TransitionJobCommand struct {
	JobID string
	To    string
}

// RecordUsedQuantityCommand overrides the consumed quantity for a job line item
type RecordUsedQuantityCommand struct {
	JobID      string
	ItemID     string
	LocationID string
	Quantity   decimal.Decimal
}

// AppendMovementCommand appends an entry to the inventory ledger
type AppendMovementCommand struct {
	ItemID      string
	LocationID  string
	Type        string
	Quantity    decimal.Decimal
	ReferenceID string
}

// ReserveStockCommand places a soft hold for a job line item
type ReserveStockCommand struct {
	JobID      string
	ItemID     string
	LocationID string
	Quantity   decimal.Decimal
}

// AddManualLineCommand appends a manual line to a pick list
type AddManualLineCommand struct {
	PickListID string
	ItemID     string
	LocationID string
	Quantity   decimal.Decimal
}

// SetLinePickedCommand updates the picked quantity on a pick list line
type SetLinePickedCommand struct {
	PickListID string
	LineIndex  int
	Quantity   decimal.Decimal
}
