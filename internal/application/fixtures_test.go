package application

import (
	"context"
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tradesmatepro/fulfillment-service/internal/domain"
	"github.com/tradesmatepro/fulfillment-service/internal/infrastructure/memory"
	"github.com/tradesmatepro/fulfillment-service/pkg/logging"
)

// fixture wires the full service stack onto the in-memory store, with
// publishing and metrics disabled.
type fixture struct {
	store        *memory.Store
	ledger       *LedgerService
	reservations *ReservationService
	pickLists    *PickListService
	coordinator  *JobCoordinator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logConfig := logging.DefaultConfig("test")
	logConfig.Output = io.Discard
	logger := logging.New(logConfig)

	store := memory.NewStore()
	ledger := NewLedgerService(store.Movements(), store.StockLevels(), store.Tx(), nil, logger, nil)
	reservations := NewReservationService(store.Reservations(), store.StockLevels(), ledger, store.Tx(), nil, logger, nil)
	pickLists := NewPickListService(store.PickLists(), store.Jobs(), store.Reservations(), store.StockLevels(), ledger, store.Tx(), nil, logger, nil)
	coordinator := NewJobCoordinator(store.Jobs(), store.PickLists(), reservations, pickLists, ledger, store.Tx(), nil, logger, nil)

	return &fixture{
		store:        store,
		ledger:       ledger,
		reservations: reservations,
		pickLists:    pickLists,
		coordinator:  coordinator,
	}
}

func (f *fixture) adjust(t *testing.T, itemID, locationID string, qty int64) {
	t.Helper()
	_, err := f.ledger.Append(context.Background(), AppendMovementCommand{
		ItemID:     itemID,
		LocationID: locationID,
		Type:       string(domain.MovementAdjustment),
		Quantity:   decimal.NewFromInt(qty),
	})
	require.NoError(t, err)
}

func (f *fixture) snapshot(t *testing.T, itemID, locationID string) *StockSnapshotDTO {
	t.Helper()
	snap, err := f.ledger.Snapshot(context.Background(), itemID, locationID)
	require.NoError(t, err)
	return snap
}

func (f *fixture) createJob(t *testing.T, jobID string, lines ...JobLineItemInput) *JobDTO {
	t.Helper()
	job, err := f.coordinator.CreateJob(context.Background(), CreateJobCommand{
		JobID:     jobID,
		LineItems: lines,
	})
	require.NoError(t, err)
	return job
}

func (f *fixture) transition(t *testing.T, jobID string, to domain.JobStatus) *JobDTO {
	t.Helper()
	job, err := f.coordinator.Transition(context.Background(), TransitionJobCommand{JobID: jobID, To: string(to)})
	require.NoError(t, err)
	return job
}

func (f *fixture) historyLen(t *testing.T, itemID, locationID string) int {
	t.Helper()
	movements, err := f.ledger.History(context.Background(), itemID, locationID, 1000)
	require.NoError(t, err)
	return len(movements)
}

func lineInput(itemID, locationID string, qty int64) JobLineItemInput {
	return JobLineItemInput{ItemID: itemID, LocationID: locationID, QuantityRequired: decimal.NewFromInt(qty)}
}

func assertDecimal(t *testing.T, expected int64, actual decimal.Decimal) {
	t.Helper()
	require.True(t, actual.Equal(decimal.NewFromInt(expected)), "expected %d, got %s", expected, actual.String())
}
