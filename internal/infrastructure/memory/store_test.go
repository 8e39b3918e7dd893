package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradesmatepro/fulfillment-service/internal/domain"
)

func newJob(t *testing.T, id string) *domain.Job {
	t.Helper()
	job, err := domain.NewJob(id, "T-1", []domain.JobLineItem{
		{ItemID: "ITEM-1", LocationID: "LOC-1", QuantityRequired: decimal.NewFromInt(5)},
	})
	require.NoError(t, err)
	return job
}

func TestJobRepository_SaveAndFind(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	job := newJob(t, "JOB-1")
	require.NoError(t, store.Jobs().Save(ctx, job))
	assert.Equal(t, int64(1), job.Version)

	found, err := store.Jobs().FindByID(ctx, "JOB-1")
	require.NoError(t, err)
	assert.Equal(t, job.ID, found.ID)
	assert.Equal(t, int64(1), found.Version)

	_, err = store.Jobs().FindByID(ctx, "JOB-MISSING")
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestJobRepository_StaleVersionRejected(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	job := newJob(t, "JOB-1")
	require.NoError(t, store.Jobs().Save(ctx, job))

	stale, err := store.Jobs().FindByID(ctx, "JOB-1")
	require.NoError(t, err)

	require.NoError(t, job.Transition(domain.JobStatusScheduled))
	require.NoError(t, store.Jobs().Save(ctx, job))

	require.NoError(t, stale.Transition(domain.JobStatusCancelled))
	assert.ErrorIs(t, store.Jobs().Save(ctx, stale), domain.ErrConcurrentModification)

	// The winning write is untouched.
	current, err := store.Jobs().FindByID(ctx, "JOB-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusScheduled, current.Status)
}

func TestStockLevelRepository_VersionCheck(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	level := domain.NewStockLevel("T-1", "ITEM-1", "LOC-1")
	require.NoError(t, store.StockLevels().Save(ctx, level, 0))
	assert.Equal(t, int64(1), level.Version)

	// A writer that read version 0 lost the race.
	stale := domain.NewStockLevel("T-1", "ITEM-1", "LOC-1")
	assert.ErrorIs(t, store.StockLevels().Save(ctx, stale, 0), domain.ErrConcurrentModification)

	require.NoError(t, store.StockLevels().Save(ctx, level, 1))
	assert.Equal(t, int64(2), level.Version)
}

func TestStockLevelRepository_FindUnknownPairIsNil(t *testing.T) {
	store := NewStore()

	level, err := store.StockLevels().Find(context.Background(), "ITEM-9", "LOC-9")
	require.NoError(t, err)
	assert.Nil(t, level)
}

func TestTxRunner_RollsBackAllWritesOnError(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	job := newJob(t, "JOB-1")
	require.NoError(t, store.Jobs().Save(ctx, job))

	boom := errors.New("boom")
	err := store.Tx().WithinTx(ctx, func(txCtx context.Context) error {
		j, txErr := store.Jobs().FindByID(txCtx, "JOB-1")
		require.NoError(t, txErr)
		require.NoError(t, j.Transition(domain.JobStatusScheduled))
		require.NoError(t, store.Jobs().Save(txCtx, j))

		level := domain.NewStockLevel("T-1", "ITEM-1", "LOC-1")
		require.NoError(t, store.StockLevels().Save(txCtx, level, 0))

		movement, txErr := domain.NewMovement("T-1", "ITEM-1", "LOC-1", domain.MovementAdjustment, decimal.NewFromInt(5), "")
		require.NoError(t, txErr)
		require.NoError(t, store.Movements().Insert(txCtx, movement))

		return boom
	})
	assert.ErrorIs(t, err, boom)

	current, err := store.Jobs().FindByID(ctx, "JOB-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusQuote, current.Status)
	assert.Equal(t, int64(1), current.Version)

	level, err := store.StockLevels().Find(ctx, "ITEM-1", "LOC-1")
	require.NoError(t, err)
	assert.Nil(t, level)

	movements, err := store.Movements().FindByItemLocation(ctx, "ITEM-1", "LOC-1", 0)
	require.NoError(t, err)
	assert.Empty(t, movements)
}

func TestTxRunner_CommitsOnSuccess(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	err := store.Tx().WithinTx(ctx, func(txCtx context.Context) error {
		return store.Jobs().Save(txCtx, newJob(t, "JOB-1"))
	})
	require.NoError(t, err)

	_, err = store.Jobs().FindByID(ctx, "JOB-1")
	assert.NoError(t, err)
}

func TestStore_ReturnsClones(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	job := newJob(t, "JOB-1")
	require.NoError(t, store.Jobs().Save(ctx, job))

	// Mutating a fetched aggregate must not leak into the store.
	fetched, err := store.Jobs().FindByID(ctx, "JOB-1")
	require.NoError(t, err)
	fetched.Status = domain.JobStatusCancelled
	fetched.LineItems[0].QuantityRequired = decimal.NewFromInt(99)

	current, err := store.Jobs().FindByID(ctx, "JOB-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusQuote, current.Status)
	assert.True(t, current.LineItems[0].QuantityRequired.Equal(decimal.NewFromInt(5)))
}

func TestPickListRepository_FindCurrentSkipsDiscarded(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	first := domain.NewPickList("T-1", "JOB-1")
	require.NoError(t, first.AddManualLine("ITEM-1", "LOC-1", decimal.NewFromInt(2)))
	require.NoError(t, first.Discard())
	require.NoError(t, store.PickLists().Save(ctx, first))

	current, err := store.PickLists().FindCurrentByJob(ctx, "JOB-1")
	require.NoError(t, err)
	assert.Nil(t, current)

	second := domain.NewPickList("T-1", "JOB-1")
	require.NoError(t, store.PickLists().Save(ctx, second))

	current, err = store.PickLists().FindCurrentByJob(ctx, "JOB-1")
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, second.ID, current.ID)
}

func TestReservationRepository_ActiveFilters(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	active, err := domain.NewReservation("T-1", "JOB-1", "ITEM-1", "LOC-1", decimal.NewFromInt(3), false)
	require.NoError(t, err)
	require.NoError(t, store.Reservations().Save(ctx, active))

	released, err := domain.NewReservation("T-1", "JOB-1", "ITEM-2", "LOC-1", decimal.NewFromInt(2), false)
	require.NoError(t, err)
	released.Release()
	require.NoError(t, store.Reservations().Save(ctx, released))

	list, err := store.Reservations().FindActiveByJob(ctx, "JOB-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, active.ID, list[0].ID)

	found, err := store.Reservations().FindActiveByJobAndItem(ctx, "JOB-1", "ITEM-2", "LOC-1")
	require.NoError(t, err)
	assert.Nil(t, found)
}
