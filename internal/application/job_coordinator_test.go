package application

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradesmatepro/fulfillment-service/internal/domain"
)

func TestJobCoordinator_CreateJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	job, err := f.coordinator.CreateJob(ctx, CreateJobCommand{
		LineItems: []JobLineItemInput{lineInput("ITEM-1", "LOC-1", 5)},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, job.ID)
	assert.Equal(t, string(domain.JobStatusQuote), job.Status)
	assert.Equal(t, string(domain.BadgePickNeeded), job.Badge)
	require.Len(t, job.LineItems, 1)

	fetched, err := f.coordinator.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, fetched.ID)
}

func TestJobCoordinator_GetJobNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.coordinator.GetJob(context.Background(), "JOB-MISSING")
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestJobCoordinator_ScheduleReservesLineItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.adjust(t, "ITEM-1", "LOC-1", 10)
	f.createJob(t, "JOB-1", lineInput("ITEM-1", "LOC-1", 6))

	job := f.transition(t, "JOB-1", domain.JobStatusScheduled)
	assert.Equal(t, string(domain.JobStatusScheduled), job.Status)

	active, err := f.reservations.ActiveByJob(ctx, "JOB-1")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assertDecimal(t, 6, active[0].Quantity)

	snap := f.snapshot(t, "ITEM-1", "LOC-1")
	assertDecimal(t, 6, snap.Reserved)
	assertDecimal(t, 4, snap.Available)
}

func TestJobCoordinator_ScheduleToleratesShortfall(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.adjust(t, "ITEM-1", "LOC-1", 2)
	f.createJob(t, "JOB-1", lineInput("ITEM-1", "LOC-1", 6))

	// Scheduling succeeds with a partial hold; the shortfall is not an error.
	f.transition(t, "JOB-1", domain.JobStatusScheduled)

	active, err := f.reservations.ActiveByJob(ctx, "JOB-1")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assertDecimal(t, 2, active[0].Quantity)
	assert.True(t, active[0].Partial)
}

func TestJobCoordinator_InProgressGeneratesPickList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.adjust(t, "ITEM-1", "LOC-1", 10)
	f.createJob(t, "JOB-1", lineInput("ITEM-1", "LOC-1", 6))
	f.transition(t, "JOB-1", domain.JobStatusScheduled)
	f.transition(t, "JOB-1", domain.JobStatusInProgress)

	pickList, err := f.pickLists.GetByJob(ctx, "JOB-1")
	require.NoError(t, err)
	require.Len(t, pickList.Lines, 1)
	assertDecimal(t, 6, pickList.Lines[0].QuantityRequested)
}

func TestJobCoordinator_FullLifecycleSettlesLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.adjust(t, "ITEM-1", "LOC-1", 10)
	f.createJob(t, "JOB-1", lineInput("ITEM-1", "LOC-1", 10))

	f.transition(t, "JOB-1", domain.JobStatusScheduled)
	f.transition(t, "JOB-1", domain.JobStatusInProgress)

	filled, err := f.pickLists.AutoFillRemaining(ctx, "JOB-1")
	require.NoError(t, err)
	_, err = f.pickLists.ConfirmPick(ctx, filled.ID)
	require.NoError(t, err)

	job := f.transition(t, "JOB-1", domain.JobStatusCompleted)
	assert.Equal(t, string(domain.JobStatusCompleted), job.Status)
	assert.Equal(t, string(domain.BadgePicked), job.Badge)

	// Ten received, ten consumed: every counter settles to zero on-hand.
	snap := f.snapshot(t, "ITEM-1", "LOC-1")
	assertDecimal(t, 0, snap.OnHand)
	assertDecimal(t, 0, snap.Reserved)
	assertDecimal(t, 0, snap.Allocated)
	assertDecimal(t, 0, snap.Available)

	// The replayed ledger agrees with the running totals.
	rebuilt, err := f.ledger.Recompute(ctx, "ITEM-1", "LOC-1")
	require.NoError(t, err)
	assertDecimal(t, 0, rebuilt.OnHand)
	assertDecimal(t, 0, rebuilt.Available)

	f.transition(t, "JOB-1", domain.JobStatusInvoiced)
}

func TestJobCoordinator_CompletionConfirmsUnconfirmedPickList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.adjust(t, "ITEM-1", "LOC-1", 10)
	f.createJob(t, "JOB-1", lineInput("ITEM-1", "LOC-1", 10))
	f.transition(t, "JOB-1", domain.JobStatusScheduled)
	f.transition(t, "JOB-1", domain.JobStatusInProgress)

	_, err := f.pickLists.AutoFillRemaining(ctx, "JOB-1")
	require.NoError(t, err)

	// No explicit confirm: completion picks up the fulfilled list itself.
	f.transition(t, "JOB-1", domain.JobStatusCompleted)

	pickList, err := f.pickLists.GetByJob(ctx, "JOB-1")
	require.NoError(t, err)
	assert.Equal(t, string(domain.PickListStatusPicked), pickList.Status)

	snap := f.snapshot(t, "ITEM-1", "LOC-1")
	assertDecimal(t, 0, snap.OnHand)
	assertDecimal(t, 0, snap.Available)
}

func TestJobCoordinator_UsedQuantityOverridesPicked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.adjust(t, "ITEM-1", "LOC-1", 10)
	f.createJob(t, "JOB-1", lineInput("ITEM-1", "LOC-1", 10))
	f.transition(t, "JOB-1", domain.JobStatusScheduled)
	f.transition(t, "JOB-1", domain.JobStatusInProgress)

	filled, err := f.pickLists.AutoFillRemaining(ctx, "JOB-1")
	require.NoError(t, err)
	_, err = f.pickLists.ConfirmPick(ctx, filled.ID)
	require.NoError(t, err)

	// Ten picked, seven actually used: three return to stock.
	_, err = f.coordinator.RecordUsedQuantity(ctx, RecordUsedQuantityCommand{
		JobID:      "JOB-1",
		ItemID:     "ITEM-1",
		LocationID: "LOC-1",
		Quantity:   decimal.NewFromInt(7),
	})
	require.NoError(t, err)

	f.transition(t, "JOB-1", domain.JobStatusCompleted)

	snap := f.snapshot(t, "ITEM-1", "LOC-1")
	assertDecimal(t, 3, snap.OnHand)
	assertDecimal(t, 0, snap.Allocated)
	assertDecimal(t, 3, snap.Available)
}

func TestJobCoordinator_CompletionAbortsWhenPickCannotBeCovered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.adjust(t, "ITEM-1", "LOC-1", 5)
	f.createJob(t, "JOB-1", lineInput("ITEM-1", "LOC-1", 5))
	f.transition(t, "JOB-1", domain.JobStatusScheduled)
	f.transition(t, "JOB-1", domain.JobStatusInProgress)

	pickList, err := f.pickLists.GetByJob(ctx, "JOB-1")
	require.NoError(t, err)

	// A manual over-pick of a part with no stock poisons the confirmation.
	_, err = f.pickLists.AddManualLine(ctx, AddManualLineCommand{
		PickListID: pickList.ID, ItemID: "ITEM-2", LocationID: "LOC-1", Quantity: decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	_, err = f.pickLists.SetLinePicked(ctx, SetLinePickedCommand{
		PickListID: pickList.ID, LineIndex: 1, Quantity: decimal.NewFromInt(10),
	})
	require.NoError(t, err)

	_, err = f.coordinator.Transition(ctx, TransitionJobCommand{JobID: "JOB-1", To: string(domain.JobStatusCompleted)})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	// The transition rolled back whole: job and holds are untouched.
	job, err := f.coordinator.GetJob(ctx, "JOB-1")
	require.NoError(t, err)
	assert.Equal(t, string(domain.JobStatusInProgress), job.Status)

	active, err := f.reservations.ActiveByJob(ctx, "JOB-1")
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestJobCoordinator_CancelReleasesAndDiscards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.adjust(t, "ITEM-1", "LOC-1", 10)
	f.createJob(t, "JOB-1", lineInput("ITEM-1", "LOC-1", 6))
	f.transition(t, "JOB-1", domain.JobStatusScheduled)
	f.transition(t, "JOB-1", domain.JobStatusInProgress)

	f.transition(t, "JOB-1", domain.JobStatusCancelled)

	snap := f.snapshot(t, "ITEM-1", "LOC-1")
	assertDecimal(t, 0, snap.Reserved)
	assertDecimal(t, 10, snap.Available)

	// The discarded list no longer reads as current.
	_, err := f.pickLists.GetByJob(ctx, "JOB-1")
	assert.ErrorIs(t, err, domain.ErrPickListNotFound)

	// Terminal: nothing further is allowed.
	_, err = f.coordinator.Transition(ctx, TransitionJobCommand{JobID: "JOB-1", To: string(domain.JobStatusScheduled)})
	assert.True(t, domain.IsInvalidTransition(err))
}

func TestJobCoordinator_RejectsInvalidTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.createJob(t, "JOB-1")

	_, err := f.coordinator.Transition(ctx, TransitionJobCommand{JobID: "JOB-1", To: string(domain.JobStatusCompleted)})
	assert.True(t, domain.IsInvalidTransition(err))

	_, err = f.coordinator.Transition(ctx, TransitionJobCommand{JobID: "JOB-1", To: "shipped"})
	assert.Error(t, err)

	job, err := f.coordinator.GetJob(ctx, "JOB-1")
	require.NoError(t, err)
	assert.Equal(t, string(domain.JobStatusQuote), job.Status)
}

func TestJobCoordinator_SameStatusTransitionIsNoop(t *testing.T) {
	f := newFixture(t)

	f.adjust(t, "ITEM-1", "LOC-1", 10)
	f.createJob(t, "JOB-1", lineInput("ITEM-1", "LOC-1", 6))
	f.transition(t, "JOB-1", domain.JobStatusScheduled)
	entries := f.historyLen(t, "ITEM-1", "LOC-1")

	job := f.transition(t, "JOB-1", domain.JobStatusScheduled)
	assert.Equal(t, string(domain.JobStatusScheduled), job.Status)

	// The repeat did not reserve again.
	assert.Equal(t, entries, f.historyLen(t, "ITEM-1", "LOC-1"))
}

func TestJobCoordinator_RecordUsedQuantityRejectedWhenTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.createJob(t, "JOB-1", lineInput("ITEM-1", "LOC-1", 5))
	f.transition(t, "JOB-1", domain.JobStatusCancelled)

	_, err := f.coordinator.RecordUsedQuantity(ctx, RecordUsedQuantityCommand{
		JobID:      "JOB-1",
		ItemID:     "ITEM-1",
		LocationID: "LOC-1",
		Quantity:   decimal.NewFromInt(2),
	})
	assert.ErrorIs(t, err, domain.ErrLineItemsImmutable)
}
