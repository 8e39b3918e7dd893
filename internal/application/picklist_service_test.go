package application

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradesmatepro/fulfillment-service/internal/domain"
)

func TestPickListService_GenerateRequiresJob(t *testing.T) {
	f := newFixture(t)

	_, err := f.pickLists.GenerateForJob(context.Background(), "JOB-MISSING")
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestPickListService_GenerateFromReservations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.adjust(t, "ITEM-1", "LOC-1", 10)
	f.createJob(t, "JOB-1", lineInput("ITEM-1", "LOC-1", 6))
	f.transition(t, "JOB-1", domain.JobStatusScheduled)

	pickList, err := f.pickLists.GenerateForJob(ctx, "JOB-1")
	require.NoError(t, err)

	assert.Equal(t, string(domain.PickListStatusInProgress), pickList.Status)
	require.Len(t, pickList.Lines, 1)
	assert.Equal(t, string(domain.LineSourceReservation), pickList.Lines[0].Source)
	assertDecimal(t, 6, pickList.Lines[0].QuantityRequested)
	assertDecimal(t, 0, pickList.Lines[0].QuantityPicked)

	// Repeating the generation reuses the same list and line set.
	again, err := f.pickLists.GenerateForJob(ctx, "JOB-1")
	require.NoError(t, err)
	assert.Equal(t, pickList.ID, again.ID)
	assert.Equal(t, pickList.Lines, again.Lines)
}

func TestPickListService_GetByJobAndBadge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.createJob(t, "JOB-1", lineInput("ITEM-1", "LOC-1", 2))

	_, err := f.pickLists.GetByJob(ctx, "JOB-1")
	assert.ErrorIs(t, err, domain.ErrPickListNotFound)

	badge, err := f.pickLists.Badge(ctx, "JOB-1")
	require.NoError(t, err)
	assert.Equal(t, domain.BadgePickNeeded, badge)
}

func TestPickListService_ManualLineAndPickProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.createJob(t, "JOB-1")
	f.transition(t, "JOB-1", domain.JobStatusScheduled)
	generated, err := f.pickLists.GenerateForJob(ctx, "JOB-1")
	require.NoError(t, err)

	withLine, err := f.pickLists.AddManualLine(ctx, AddManualLineCommand{
		PickListID: generated.ID,
		ItemID:     "ITEM-7",
		LocationID: "LOC-1",
		Quantity:   decimal.NewFromInt(3),
	})
	require.NoError(t, err)
	require.Len(t, withLine.Lines, 1)
	assert.Equal(t, string(domain.LineSourceManual), withLine.Lines[0].Source)

	picked, err := f.pickLists.SetLinePicked(ctx, SetLinePickedCommand{
		PickListID: generated.ID,
		LineIndex:  0,
		Quantity:   decimal.NewFromInt(3),
	})
	require.NoError(t, err)
	assert.Equal(t, string(domain.PickListStatusFulfilled), picked.Status)
	assert.Equal(t, string(domain.BadgeAllFulfilled), picked.Badge)

	// Lowering the picked quantity is rejected.
	_, err = f.pickLists.SetLinePicked(ctx, SetLinePickedCommand{
		PickListID: generated.ID,
		LineIndex:  0,
		Quantity:   decimal.NewFromInt(1),
	})
	assert.ErrorIs(t, err, domain.ErrPickedBelowCurrent)
}

func TestPickListService_AutoFillUsesOwnReservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.adjust(t, "ITEM-1", "LOC-1", 6)
	f.createJob(t, "JOB-1", lineInput("ITEM-1", "LOC-1", 10))
	f.transition(t, "JOB-1", domain.JobStatusScheduled)

	// Only 6 were reservable; auto-fill pencils exactly those 6.
	filled, err := f.pickLists.AutoFillRemaining(ctx, "JOB-1")
	require.NoError(t, err)

	require.Len(t, filled.Lines, 1)
	assertDecimal(t, 6, filled.Lines[0].QuantityPicked)
	assert.Equal(t, string(domain.PickListStatusFulfilled), filled.Status)

	// Nothing moved on the ledger yet.
	snap := f.snapshot(t, "ITEM-1", "LOC-1")
	assertDecimal(t, 6, snap.Reserved)
	assertDecimal(t, 0, snap.Allocated)
}

func TestPickListService_ConfirmPickConvertsToAllocation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.adjust(t, "ITEM-1", "LOC-1", 10)
	f.createJob(t, "JOB-1", lineInput("ITEM-1", "LOC-1", 6))
	f.transition(t, "JOB-1", domain.JobStatusScheduled)

	filled, err := f.pickLists.AutoFillRemaining(ctx, "JOB-1")
	require.NoError(t, err)

	confirmed, err := f.pickLists.ConfirmPick(ctx, filled.ID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.PickListStatusPicked), confirmed.Status)
	require.NotNil(t, confirmed.PickedAt)

	// The soft hold became a hard allocation; nothing left reserved.
	snap := f.snapshot(t, "ITEM-1", "LOC-1")
	assertDecimal(t, 10, snap.OnHand)
	assertDecimal(t, 0, snap.Reserved)
	assertDecimal(t, 6, snap.Allocated)
	assertDecimal(t, 4, snap.Available)

	// The fully consumed reservation auto-released.
	active, err := f.reservations.ActiveByJob(ctx, "JOB-1")
	require.NoError(t, err)
	assert.Empty(t, active)

	// Confirming twice is rejected, the list is frozen.
	_, err = f.pickLists.ConfirmPick(ctx, filled.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyPicked)
}

func TestPickListService_ConfirmPickIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.adjust(t, "ITEM-1", "LOC-1", 5)
	f.createJob(t, "JOB-1")
	f.transition(t, "JOB-1", domain.JobStatusScheduled)
	generated, err := f.pickLists.GenerateForJob(ctx, "JOB-1")
	require.NoError(t, err)

	// First line is coverable, second exceeds on-hand stock.
	_, err = f.pickLists.AddManualLine(ctx, AddManualLineCommand{
		PickListID: generated.ID, ItemID: "ITEM-1", LocationID: "LOC-1", Quantity: decimal.NewFromInt(3),
	})
	require.NoError(t, err)
	_, err = f.pickLists.AddManualLine(ctx, AddManualLineCommand{
		PickListID: generated.ID, ItemID: "ITEM-1", LocationID: "LOC-1", Quantity: decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	for i, qty := range []int64{3, 10} {
		_, err = f.pickLists.SetLinePicked(ctx, SetLinePickedCommand{
			PickListID: generated.ID, LineIndex: i, Quantity: decimal.NewFromInt(qty),
		})
		require.NoError(t, err)
	}
	entries := f.historyLen(t, "ITEM-1", "LOC-1")

	_, err = f.pickLists.ConfirmPick(ctx, generated.ID)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	// The first line's allocation rolled back with the rest.
	assert.Equal(t, entries, f.historyLen(t, "ITEM-1", "LOC-1"))
	snap := f.snapshot(t, "ITEM-1", "LOC-1")
	assertDecimal(t, 0, snap.Allocated)

	current, err := f.pickLists.Get(ctx, generated.ID)
	require.NoError(t, err)
	assert.NotEqual(t, string(domain.PickListStatusPicked), current.Status)
	assert.Nil(t, current.PickedAt)
}

func TestPickListService_AutoFillCoversManualLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.adjust(t, "ITEM-1", "LOC-1", 5)
	f.adjust(t, "ITEM-2", "LOC-1", 10)
	f.createJob(t, "JOB-1", lineInput("ITEM-1", "LOC-1", 5))
	f.transition(t, "JOB-1", domain.JobStatusScheduled)

	generated, err := f.pickLists.GenerateForJob(ctx, "JOB-1")
	require.NoError(t, err)
	_, err = f.pickLists.AddManualLine(ctx, AddManualLineCommand{
		PickListID: generated.ID,
		ItemID:     "ITEM-2",
		LocationID: "LOC-1",
		Quantity:   decimal.NewFromInt(3),
	})
	require.NoError(t, err)

	// Auto-fill covers the manual line too, not just the job's line items.
	filled, err := f.pickLists.AutoFillRemaining(ctx, "JOB-1")
	require.NoError(t, err)
	require.Len(t, filled.Lines, 2)
	assertDecimal(t, 5, filled.Lines[0].QuantityPicked)
	assert.Equal(t, "ITEM-2", filled.Lines[1].ItemID)
	assertDecimal(t, 3, filled.Lines[1].QuantityPicked)
	assert.Equal(t, string(domain.PickListStatusFulfilled), filled.Status)

	// Still only pencilled: nothing allocated for ITEM-2 yet.
	snap := f.snapshot(t, "ITEM-2", "LOC-1")
	assertDecimal(t, 0, snap.Reserved)
	assertDecimal(t, 0, snap.Allocated)
}
