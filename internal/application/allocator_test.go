package application

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradesmatepro/fulfillment-service/internal/domain"
)

func planJob(t *testing.T, qty int64) *domain.Job {
	t.Helper()
	job, err := domain.NewJob("JOB-1", "T-1", []domain.JobLineItem{
		{ItemID: "ITEM-1", LocationID: "LOC-1", QuantityRequired: decimal.NewFromInt(qty)},
	})
	require.NoError(t, err)
	return job
}

func planReservation(t *testing.T, qty int64) *domain.Reservation {
	t.Helper()
	r, err := domain.NewReservation("T-1", "JOB-1", "ITEM-1", "LOC-1", decimal.NewFromInt(qty), false)
	require.NoError(t, err)
	return r
}

func TestAllocator_BumpsExistingLineBeforeAddingNew(t *testing.T) {
	job := planJob(t, 10)
	pickList := domain.NewPickList("T-1", "JOB-1")
	require.NoError(t, pickList.RefreshFromReservations([]*domain.Reservation{planReservation(t, 6)}))

	plans := NewAllocator().Plan(job, pickList, []*domain.Reservation{planReservation(t, 6)}, map[string]decimal.Decimal{
		"ITEM-1/LOC-1": decimal.NewFromInt(4),
	})

	// 6 from the reservation-backed line, 4 on a new auto-filled line.
	require.Len(t, plans, 2)
	assert.Equal(t, 0, plans[0].LineIndex)
	assertDecimal(t, 6, plans[0].Quantity)
	assert.Equal(t, -1, plans[1].LineIndex)
	assertDecimal(t, 4, plans[1].Quantity)
}

func TestAllocator_CappedByCapacity(t *testing.T) {
	job := planJob(t, 10)
	pickList := domain.NewPickList("T-1", "JOB-1")
	reservation := planReservation(t, 3)
	require.NoError(t, pickList.RefreshFromReservations([]*domain.Reservation{reservation}))

	// Available 2 plus own remaining 3: only 5 of the 10 can be planned.
	plans := NewAllocator().Plan(job, pickList, []*domain.Reservation{reservation}, map[string]decimal.Decimal{
		"ITEM-1/LOC-1": decimal.NewFromInt(2),
	})

	require.Len(t, plans, 2)
	assertDecimal(t, 3, plans[0].Quantity)
	assertDecimal(t, 2, plans[1].Quantity)
}

func TestAllocator_OwnReservationCountsWhenNothingAvailable(t *testing.T) {
	job := planJob(t, 5)
	pickList := domain.NewPickList("T-1", "JOB-1")
	reservation := planReservation(t, 5)
	require.NoError(t, pickList.RefreshFromReservations([]*domain.Reservation{reservation}))

	// Available 0: everything reserved, but the job's own hold still counts.
	plans := NewAllocator().Plan(job, pickList, []*domain.Reservation{reservation}, map[string]decimal.Decimal{})

	require.Len(t, plans, 1)
	assert.Equal(t, 0, plans[0].LineIndex)
	assertDecimal(t, 5, plans[0].Quantity)
}

func TestAllocator_NoPlanWhenFulfilled(t *testing.T) {
	job := planJob(t, 5)
	pickList := domain.NewPickList("T-1", "JOB-1")
	reservation := planReservation(t, 5)
	require.NoError(t, pickList.RefreshFromReservations([]*domain.Reservation{reservation}))
	require.NoError(t, pickList.SetLinePicked(0, decimal.NewFromInt(5)))

	plans := NewAllocator().Plan(job, pickList, []*domain.Reservation{reservation}, map[string]decimal.Decimal{
		"ITEM-1/LOC-1": decimal.NewFromInt(100),
	})
	assert.Empty(t, plans)
}

func TestAllocator_NoPlanWhenNoCapacity(t *testing.T) {
	job := planJob(t, 5)
	pickList := domain.NewPickList("T-1", "JOB-1")

	plans := NewAllocator().Plan(job, pickList, nil, map[string]decimal.Decimal{})
	assert.Empty(t, plans)
}

func TestAllocator_PencilledQuantityReducesCapacity(t *testing.T) {
	job := planJob(t, 10)
	pickList := domain.NewPickList("T-1", "JOB-1")
	require.NoError(t, pickList.AddManualLine("ITEM-1", "LOC-1", decimal.NewFromInt(4)))
	require.NoError(t, pickList.SetLinePicked(0, decimal.NewFromInt(4)))

	// 6 available, 4 already pencilled on the manual line: the manual line
	// covers 4 of the requirement and only 2 of capacity remain.
	plans := NewAllocator().Plan(job, pickList, nil, map[string]decimal.Decimal{
		"ITEM-1/LOC-1": decimal.NewFromInt(6),
	})

	require.Len(t, plans, 1)
	assert.Equal(t, -1, plans[0].LineIndex)
	assertDecimal(t, 2, plans[0].Quantity)
}

func TestAllocator_ManualLineForOtherItemIsFilled(t *testing.T) {
	job := planJob(t, 5)
	pickList := domain.NewPickList("T-1", "JOB-1")
	require.NoError(t, pickList.AddManualLine("ITEM-2", "LOC-1", decimal.NewFromInt(3)))

	plans := NewAllocator().Plan(job, pickList, nil, map[string]decimal.Decimal{
		"ITEM-1/LOC-1": decimal.NewFromInt(5),
		"ITEM-2/LOC-1": decimal.NewFromInt(10),
	})

	// The job's own item gets a new line, the manual line is bumped to its
	// requested quantity even though the job never names ITEM-2.
	require.Len(t, plans, 2)
	assert.Equal(t, -1, plans[0].LineIndex)
	assert.Equal(t, "ITEM-1", plans[0].ItemID)
	assertDecimal(t, 5, plans[0].Quantity)
	assert.Equal(t, 0, plans[1].LineIndex)
	assert.Equal(t, "ITEM-2", plans[1].ItemID)
	assertDecimal(t, 3, plans[1].Quantity)
}

func TestAllocator_DuplicateLineItemsAggregate(t *testing.T) {
	job, err := domain.NewJob("JOB-1", "T-1", []domain.JobLineItem{
		{ItemID: "ITEM-1", LocationID: "LOC-1", QuantityRequired: decimal.NewFromInt(4)},
		{ItemID: "ITEM-1", LocationID: "LOC-1", QuantityRequired: decimal.NewFromInt(3)},
	})
	require.NoError(t, err)

	pickList := domain.NewPickList("T-1", "JOB-1")
	reservation := planReservation(t, 7)
	require.NoError(t, pickList.RefreshFromReservations([]*domain.Reservation{reservation}))

	// Both line items target the same pair; the single reservation-backed
	// line is bumped once to the combined requirement.
	plans := NewAllocator().Plan(job, pickList, []*domain.Reservation{reservation}, map[string]decimal.Decimal{
		"ITEM-1/LOC-1": decimal.NewFromInt(10),
	})

	require.Len(t, plans, 1)
	assert.Equal(t, 0, plans[0].LineIndex)
	assertDecimal(t, 7, plans[0].Quantity)
}
