package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReservation_Lifecycle(t *testing.T) {
	r, err := NewReservation("T-1", "JOB-1", "ITEM-1", "LOC-1", decimal.NewFromInt(5), false)
	require.NoError(t, err)

	assert.True(t, r.IsActive())
	assert.False(t, r.Partial)
	assert.True(t, r.Remaining().Equal(decimal.NewFromInt(5)))

	r.Release()
	assert.False(t, r.IsActive())
	require.NotNil(t, r.ReleasedAt)

	// Releasing again keeps the original timestamp.
	releasedAt := *r.ReleasedAt
	r.Release()
	assert.Equal(t, releasedAt, *r.ReleasedAt)
}

func TestReservation_RejectsNonPositiveQuantity(t *testing.T) {
	_, err := NewReservation("T-1", "JOB-1", "ITEM-1", "LOC-1", decimal.Zero, false)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = NewReservation("T-1", "JOB-1", "ITEM-1", "LOC-1", decimal.NewFromInt(-2), false)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestReservation_TopUp(t *testing.T) {
	r, err := NewReservation("T-1", "JOB-1", "ITEM-1", "LOC-1", decimal.NewFromInt(3), true)
	require.NoError(t, err)

	require.NoError(t, r.TopUp(decimal.NewFromInt(2), false))
	assert.True(t, r.Quantity.Equal(decimal.NewFromInt(5)))
	assert.False(t, r.Partial)

	assert.ErrorIs(t, r.TopUp(decimal.Zero, false), ErrInvalidQuantity)

	r.Release()
	assert.ErrorIs(t, r.TopUp(decimal.NewFromInt(1), false), ErrReservationNotActive)
}

func TestReservation_ConsumeForAllocation(t *testing.T) {
	r, err := NewReservation("T-1", "JOB-1", "ITEM-1", "LOC-1", decimal.NewFromInt(5), false)
	require.NoError(t, err)

	require.NoError(t, r.ConsumeForAllocation(decimal.NewFromInt(3)))
	assert.True(t, r.Remaining().Equal(decimal.NewFromInt(2)))
	assert.True(t, r.IsActive())

	assert.ErrorIs(t, r.ConsumeForAllocation(decimal.NewFromInt(3)), ErrInvalidQuantity)

	// Consuming the remainder auto-releases the hold.
	require.NoError(t, r.ConsumeForAllocation(decimal.NewFromInt(2)))
	assert.False(t, r.IsActive())
	require.NotNil(t, r.ReleasedAt)

	assert.ErrorIs(t, r.ConsumeForAllocation(decimal.NewFromInt(1)), ErrReservationNotActive)
}
