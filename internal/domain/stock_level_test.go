package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustMovement(t *testing.T, movType MovementType, qty int64) *Movement {
	t.Helper()
	m, err := NewMovement("T-1", "ITEM-1", "LOC-1", movType, decimal.NewFromInt(qty), "REF-1")
	require.NoError(t, err)
	return m
}

func TestStockLevel_ApplyFoldsByType(t *testing.T) {
	level := NewStockLevel("T-1", "ITEM-1", "LOC-1")

	require.NoError(t, level.Apply(mustMovement(t, MovementAdjustment, 10)))
	assert.True(t, level.OnHand.Equal(decimal.NewFromInt(10)))
	assert.True(t, level.Available().Equal(decimal.NewFromInt(10)))

	require.NoError(t, level.Apply(mustMovement(t, MovementReservation, 4)))
	assert.True(t, level.Reserved.Equal(decimal.NewFromInt(4)))
	assert.True(t, level.Available().Equal(decimal.NewFromInt(6)))

	require.NoError(t, level.Apply(mustMovement(t, MovementRelease, -4)))
	require.NoError(t, level.Apply(mustMovement(t, MovementAllocation, 4)))
	assert.True(t, level.Reserved.IsZero())
	assert.True(t, level.Allocated.Equal(decimal.NewFromInt(4)))
	assert.True(t, level.Available().Equal(decimal.NewFromInt(6)))

	require.NoError(t, level.Apply(mustMovement(t, MovementAllocation, -4)))
	require.NoError(t, level.Apply(mustMovement(t, MovementUsage, -4)))
	assert.True(t, level.OnHand.Equal(decimal.NewFromInt(6)))
	assert.True(t, level.Allocated.IsZero())
	assert.True(t, level.Available().Equal(decimal.NewFromInt(6)))
}

func TestStockLevel_ApplyRejectsOversell(t *testing.T) {
	level := NewStockLevel("T-1", "ITEM-1", "LOC-1")
	require.NoError(t, level.Apply(mustMovement(t, MovementAdjustment, 5)))

	// A hold larger than availability leaves the level untouched.
	err := level.Apply(mustMovement(t, MovementReservation, 6))
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.True(t, level.Reserved.IsZero())
	assert.True(t, level.OnHand.Equal(decimal.NewFromInt(5)))
}

func TestStockLevel_ApplyRejectsNegativeCounters(t *testing.T) {
	level := NewStockLevel("T-1", "ITEM-1", "LOC-1")

	assert.ErrorIs(t, level.Apply(mustMovement(t, MovementUsage, -1)), ErrInsufficientStock)
	assert.ErrorIs(t, level.Apply(mustMovement(t, MovementRelease, -1)), ErrInsufficientStock)

	require.NoError(t, level.Apply(mustMovement(t, MovementAdjustment, 3)))
	assert.ErrorIs(t, level.Apply(mustMovement(t, MovementAllocation, -1)), ErrInsufficientStock)
}

func TestStockLevel_ReservedStockNotAvailable(t *testing.T) {
	level := NewStockLevel("T-1", "ITEM-1", "LOC-1")
	require.NoError(t, level.Apply(mustMovement(t, MovementAdjustment, 10)))
	require.NoError(t, level.Apply(mustMovement(t, MovementReservation, 10)))

	// Fully reserved: a second hold of any size must fail.
	assert.ErrorIs(t, level.Apply(mustMovement(t, MovementReservation, 1)), ErrInsufficientStock)
}

func TestStockLevel_Snapshot(t *testing.T) {
	level := NewStockLevel("T-1", "ITEM-1", "LOC-1")
	require.NoError(t, level.Apply(mustMovement(t, MovementAdjustment, 8)))
	require.NoError(t, level.Apply(mustMovement(t, MovementReservation, 3)))

	snap := level.ToSnapshot()
	assert.Equal(t, "ITEM-1", snap.ItemID)
	assert.True(t, snap.OnHand.Equal(decimal.NewFromInt(8)))
	assert.True(t, snap.Reserved.Equal(decimal.NewFromInt(3)))
	assert.True(t, snap.Available.Equal(decimal.NewFromInt(5)))
}

func TestNewMovement_SignRules(t *testing.T) {
	_, err := NewMovement("T-1", "ITEM-1", "LOC-1", MovementReservation, decimal.NewFromInt(-1), "")
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = NewMovement("T-1", "ITEM-1", "LOC-1", MovementRelease, decimal.NewFromInt(1), "")
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = NewMovement("T-1", "ITEM-1", "LOC-1", MovementUsage, decimal.NewFromInt(1), "")
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = NewMovement("T-1", "ITEM-1", "LOC-1", MovementAdjustment, decimal.Zero, "")
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	// ADJUSTMENT and ALLOCATION are signed.
	_, err = NewMovement("T-1", "ITEM-1", "LOC-1", MovementAdjustment, decimal.NewFromInt(-2), "")
	require.NoError(t, err)
	_, err = NewMovement("T-1", "ITEM-1", "LOC-1", MovementAllocation, decimal.NewFromInt(-2), "")
	require.NoError(t, err)

	_, err = NewMovement("T-1", "ITEM-1", "LOC-1", MovementType("TRANSFER"), decimal.NewFromInt(1), "")
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}
