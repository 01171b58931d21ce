package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sumLines(c *Cart) float64 {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total.Round(2).InexactFloat64()
}

func TestCart_AddItem_MergesIdenticalVariant(t *testing.T) {
	now := time.Now()
	c := NewCart("user-1", now)

	first := c.AddItem("P1", 1, "Black", "M", 10, now)
	second := c.AddItem("P1", 2, "Black", "M", 10, now)

	require.Len(t, c.Items, 1)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 3, c.Items[0].Quantity)
	assert.Equal(t, 3, c.TotalItems)
	assert.InDelta(t, 30.0, c.TotalPrice, 1e-9)
}

func TestCart_AddItem_DifferentVariantsAreSeparateLines(t *testing.T) {
	now := time.Now()
	c := NewCart("user-1", now)

	c.AddItem("P1", 1, "Black", "M", 10, now)
	c.AddItem("P1", 1, "White", "M", 10, now)
	c.AddItem("P1", 1, "Black", "L", 10, now)
	c.AddItem("P2", 1, "Black", "M", 5, now)

	assert.Len(t, c.Items, 4)
	assert.Equal(t, 4, c.TotalItems)
	assert.InDelta(t, 35.0, c.TotalPrice, 1e-9)
}

func TestCart_TotalsFollowEveryMutation(t *testing.T) {
	now := time.Now()
	c := NewCart("user-1", now)

	a := c.AddItem("P1", 3, "", "", 19.99, now)
	b := c.AddItem("P2", 1, "", "", 0.1, now)
	c.AddItem("P3", 7, "", "", 0.2, now)
	assert.Equal(t, sumLines(c), c.TotalPrice)
	assert.InDelta(t, 61.47, c.TotalPrice, 1e-9)

	require.NoError(t, c.UpdateItemQuantity(a.ID, 1, now))
	assert.Equal(t, sumLines(c), c.TotalPrice)
	assert.Equal(t, 9, c.TotalItems)

	require.NoError(t, c.RemoveItem(b.ID, now))
	assert.Equal(t, sumLines(c), c.TotalPrice)
	assert.Equal(t, 8, c.TotalItems)

	c.Clear(now)
	assert.True(t, c.IsEmpty())
	assert.Zero(t, c.TotalItems)
	assert.Zero(t, c.TotalPrice)
}

func TestCart_UpdateItemQuantity_Errors(t *testing.T) {
	now := time.Now()
	c := NewCart("user-1", now)
	item := c.AddItem("P1", 1, "", "", 10, now)

	assert.ErrorIs(t, c.UpdateItemQuantity(item.ID, 0, now), ErrValidation)
	assert.ErrorIs(t, c.UpdateItemQuantity("missing", 2, now), ErrNotFound)
	assert.Equal(t, 1, c.Items[0].Quantity)
}

func TestCart_RemoveItem_Unknown(t *testing.T) {
	now := time.Now()
	c := NewCart("user-1", now)
	c.AddItem("P1", 1, "", "", 10, now)

	assert.ErrorIs(t, c.RemoveItem("missing", now), ErrNotFound)
	assert.Len(t, c.Items, 1)
}
