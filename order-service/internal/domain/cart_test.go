package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshot(name, price string) ProductSnapshot {
	return ProductSnapshot{
		ProductID: uuid.New(),
		Name:      name,
		Price:     decimal.RequireFromString(price),
		ImageURL:  "https://img.example/" + name + ".png",
	}
}

func TestAddItemMergesSameProduct(t *testing.T) {
	cart := NewCartAggregate(uuid.New())
	ball := snapshot("ball", "10.00")

	cart.AddItem(ball, 2)
	merged := cart.AddItem(ball, 3)

	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, merged.Quantity)
	assert.Equal(t, 5, cart.Items[0].Quantity)
}

func TestAddItemKeepsOriginalSnapshot(t *testing.T) {
	cart := NewCartAggregate(uuid.New())
	ball := snapshot("ball", "10.00")
	cart.AddItem(ball, 1)

	repriced := ball
	repriced.Price = decimal.RequireFromString("12.50")
	cart.AddItem(repriced, 1)

	require.Len(t, cart.Items, 1)
	assert.True(t, decimal.RequireFromString("10.00").Equal(cart.Items[0].Price))
}

func TestCartTotalSumsSubtotals(t *testing.T) {
	cart := NewCartAggregate(uuid.New())
	cart.AddItem(snapshot("a", "10.00"), 2)
	cart.AddItem(snapshot("b", "25.00"), 1)

	assert.True(t, decimal.RequireFromString("45.00").Equal(cart.Total()), cart.Total().String())
}

func TestUpdateItemQuantity(t *testing.T) {
	cart := NewCartAggregate(uuid.New())
	ball := snapshot("ball", "10.00")
	cart.AddItem(ball, 1)

	item, err := cart.UpdateItemQuantity(ball.ProductID, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, item.Quantity)

	_, err = cart.UpdateItemQuantity(uuid.New(), 1)
	assert.ErrorIs(t, err, ErrCartItemNotFound)
}

func TestRemoveAndClear(t *testing.T) {
	cart := NewCartAggregate(uuid.New())
	a := snapshot("a", "1.00")
	b := snapshot("b", "2.00")
	cart.AddItem(a, 1)
	cart.AddItem(b, 1)

	assert.True(t, cart.RemoveItem(a.ProductID))
	assert.False(t, cart.RemoveItem(a.ProductID))
	require.Len(t, cart.Items, 1)
	assert.Equal(t, b.ProductID, cart.Items[0].ProductID)

	cart.Clear()
	assert.True(t, cart.IsEmpty())
	cart.Clear()
	assert.True(t, cart.IsEmpty())
	assert.True(t, decimal.Zero.Equal(cart.Total()))
}
