package domain

import (
	"fmt"
	"time"

	"github.com/arojasjg/milicon/shared-domain/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CartAggregate struct {
	*types.Cart
}

func NewCartAggregate(userID uuid.UUID) *CartAggregate {
	now := time.Now().UTC()
	return &CartAggregate{
		Cart: &types.Cart{
			ID:        uuid.New(),
			UserID:    userID,
			Items:     []types.CartItem{},
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

// ProductSnapshot is the product data frozen into a cart line.
type ProductSnapshot struct {
	ProductID uuid.UUID
	Name      string
	Price     decimal.Decimal
	ImageURL  string
}

// AddItem merges into an existing line for the product or appends a new one.
// An existing line keeps its original snapshot; only the quantity grows.
// CheckAdd fails when adding quantity would push the product's line past
// MaxItemQuantity.
func (c *CartAggregate) CheckAdd(productID uuid.UUID, quantity int) error {
	current := 0
	if i := c.indexOf(productID); i >= 0 {
		current = c.Items[i].Quantity
	}
	if current+quantity > MaxItemQuantity {
		return &ValidationError{Fields: map[string]string{
			"quantity": fmt.Sprintf("cart line would exceed %d units", MaxItemQuantity),
		}}
	}
	return nil
}

func (c *CartAggregate) AddItem(product ProductSnapshot, quantity int) types.CartItem {
	defer c.touch()

	if i := c.indexOf(product.ProductID); i >= 0 {
		c.Items[i].Quantity += quantity
		return c.Items[i]
	}

	item := types.CartItem{
		ID:          uuid.New(),
		ProductID:   product.ProductID,
		ProductName: product.Name,
		Price:       product.Price,
		ImageURL:    product.ImageURL,
		Quantity:    quantity,
	}
	c.Items = append(c.Items, item)
	return item
}

func (c *CartAggregate) UpdateItemQuantity(productID uuid.UUID, quantity int) (types.CartItem, error) {
	i := c.indexOf(productID)
	if i < 0 {
		return types.CartItem{}, ErrCartItemNotFound
	}
	c.Items[i].Quantity = quantity
	c.touch()
	return c.Items[i], nil
}

// RemoveItem reports whether a line was removed.
func (c *CartAggregate) RemoveItem(productID uuid.UUID) bool {
	i := c.indexOf(productID)
	if i < 0 {
		return false
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	c.touch()
	return true
}

func (c *CartAggregate) Clear() {
	c.Items = []types.CartItem{}
	c.touch()
}

func (c *CartAggregate) IsEmpty() bool {
	return len(c.Items) == 0
}

func (c *CartAggregate) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

func (c *CartAggregate) indexOf(productID uuid.UUID) int {
	for i, item := range c.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *CartAggregate) touch() {
	c.UpdatedAt = time.Now().UTC()
}
