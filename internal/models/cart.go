package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem is one line of a cart; identity is (product, color, size)
type CartItem struct {
	ID            string          `json:"id" bson:"_id"`
	ProductID     string          `json:"productId" bson:"productId"`
	Quantity      int             `json:"quantity" bson:"quantity"`
	SelectedColor string          `json:"selectedColor" bson:"selectedColor"`
	SelectedSize  string          `json:"selectedSize" bson:"selectedSize"`
	Price         float64         `json:"price" bson:"price"`
	AddedAt       time.Time       `json:"addedAt" bson:"addedAt"`
	Product       *ProductSummary `json:"product,omitempty" bson:"-"`
}

// Subtotal returns price × quantity
func (i CartItem) Subtotal() decimal.Decimal {
	return decimal.NewFromFloat(i.Price).Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is the per-user collection of prospective purchases
type Cart struct {
	ID          string     `json:"id" bson:"_id"`
	UserID      string     `json:"user" bson:"user"`
	Items       []CartItem `json:"items" bson:"items"`
	TotalItems  int        `json:"totalItems" bson:"totalItems"`
	TotalPrice  float64    `json:"totalPrice" bson:"totalPrice"`
	LastUpdated time.Time  `json:"lastUpdated" bson:"lastUpdated"`
	CreatedAt   time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// NewCart returns an empty cart for the user
func NewCart(userID string, now time.Time) *Cart {
	return &Cart{
		ID:          uuid.New().String(),
		UserID:      userID,
		Items:       []CartItem{},
		LastUpdated: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// AddItem merges into the line with the same product, color and size, or appends a new one
func (c *Cart) AddItem(productID string, quantity int, color, size string, price float64, now time.Time) CartItem {
	for i := range c.Items {
		item := &c.Items[i]
		if item.ProductID == productID && item.SelectedColor == color && item.SelectedSize == size {
			item.Quantity += quantity
			c.Recalculate(now)
			return *item
		}
	}

	item := CartItem{
		ID:            uuid.New().String(),
		ProductID:     productID,
		Quantity:      quantity,
		SelectedColor: color,
		SelectedSize:  size,
		Price:         price,
		AddedAt:       now,
	}
	c.Items = append(c.Items, item)
	c.Recalculate(now)
	return item
}

// UpdateItemQuantity sets the quantity of the line with the given id
func (c *Cart) UpdateItemQuantity(itemID string, quantity int, now time.Time) error {
	if quantity < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
	}
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			c.Items[i].Quantity = quantity
			c.Recalculate(now)
			return nil
		}
	}
	return fmt.Errorf("cart item %s: %w", itemID, ErrNotFound)
}

// RemoveItem drops the line with the given id
func (c *Cart) RemoveItem(itemID string, now time.Time) error {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			c.Recalculate(now)
			return nil
		}
	}
	return fmt.Errorf("cart item %s: %w", itemID, ErrNotFound)
}

// Clear empties the cart
func (c *Cart) Clear(now time.Time) {
	c.Items = []CartItem{}
	c.Recalculate(now)
}

// IsEmpty reports whether the cart has no lines
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Recalculate refreshes totalItems and totalPrice from the lines
func (c *Cart) Recalculate(now time.Time) {
	totalItems := 0
	totalPrice := decimal.Zero
	for _, item := range c.Items {
		totalItems += item.Quantity
		totalPrice = totalPrice.Add(item.Subtotal())
	}

	c.TotalItems = totalItems
	c.TotalPrice = totalPrice.Round(2).InexactFloat64()
	c.LastUpdated = now
	c.UpdatedAt = now
}

// AddToCartRequest represents the request to add a product to the cart
type AddToCartRequest struct {
	ProductID     string `json:"productId" binding:"required"`
	Quantity      int    `json:"quantity" binding:"required,gt=0"`
	SelectedColor string `json:"selectedColor"`
	SelectedSize  string `json:"selectedSize"`
}

// UpdateCartItemRequest represents the request to change a line quantity
type UpdateCartItemRequest struct {
	ItemID   string `json:"itemId" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
}

// CartResponse wraps a cart in the response envelope
type CartResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Cart    *Cart  `json:"cart"`
}
