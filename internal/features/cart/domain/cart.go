package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQuantity   = errors.New("quantity must be at least 1")
	ErrItemNotInCart     = errors.New("item not in cart")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// CartItem is one product line in a cart. Name and price are snapshots from
// the catalog at add time; the order pipeline re-reads both when the cart is
// checked out.
type CartItem struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

// Cart is a user's pending selection, kept in Redis until checkout.
type Cart struct {
	UserID    uuid.UUID  `json:"user_id"`
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewCart creates an empty cart for the given user.
func NewCart(userID uuid.UUID) *Cart {
	return &Cart{
		UserID:    userID,
		UpdatedAt: time.Now(),
	}
}

// Upsert adds a product line or bumps the quantity of an existing one.
func (c *Cart) Upsert(item CartItem) error {
	if item.Quantity < 1 {
		return ErrInvalidQuantity
	}

	for i := range c.Items {
		if c.Items[i].ProductID == item.ProductID {
			c.Items[i].Quantity += item.Quantity
			c.Items[i].ProductName = item.ProductName
			c.Items[i].Price = item.Price
			c.UpdatedAt = time.Now()
			return nil
		}
	}

	c.Items = append(c.Items, item)
	c.UpdatedAt = time.Now()
	return nil
}

// SetQuantity replaces the quantity of an existing product line.
func (c *Cart) SetQuantity(productID uuid.UUID, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity = quantity
			c.UpdatedAt = time.Now()
			return nil
		}
	}
	return ErrItemNotInCart
}

// Remove drops a product line from the cart.
func (c *Cart) Remove(productID uuid.UUID) error {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			c.UpdatedAt = time.Now()
			return nil
		}
	}
	return ErrItemNotInCart
}

// Total sums the snapshot subtotals. Shipping is not included; the order
// pipeline adds it at checkout.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}
