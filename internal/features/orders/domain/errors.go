package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUserNotFound is returned when the ordering user does not exist.
	ErrUserNotFound = errors.New("order: user not found")
	// ErrProductNotFound is returned when a requested product does not exist.
	ErrProductNotFound = errors.New("order: product not found")
	// ErrOrderNotFound is returned when the order does not exist.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrEmptyOrder is returned when an order has no line items.
	ErrEmptyOrder = errors.New("order: must contain at least one item")
	// ErrInvalidQuantity is returned when a line quantity is below one.
	ErrInvalidQuantity = errors.New("order: quantity must be at least one")
	// ErrMissingShippingAddress is returned when the shipping address is empty.
	ErrMissingShippingAddress = errors.New("order: shipping address is required")
	// ErrInvalidPaymentMethod is returned for an unknown payment method.
	ErrInvalidPaymentMethod = errors.New("order: invalid payment method")
	// ErrInvalidStatus is returned for an unknown order status.
	ErrInvalidStatus = errors.New("order: invalid status")
	// ErrIllegalTransition is returned when a status change violates the state machine.
	ErrIllegalTransition = errors.New("order: illegal status transition")
)

// InsufficientStockError is returned when a reservation asks for more units
// than the product has in stock. No stock is decremented when it is returned.
type InsufficientStockError struct {
	// ProductName is the display name of the product that ran short.
	ProductName string
	// Requested is the quantity the order asked for.
	Requested int
	// Available is the stock on hand at the time of the request.
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("order: insufficient stock for product %q: requested %d, available %d",
		e.ProductName, e.Requested, e.Available)
}
