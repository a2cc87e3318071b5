package ports

import (
	"context"

	"silkshop/internal/features/orders/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductSnapshot is the slice of a product captured while its row is locked:
// everything the order pipeline needs to build a line item.
type ProductSnapshot struct {
	// ID is the product identifier.
	ID uuid.UUID
	// Name is the product display name.
	Name string
	// Price is the unit price at reservation time.
	Price decimal.Decimal
}

// Tx is the unit of work for order creation. All operations run inside one
// database transaction; the store commits when the callback returns nil and
// rolls back otherwise, so no partial stock decrement ever survives.
type Tx interface {
	// UserExists reports whether the given user exists.
	UserExists(ctx context.Context, userID uuid.UUID) (bool, error)

	// Reserve atomically checks and decrements stock for one product under a
	// row-level lock and returns the product snapshot. It returns
	// domain.ErrProductNotFound or *domain.InsufficientStockError without
	// side effects on failure.
	Reserve(ctx context.Context, productID uuid.UUID, quantity int) (*ProductSnapshot, error)

	// InsertOrder persists the order header and its line items.
	InsertOrder(ctx context.Context, order *domain.Order) error
}

// OrderStore is the persistence port for the order pipeline.
// This is a Secondary Port (Driven Port).
type OrderStore interface {
	// WithinTx runs fn inside a single transaction, committing on nil and
	// rolling back on error or panic.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	// FindByID loads an order with its items, or domain.ErrOrderNotFound.
	FindByID(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)

	// FindByTransactionRef loads the order correlated with a provider
	// transaction reference, or domain.ErrOrderNotFound.
	FindByTransactionRef(ctx context.Context, ref int64) (*domain.Order, error)

	// ListByUser returns the user's orders, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Order, error)

	// ListAll returns every order, newest first.
	ListAll(ctx context.Context) ([]domain.Order, error)

	// TransitionStatus persists a status change only while the order is
	// still in the expected status. It reports false, without error, when
	// another writer moved the order first.
	TransitionStatus(ctx context.Context, orderID uuid.UUID, from, to domain.Status) (bool, error)
}
