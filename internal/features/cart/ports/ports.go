package ports

import (
	"context"

	"silkshop/internal/features/cart/domain"
	catalogdomain "silkshop/internal/features/catalog/domain"

	"github.com/google/uuid"
)

// CartRepository defines the secondary port for cart storage.
type CartRepository interface {
	// Save stores a user's cart, replacing any previous version.
	Save(ctx context.Context, cart *domain.Cart) error

	// Get retrieves a user's cart. A missing cart returns (nil, nil).
	Get(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)

	// Delete removes a user's cart.
	Delete(ctx context.Context, userID uuid.UUID) error
}

// ProductCatalog is the slice of the catalog the cart needs: current name,
// price and stock for the product being added.
type ProductCatalog interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*catalogdomain.Product, error)
}
