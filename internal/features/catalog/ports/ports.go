package ports

import (
	"context"

	"silkshop/internal/features/catalog/domain"

	"github.com/google/uuid"
)

// ProductRepository defines the secondary port for product storage.
type ProductRepository interface {
	// Save persists a new product.
	Save(ctx context.Context, product *domain.Product) error

	// Update replaces an existing product's mutable fields, or
	// domain.ErrProductNotFound.
	Update(ctx context.Context, product *domain.Product) error

	// FindByID loads one product, or domain.ErrProductNotFound.
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)

	// List returns all products, newest first.
	List(ctx context.Context) ([]domain.Product, error)
}
