package service

import (
	"context"
	"fmt"

	"silkshop/internal/core/logger"
	"silkshop/internal/features/catalog/domain"
	"silkshop/internal/features/catalog/ports"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CatalogService exposes the product catalog.
type CatalogService struct {
	repo ports.ProductRepository
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(repo ports.ProductRepository) *CatalogService {
	return &CatalogService{
		repo: repo,
	}
}

// CreateProduct validates and persists a new product.
func (s *CatalogService) CreateProduct(ctx context.Context, name, description string, price decimal.Decimal, stock int, imageURL string) (*domain.Product, error) {
	product, err := domain.NewProduct(name, description, price, stock, imageURL)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to save product: %w", err)
	}

	logger.Get().Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.String("name", product.Name),
	)
	return product, nil
}

// UpdateProduct validates and replaces an existing product's fields.
func (s *CatalogService) UpdateProduct(ctx context.Context, id uuid.UUID, name, description string, price decimal.Decimal, stock int, imageURL string) (*domain.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if name == "" {
		return nil, domain.ErrMissingName
	}
	if !price.IsPositive() {
		return nil, domain.ErrInvalidPrice
	}
	if stock < 0 {
		return nil, domain.ErrInvalidStock
	}

	product.Name = name
	product.Description = description
	product.Price = price
	product.Stock = stock
	product.ImageURL = imageURL

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	logger.Get().Info("Product updated",
		zap.String("product_id", product.ID.String()),
	)
	return product, nil
}

// GetProduct loads one product.
func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return s.repo.FindByID(ctx, id)
}

// ListProducts returns all products, newest first.
func (s *CatalogService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}
