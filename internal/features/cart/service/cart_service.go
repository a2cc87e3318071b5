package service

import (
	"context"
	"fmt"

	"silkshop/internal/features/cart/domain"
	"silkshop/internal/features/cart/ports"

	"github.com/google/uuid"
)

// CartService manages per-user shopping carts.
//
// Carts hold catalog snapshots only; stock is neither reserved nor
// decremented until checkout, so an in-cart item can still sell out.
type CartService struct {
	repo    ports.CartRepository
	catalog ports.ProductCatalog
}

// NewCartService creates a new CartService.
func NewCartService(repo ports.CartRepository, catalog ports.ProductCatalog) *CartService {
	return &CartService{
		repo:    repo,
		catalog: catalog,
	}
}

// AddItem validates the product against the catalog and adds it to the
// user's cart, snapshotting the current name and price.
func (s *CartService) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.InStock(quantity) {
		return nil, fmt.Errorf("%w for %q: requested %d, available %d",
			domain.ErrInsufficientStock, product.Name, quantity, product.Stock)
	}

	cart, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if cart == nil {
		cart = domain.NewCart(userID)
	}

	if err := cart.Upsert(domain.CartItem{
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    quantity,
		Price:       product.Price,
	}); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}
	return cart, nil
}

// GetCart returns the user's cart, creating an empty one in memory when none
// is stored.
func (s *CartService) GetCart(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	cart, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if cart == nil {
		cart = domain.NewCart(userID)
	}
	return cart, nil
}

// UpdateItemQuantity replaces the quantity of a line already in the cart,
// revalidating against current stock.
func (s *CartService) UpdateItemQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.InStock(quantity) {
		return nil, fmt.Errorf("%w for %q: requested %d, available %d",
			domain.ErrInsufficientStock, product.Name, quantity, product.Stock)
	}

	cart, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if cart == nil {
		return nil, domain.ErrItemNotInCart
	}

	if err := cart.SetQuantity(productID, quantity); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}
	return cart, nil
}

// RemoveItem drops one product line from the user's cart.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*domain.Cart, error) {
	cart, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if cart == nil {
		return nil, domain.ErrItemNotInCart
	}

	if err := cart.Remove(productID); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}
	return cart, nil
}

// ClearCart removes the user's cart entirely, typically after checkout.
func (s *CartService) ClearCart(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.Delete(ctx, userID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
