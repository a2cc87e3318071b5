package service

import (
	"context"
	"testing"

	"silkshop/internal/features/cart/domain"
	catalogdomain "silkshop/internal/features/catalog/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockCartRepository is a map-backed CartRepository.
type mockCartRepository struct {
	carts map[uuid.UUID]*domain.Cart
}

func newMockCartRepository() *mockCartRepository {
	return &mockCartRepository{carts: make(map[uuid.UUID]*domain.Cart)}
}

func (m *mockCartRepository) Save(_ context.Context, cart *domain.Cart) error {
	m.carts[cart.UserID] = cart
	return nil
}

func (m *mockCartRepository) Get(_ context.Context, userID uuid.UUID) (*domain.Cart, error) {
	return m.carts[userID], nil
}

func (m *mockCartRepository) Delete(_ context.Context, userID uuid.UUID) error {
	delete(m.carts, userID)
	return nil
}

// mockCatalog serves a fixed set of products.
type mockCatalog struct {
	products map[uuid.UUID]*catalogdomain.Product
}

func (m *mockCatalog) GetProduct(_ context.Context, id uuid.UUID) (*catalogdomain.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, catalogdomain.ErrProductNotFound
	}
	return p, nil
}

func newTestService(t *testing.T) (*CartService, *mockCartRepository, *catalogdomain.Product) {
	t.Helper()
	scarf, err := catalogdomain.NewProduct("Silk Scarf", "Hand-woven", decimal.NewFromInt(100000), 5, "")
	require.NoError(t, err)

	repo := newMockCartRepository()
	catalog := &mockCatalog{products: map[uuid.UUID]*catalogdomain.Product{scarf.ID: scarf}}
	return NewCartService(repo, catalog), repo, scarf
}

func TestAddItem(t *testing.T) {
	svc, repo, scarf := newTestService(t)
	userID := uuid.New()

	cart, err := svc.AddItem(context.Background(), userID, scarf.ID, 2)
	require.NoError(t, err)

	require.Len(t, cart.Items, 1)
	assert.Equal(t, "Silk Scarf", cart.Items[0].ProductName)
	assert.True(t, cart.Items[0].Price.Equal(decimal.NewFromInt(100000)))
	assert.NotNil(t, repo.carts[userID])

	// Adding again merges quantities.
	cart, err = svc.AddItem(context.Background(), userID, scarf.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, cart.Items[0].Quantity)
}

func TestAddItem_UnknownProduct(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.AddItem(context.Background(), uuid.New(), uuid.New(), 1)
	assert.ErrorIs(t, err, catalogdomain.ErrProductNotFound)
}

func TestAddItem_InsufficientStock(t *testing.T) {
	svc, _, scarf := newTestService(t)

	_, err := svc.AddItem(context.Background(), uuid.New(), scarf.ID, 99)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
}

func TestAddItem_InvalidQuantity(t *testing.T) {
	svc, _, scarf := newTestService(t)

	_, err := svc.AddItem(context.Background(), uuid.New(), scarf.ID, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestGetCart_EmptyWhenMissing(t *testing.T) {
	svc, _, _ := newTestService(t)
	userID := uuid.New()

	cart, err := svc.GetCart(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, userID, cart.UserID)
	assert.Empty(t, cart.Items)
}

func TestRemoveItem(t *testing.T) {
	svc, _, scarf := newTestService(t)
	userID := uuid.New()

	_, err := svc.AddItem(context.Background(), userID, scarf.ID, 1)
	require.NoError(t, err)

	cart, err := svc.RemoveItem(context.Background(), userID, scarf.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	_, err = svc.RemoveItem(context.Background(), userID, scarf.ID)
	assert.ErrorIs(t, err, domain.ErrItemNotInCart)
}

func TestClearCart(t *testing.T) {
	svc, repo, scarf := newTestService(t)
	userID := uuid.New()

	_, err := svc.AddItem(context.Background(), userID, scarf.ID, 1)
	require.NoError(t, err)

	require.NoError(t, svc.ClearCart(context.Background(), userID))
	assert.Nil(t, repo.carts[userID])
}
