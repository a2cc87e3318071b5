package service

import (
	"context"
	"testing"

	"silkshop/internal/features/catalog/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRepository is a map-backed ports.ProductRepository.
type fakeRepository struct {
	products map[uuid.UUID]*domain.Product
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{products: make(map[uuid.UUID]*domain.Product)}
}

func (f *fakeRepository) Save(_ context.Context, p *domain.Product) error {
	f.products[p.ID] = p
	return nil
}

func (f *fakeRepository) Update(_ context.Context, p *domain.Product) error {
	if _, ok := f.products[p.ID]; !ok {
		return domain.ErrProductNotFound
	}
	f.products[p.ID] = p
	return nil
}

func (f *fakeRepository) FindByID(_ context.Context, id uuid.UUID) (*domain.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeRepository) List(_ context.Context) ([]domain.Product, error) {
	var out []domain.Product
	for _, p := range f.products {
		out = append(out, *p)
	}
	return out, nil
}

func TestCreateProduct(t *testing.T) {
	repo := newFakeRepository()
	svc := NewCatalogService(repo)

	product, err := svc.CreateProduct(context.Background(),
		"Silk Scarf", "Hand-woven", decimal.NewFromInt(100000), 10, "")
	require.NoError(t, err)

	assert.Equal(t, "Silk Scarf", product.Name)
	assert.Len(t, repo.products, 1)
}

func TestCreateProduct_Validation(t *testing.T) {
	svc := NewCatalogService(newFakeRepository())

	tests := []struct {
		name    string
		product string
		price   decimal.Decimal
		stock   int
		wantErr error
	}{
		{"missing name", "", decimal.NewFromInt(100000), 10, domain.ErrMissingName},
		{"zero price", "Silk Scarf", decimal.Zero, 10, domain.ErrInvalidPrice},
		{"negative stock", "Silk Scarf", decimal.NewFromInt(100000), -1, domain.ErrInvalidStock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateProduct(context.Background(), tt.product, "", tt.price, tt.stock, "")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestUpdateProduct(t *testing.T) {
	repo := newFakeRepository()
	svc := NewCatalogService(repo)

	created, err := svc.CreateProduct(context.Background(),
		"Silk Scarf", "Hand-woven", decimal.NewFromInt(100000), 10, "")
	require.NoError(t, err)

	updated, err := svc.UpdateProduct(context.Background(), created.ID,
		"Silk Scarf", "Hand-woven, 90x90cm", decimal.NewFromInt(120000), 4, "")
	require.NoError(t, err)

	assert.True(t, updated.Price.Equal(decimal.NewFromInt(120000)))
	assert.Equal(t, 4, updated.Stock)
	assert.True(t, repo.products[created.ID].Price.Equal(decimal.NewFromInt(120000)))
}

func TestUpdateProduct_NotFound(t *testing.T) {
	svc := NewCatalogService(newFakeRepository())

	_, err := svc.UpdateProduct(context.Background(), uuid.New(),
		"Silk Scarf", "", decimal.NewFromInt(120000), 4, "")
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestUpdateProduct_Validation(t *testing.T) {
	repo := newFakeRepository()
	svc := NewCatalogService(repo)

	created, err := svc.CreateProduct(context.Background(),
		"Silk Scarf", "Hand-woven", decimal.NewFromInt(100000), 10, "")
	require.NoError(t, err)

	_, err = svc.UpdateProduct(context.Background(), created.ID,
		"Silk Scarf", "", decimal.Zero, 10, "")
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)

	// The stored product is untouched after a rejected update.
	assert.True(t, repo.products[created.ID].Price.Equal(decimal.NewFromInt(100000)))
}

func TestGetAndList(t *testing.T) {
	repo := newFakeRepository()
	svc := NewCatalogService(repo)

	created, err := svc.CreateProduct(context.Background(),
		"Silk Scarf", "Hand-woven", decimal.NewFromInt(100000), 10, "")
	require.NoError(t, err)

	got, err := svc.GetProduct(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = svc.GetProduct(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	products, err := svc.ListProducts(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 1)
}
