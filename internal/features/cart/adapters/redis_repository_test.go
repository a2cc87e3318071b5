package adapters

import (
	"context"
	"testing"

	"silkshop/internal/core/cache"
	"silkshop/internal/features/cart/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *RedisCartRepository {
	t.Helper()
	mr := miniredis.RunT(t)

	adapter, err := cache.NewRedisAdapter("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { adapter.Close() })

	return NewRedisCartRepository(adapter)
}

func TestRedisCartRepository_SaveGet(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	cart := domain.NewCart(uuid.New())
	require.NoError(t, cart.Upsert(domain.CartItem{
		ProductID:   uuid.New(),
		ProductName: "Silk Scarf",
		Quantity:    2,
		Price:       decimal.NewFromInt(100000),
	}))

	require.NoError(t, repo.Save(ctx, cart))

	got, err := repo.Get(ctx, cart.UserID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, cart.UserID, got.UserID)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Silk Scarf", got.Items[0].ProductName)
	assert.True(t, got.Items[0].Price.Equal(decimal.NewFromInt(100000)))
}

func TestRedisCartRepository_GetMissing(t *testing.T) {
	repo := newTestRepository(t)

	got, err := repo.Get(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisCartRepository_Delete(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	cart := domain.NewCart(uuid.New())
	require.NoError(t, repo.Save(ctx, cart))
	require.NoError(t, repo.Delete(ctx, cart.UserID))

	got, err := repo.Get(ctx, cart.UserID)
	require.NoError(t, err)
	assert.Nil(t, got)
}
