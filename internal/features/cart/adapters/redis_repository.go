package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"silkshop/internal/core/cache"
	"silkshop/internal/features/cart/domain"

	"github.com/google/uuid"
)

// cartTTL bounds how long an abandoned cart survives.
const cartTTL = 30 * 24 * time.Hour

// RedisCartRepository implements ports.CartRepository on the cache adapter.
type RedisCartRepository struct {
	cache cache.Cache
}

// NewRedisCartRepository creates a new RedisCartRepository.
func NewRedisCartRepository(c cache.Cache) *RedisCartRepository {
	return &RedisCartRepository{
		cache: c,
	}
}

func cartKey(userID uuid.UUID) string {
	return "cart:" + userID.String()
}

// Save stores the cart, resetting its TTL.
func (r *RedisCartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("failed to marshal cart: %w", err)
	}

	if err := r.cache.Set(ctx, cartKey(cart.UserID), data, cartTTL); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

// Get retrieves a user's cart, or (nil, nil) when none exists.
func (r *RedisCartRepository) Get(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	data, err := r.cache.Get(ctx, cartKey(userID))
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cart: %w", err)
	}
	return &cart, nil
}

// Delete removes a user's cart.
func (r *RedisCartRepository) Delete(ctx context.Context, userID uuid.UUID) error {
	if err := r.cache.Delete(ctx, cartKey(userID)); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}
