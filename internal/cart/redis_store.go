package cart

import (
	"context"
	"time"
)

type redisCarts interface {
	LoadCart(ctx context.Context, cartID string) ([]byte, error)
	UpdateCart(ctx context.Context, cartID string, ttl time.Duration, mutate func(current []byte) ([]byte, error)) error
}

// RedisStore keeps carts in Redis, expiring idle carts after ttl.
type RedisStore struct {
	client redisCarts
	ttl    time.Duration
}

// NewRedisStore creates a Store backed by the given Redis client
func NewRedisStore(client redisCarts, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context, cartID string) ([]byte, error) {
	return s.client.LoadCart(ctx, cartID)
}

// Update rewrites the cart atomically and refreshes its expiry
func (s *RedisStore) Update(ctx context.Context, cartID string, mutate func(current []byte) ([]byte, error)) error {
	return s.client.UpdateCart(ctx, cartID, s.ttl, mutate)
}
