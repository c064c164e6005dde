package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const catalogCacheKey = "catalog:artworks"

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client and checks the connection
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// NewWithRedis wraps an existing go-redis client
func NewWithRedis(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks that Redis is reachable
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// LoadCart returns the stored cart blob, or nil when the cart does not exist
func (c *Client) LoadCart(ctx context.Context, cartID string) ([]byte, error) {
	data, err := c.rdb.Get(ctx, cartKey(cartID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart failed: %w", err)
	}
	return data, nil
}

// cartUpdateAttempts bounds optimistic retries; each lost race means
// another writer committed, so this only runs out under sustained contention.
const cartUpdateAttempts = 64

// ErrCartContention is returned when UpdateCart keeps losing to other writers.
var ErrCartContention = errors.New("cart updated concurrently too many times")

// UpdateCart runs mutate on the stored cart blob under WATCH and writes its
// result in a MULTI block, refreshing the TTL. A concurrent write to the
// same cart aborts the transaction and mutate runs again on the new data.
// A nil result from mutate skips the write.
func (c *Client) UpdateCart(ctx context.Context, cartID string, ttl time.Duration, mutate func(current []byte) ([]byte, error)) error {
	key := cartKey(cartID)
	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		next, err := mutate(current)
		if err != nil || next == nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, ttl)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < cartUpdateAttempts; attempt++ {
		err := c.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("update cart failed: %w", err)
		}
		return nil
	}
	return fmt.Errorf("update cart failed: %w", ErrCartContention)
}

// GetCatalogCache returns the cached gallery listing if present
func (c *Client) GetCatalogCache(ctx context.Context) ([]byte, bool, error) {
	data, err := c.rdb.Get(ctx, catalogCacheKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// SetCatalogCache caches the gallery listing
func (c *Client) SetCatalogCache(ctx context.Context, data []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, catalogCacheKey, data, ttl).Err()
}

// InvalidateCatalogCache drops the cached gallery listing
func (c *Client) InvalidateCatalogCache(ctx context.Context) error {
	return c.rdb.Del(ctx, catalogCacheKey).Err()
}

// SetIdempotencyKey stores an idempotency key with TTL
func (c *Client) SetIdempotencyKey(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("idempotency:%s", key), value, ttl).Err()
}

// CheckIdempotencyKey checks if an idempotency key exists
func (c *Client) CheckIdempotencyKey(ctx context.Context, key string) (bool, error) {
	result, err := c.rdb.Exists(ctx, fmt.Sprintf("idempotency:%s", key)).Result()
	if err != nil {
		return false, err
	}
	return result > 0, nil
}

// AcquireLock takes a short-lived lock, reporting false if another holder has it
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), "1", ttl).Result()
}

// ReleaseLock releases a lock taken with AcquireLock
func (c *Client) ReleaseLock(ctx context.Context, lockKey string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:%s", lockKey)).Err()
}

// CreateAdminSession records an admin session token
func (c *Client) CreateAdminSession(ctx context.Context, token string, ttl time.Duration) error {
	return c.rdb.Set(ctx, sessionKey(token), "1", ttl).Err()
}

// AdminSessionExists reports whether the token is a live admin session
func (c *Client) AdminSessionExists(ctx context.Context, token string) (bool, error) {
	result, err := c.rdb.Exists(ctx, sessionKey(token)).Result()
	if err != nil {
		return false, err
	}
	return result > 0, nil
}

// DeleteAdminSession revokes an admin session token
func (c *Client) DeleteAdminSession(ctx context.Context, token string) error {
	return c.rdb.Del(ctx, sessionKey(token)).Err()
}

func cartKey(cartID string) string {
	return fmt.Sprintf("cart:%s", cartID)
}

func sessionKey(token string) string {
	return fmt.Sprintf("admin_session:%s", token)
}
