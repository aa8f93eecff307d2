package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"shop-service/internal/service"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
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

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func snapshotKey(sku string) string {
	return fmt.Sprintf("inventory:%s", sku)
}

// GetSnapshot reads a cached inventory snapshot. Returns nil on a cache
// miss without error.
func (c *Client) GetSnapshot(ctx context.Context, sku string) (*service.InventorySnapshot, error) {
	raw, err := c.rdb.Get(ctx, snapshotKey(sku)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snap service.InventorySnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, fmt.Errorf("corrupt snapshot for %s: %w", sku, err)
	}
	return &snap, nil
}

// SetSnapshot caches an inventory snapshot with a TTL.
func (c *Client) SetSnapshot(ctx context.Context, snap *service.InventorySnapshot, ttl time.Duration) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, snapshotKey(snap.SKU), raw, ttl).Err()
}

// InvalidateSnapshot drops the cached snapshot after a debit, receipt or
// manual adjustment.
func (c *Client) InvalidateSnapshot(ctx context.Context, sku string) error {
	return c.rdb.Del(ctx, snapshotKey(sku)).Err()
}

// GetIdempotentWorkOrder looks up the work order previously created under
// an idempotency key.
func (c *Client) GetIdempotentWorkOrder(ctx context.Context, key string) (int64, bool, error) {
	raw, err := c.rdb.Get(ctx, fmt.Sprintf("idempotency:%s", key)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt idempotency value for %s: %w", key, err)
	}
	return id, true, nil
}

// SetIdempotentWorkOrder stores an idempotency key with TTL.
func (c *Client) SetIdempotentWorkOrder(ctx context.Context, key string, workOrderID int64, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("idempotency:%s", key), workOrderID, ttl).Err()
}
