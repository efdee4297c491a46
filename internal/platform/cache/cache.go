package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"biblio-backend/internal/platform/db"
)

const idempotencyKeyTTL = 24 * time.Hour

// Client wraps the redis connection used for request idempotency.
type Client struct {
	rdb *redis.Client
}

func Connect(ctx context.Context, c db.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return &Client{rdb: rdb}, nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// SetIdempotency claims key for the TTL window. Returns false when the
// key was already claimed by an earlier request.
func (c *Client) SetIdempotency(ctx context.Context, key string) (bool, error) {
	return c.rdb.SetNX(ctx, "idem:"+key, 1, idempotencyKeyTTL).Result()
}
