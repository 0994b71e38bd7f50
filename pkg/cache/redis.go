// Package cache wraps Redis for exactly one purpose: an optional read-path
// accelerator in front of pkg/aggregator's bucket computation. It is never
// consulted on the proxy request path — wiring it there would reintroduce
// the response caching this service explicitly does not do.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps the standard redis client.
type Client struct {
	rdb *redis.Client
}

// NewRedis connects to the Redis server used for analytics-result caching.
func NewRedis(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cache: connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Set stores value under key with the given TTL.
func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

// Get retrieves the value stored under key, returning redis.Nil when
// absent.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	return c.rdb.Get(ctx, key).Bytes()
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}
