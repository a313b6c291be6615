package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	eventKeyPrefix     = "event:details:"
	eventListKeyPrefix = "event:list:"
	rateLimitKeyPrefix = "ratelimit:"
)

// Client is a JSON cache on top of Redis.
type Client struct {
	rdb *redis.Client
}

// New wraps an existing Redis client.
func New(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// Get decodes the cached value into dest and reports whether the key existed.
func (c *Client) Get(ctx context.Context, key string, dest any) (bool, error) {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Client) Set(ctx context.Context, key string, val any, ttl time.Duration) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, b, ttl).Err()
}

func (c *Client) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// AllowRequest is a fixed window counter. Redis errors let the request through.
// The counter and its expiry are written in one transaction, and NX keeps the
// first expiry of the window.
func (c *Client) AllowRequest(ctx context.Context, principal string, limit int, window time.Duration) (bool, error) {
	key := rateLimitKeyPrefix + principal
	var incr *redis.IntCmd
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, window)
		return nil
	})
	if err != nil {
		return true, err
	}
	return incr.Val() <= int64(limit), nil
}

func EventKey(id string) string {
	return eventKeyPrefix + id
}

func EventListKey(hash string) string {
	return eventListKeyPrefix + hash
}
