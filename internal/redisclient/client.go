package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "storefront:"

// Client is the Redis persistence adapter. It satisfies store.KV.
type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client and checks connectivity
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

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks the connection; used by /ready.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Load reads the serialized collection stored under key
func (c *Client) Load(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := c.rdb.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s failed: %w", key, err)
	}
	return value, true, nil
}

// Save overwrites the serialized collection stored under key
func (c *Client) Save(ctx context.Context, key string, value []byte) error {
	if err := c.rdb.Set(ctx, keyPrefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s failed: %w", key, err)
	}
	return nil
}

// IdempotencyStore maps checkout idempotency keys to order references with a TTL.
type IdempotencyStore struct {
	client *Client
	ttl    time.Duration
}

func NewIdempotencyStore(client *Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{client: client, ttl: ttl}
}

// Lookup returns the order reference remembered for key, if any
func (s *IdempotencyStore) Lookup(ctx context.Context, key string) (string, bool, error) {
	ref, err := s.client.rdb.Get(ctx, idempotencyKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("idempotency lookup failed: %w", err)
	}
	return ref, true, nil
}

// Remember stores the reference for key. An existing entry is kept.
func (s *IdempotencyStore) Remember(ctx context.Context, key, reference string) error {
	if err := s.client.rdb.SetNX(ctx, idempotencyKey(key), reference, s.ttl).Err(); err != nil {
		return fmt.Errorf("idempotency store failed: %w", err)
	}
	return nil
}

func idempotencyKey(key string) string {
	return fmt.Sprintf("%sidempotency:%s", keyPrefix, key)
}
