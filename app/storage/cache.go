package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const receiptKeyPrefix = "receipt-url:"

// URLCache keeps signed receipt URLs for less than their validity window.
type URLCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewURLCache(client *redis.Client, ttl time.Duration) *URLCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &URLCache{client: client, ttl: ttl}
}

// Get returns the cached URL, or "" when none is cached.
func (c *URLCache) Get(ctx context.Context, objectID string) (string, error) {
	value, err := c.client.Get(ctx, receiptKeyPrefix+objectID).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return value, err
}

func (c *URLCache) Set(ctx context.Context, objectID, url string) error {
	return c.client.Set(ctx, receiptKeyPrefix+objectID, url, c.ttl).Err()
}
