package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Dan9191/cofrinho-service/internal/models"
	"github.com/redis/go-redis/v9"
)

const latestRateKey = "cofrinho:rate:latest"

// CachedRateStore keeps the latest rate in Redis in front of another store
type CachedRateStore struct {
	next   RateStore
	client *redis.Client
	ttl    time.Duration
}

// NewCachedRateStore wraps next with a Redis cache at addr
func NewCachedRateStore(next RateStore, addr string, ttl time.Duration) *CachedRateStore {
	return &CachedRateStore{
		next:   next,
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    ttl,
	}
}

func (c *CachedRateStore) SaveRate(ctx context.Context, rate *models.KeyRate) error {
	if err := c.next.SaveRate(ctx, rate); err != nil {
		return err
	}
	// the stored date may be older than the cached one, let the next read refill
	if err := c.client.Del(ctx, latestRateKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate rate cache: %w", err)
	}
	return nil
}

func (c *CachedRateStore) LatestRate(ctx context.Context) (*models.KeyRate, error) {
	val, err := c.client.Get(ctx, latestRateKey).Bytes()
	if err == nil {
		var rate models.KeyRate
		if json.Unmarshal(val, &rate) == nil {
			return &rate, nil
		}
	}
	// misses and cache errors fall through to the store

	rate, err := c.next.LatestRate(ctx)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(rate); err == nil {
		c.client.Set(ctx, latestRateKey, data, c.ttl)
	}
	return rate, nil
}

// Close releases the Redis connection
func (c *CachedRateStore) Close() error {
	return c.client.Close()
}
