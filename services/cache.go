package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"transit-analytics-api/config"

	"github.com/redis/go-redis/v9"
)

const cacheDialAttempts = 5

// CacheService wraps Redis for best-effort response caching and live
// pub/sub. A failed connection leaves the client nil and every operation
// degrades to a no-op: cache unavailability never aborts or delays the main
// computation path.
type CacheService struct {
	client *redis.Client
}

// NewCacheService dials Redis with a short backoff to ride out container
// startup ordering. On exhaustion it still returns a usable (degraded)
// service alongside the error.
func NewCacheService(cfg config.RedisConfig) (*CacheService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	var lastErr error
	backoff := time.Second
	for i := 1; i <= cacheDialAttempts; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		lastErr = client.Ping(ctx).Err()
		cancel()
		if lastErr == nil {
			return &CacheService{client: client}, nil
		}
		log.Printf("redis ping attempt %d/%d failed: %v", i, cacheDialAttempts, lastErr)
		time.Sleep(backoff)
		backoff *= 2
	}

	return &CacheService{client: nil}, fmt.Errorf("redis ping failed after %d attempts: %w", cacheDialAttempts, lastErr)
}

func (s *CacheService) Client() *redis.Client {
	return s.client
}

func (s *CacheService) Available() bool {
	return s.client != nil
}

// Get unmarshals the cached value into dest. A cache miss leaves dest
// untouched and returns nil; callers must check dest for content.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) error {
	if s.client == nil {
		return redis.Nil
	}
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(val), dest)
}

func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if s.client == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

func (s *CacheService) Delete(ctx context.Context, key string) error {
	if s.client == nil {
		return nil
	}
	return s.client.Del(ctx, key).Err()
}

func (s *CacheService) Publish(ctx context.Context, channel string, message interface{}) error {
	if s.client == nil {
		return nil
	}
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, channel, data).Err()
}

// Subscribe returns nil when the cache is degraded; callers must handle a
// nil subscription.
func (s *CacheService) Subscribe(ctx context.Context, channel string) *redis.PubSub {
	if s.client == nil {
		return nil
	}
	return s.client.Subscribe(ctx, channel)
}

func (s *CacheService) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
