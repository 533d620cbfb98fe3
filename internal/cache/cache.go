package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"marketplace-service/internal/config"
)

var ErrCacheMiss = errors.New("cache miss")

// Cache defines the interface for cache operations
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// DeleteByPattern deletes all keys matching a trailing-* pattern
	DeleteByPattern(ctx context.Context, pattern string) error
}

// Key patterns matching every cached item and every cached delivery profile.
const (
	ItemKeyPattern    = "item:*"
	ProfileKeyPattern = "profile:*"
)

// ItemKey is the cache key of a catalog item.
func ItemKey(id uuid.UUID) string {
	return "item:" + id.String()
}

// ProfileKey is the cache key of a seller's delivery profile.
func ProfileKey(sellerID uuid.UUID) string {
	return "profile:" + sellerID.String()
}

// RedisCache implements Cache using Redis
type RedisCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewCache returns a Redis-backed cache when USE_CACHE is on and Redis answers,
// and an in-memory cache otherwise.
func NewCache(cfg *config.Config, logger *zap.Logger) Cache {
	if !cfg.UseCache {
		logger.Info("Cache disabled, using in-memory cache")
		return NewInMemoryCache()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		PoolSize:     10,
		MinIdleConns: 5,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		// Retry settings
		MaxRetries:      3,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("Failed to connect to Redis, using in-memory cache",
			zap.String("host", cfg.RedisHost),
			zap.String("port", cfg.RedisPort),
			zap.Error(err),
		)
		_ = rdb.Close()
		return NewInMemoryCache()
	}

	logger.Info("Redis cache initialized successfully",
		zap.String("host", cfg.RedisHost),
		zap.String("port", cfg.RedisPort),
		zap.Int("db", cfg.RedisDB),
	)

	return NewRedisCache(rdb, logger)
}

func NewRedisCache(client *redis.Client, logger *zap.Logger) *RedisCache {
	return &RedisCache{client: client, logger: logger}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		c.logger.Warn("Redis Get error", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("redis get error: %w", err)
	}
	return val, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.logger.Warn("Redis Set error", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("redis set error: %w", err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("Redis Delete error", zap.Strings("keys", keys), zap.Error(err))
		return fmt.Errorf("redis delete error: %w", err)
	}
	return nil
}

func (c *RedisCache) DeleteByPattern(ctx context.Context, pattern string) error {
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	keys := make([]string, 0)

	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("Redis Scan error", zap.String("pattern", pattern), zap.Error(err))
		return fmt.Errorf("redis scan error: %w", err)
	}

	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			c.logger.Warn("Redis DeleteByPattern error", zap.String("pattern", pattern), zap.Error(err))
			return fmt.Errorf("redis delete by pattern error: %w", err)
		}
		c.logger.Debug("Deleted keys by pattern", zap.String("pattern", pattern), zap.Int("count", len(keys)))
	}
	return nil
}

// Close releases the Redis connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// InMemoryCache is the fallback when Redis is disabled or unreachable.
type InMemoryCache struct {
	mu   sync.Mutex
	data map[string]cacheEntry
}

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{data: make(map[string]cacheEntry)}
}

func (c *InMemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.data[key]
	if !exists {
		return nil, ErrCacheMiss
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		delete(c.data, key)
		return nil, ErrCacheMiss
	}
	return entry.value, nil
}

func (c *InMemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := cacheEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	c.data[key] = entry
	return nil
}

func (c *InMemoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range keys {
		delete(c.data, key)
	}
	return nil
}

func (c *InMemoryCache) DeleteByPattern(_ context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	prefix, wildcard := strings.CutSuffix(pattern, "*")
	for key := range c.data {
		if (wildcard && strings.HasPrefix(key, prefix)) || key == pattern {
			delete(c.data, key)
		}
	}
	return nil
}

// Helper functions for JSON serialization
func GetJSON(ctx context.Context, cache Cache, key string, dest any) error {
	data, err := cache.Get(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func SetJSON(ctx context.Context, cache Cache, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return cache.Set(ctx, key, data, ttl)
}
