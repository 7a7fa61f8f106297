package cache

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-redis/redis/v8"
)

// RedisCache 使用 Redis 作为本地缓存后端，键原样存储，不设置过期时间
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache wraps an already connected client (see db.ConnectRedis).
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	if c.client == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get Redis key %s: %w", key, err)
	}
	return val, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte) error {
	if c.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	if err := c.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set Redis key %s: %w", key, err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if c.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete Redis key %s: %w", key, err)
	}
	return nil
}

// Keys 使用 SCAN 遍历，避免 KEYS 阻塞 Redis
func (c *RedisCache) Keys(ctx context.Context, prefix string) ([]string, error) {
	if c.client == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}

	keys := []string{}
	iter := c.client.Scan(ctx, 0, escapeGlob(prefix)+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan Redis keys: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (c *RedisCache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func escapeGlob(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
