// Package cache stores gateway responses for a short time, in Redis when one is
// reachable and in process memory otherwise.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"earnings-tracker/internal/config"
	"earnings-tracker/internal/security"
)

const keyPrefix = "earnings:"

// Cache is a byte store with per-key expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

// RedisCache is backed by a Redis server.
type RedisCache struct {
	client *redis.Client
}

// MemoryCache is a process-local Cache.
type MemoryCache struct {
	mu    sync.Mutex
	items map[string]memItem
	now   func() time.Time
}

type memItem struct {
	val []byte
	exp time.Time
}

// New picks Redis when cfg names a reachable server and falls back to memory.
// A disabled cache returns nil; callers treat a nil Cache as "always miss".
func New(cfg config.CacheConfig, logger zerolog.Logger) Cache {
	if !cfg.Enabled {
		return nil
	}
	if cfg.RedisURL == "" {
		return NewMemoryCache()
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Warn().Err(security.MaskError(err)).Msg("Invalid redis URL, using in-memory cache")
		return NewMemoryCache()
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", opt.Addr).Msg("Redis unreachable, using in-memory cache")
		_ = client.Close()
		return NewMemoryCache()
	}
	logger.Debug().Str("addr", opt.Addr).Msg("Using redis cache")
	return &RedisCache{client: client}
}

// NewRedisCache wraps an existing client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string]memItem), now: time.Now}
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	b, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		return nil, false
	}
	return b, true
}

func (r *RedisCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return r.client.Set(ctx, keyPrefix+key, val, ttl).Err()
}

// Close releases the Redis connection pool.
func (r *RedisCache) Close() error {
	return r.client.Close()
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[key]
	if !ok {
		return nil, false
	}
	if !it.exp.IsZero() && m.now().After(it.exp) {
		delete(m.items, key)
		return nil, false
	}
	return it.val, true
}

func (m *MemoryCache) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp := time.Time{}
	if ttl > 0 {
		exp = m.now().Add(ttl)
	}
	m.items[key] = memItem{val: append([]byte(nil), val...), exp: exp}
	return nil
}

// Len counts entries, expired ones included until they are next read.
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// GetJSON decodes a cached value into v. A nil cache or an undecodable value is a miss.
func GetJSON(ctx context.Context, c Cache, key string, v any) bool {
	if c == nil {
		return false
	}
	data, ok := c.Get(ctx, key)
	if !ok {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

// SetJSON stores v under key. A nil cache or a zero ttl stores nothing.
func SetJSON(ctx context.Context, c Cache, key string, v any, ttl time.Duration) error {
	if c == nil || ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, data, ttl)
}

// Fetch returns the cached value for key or calls load and caches its result.
// Failed loads are not cached, and a failed write only costs a future miss.
func Fetch[T any](ctx context.Context, c Cache, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var cached T
	if GetJSON(ctx, c, key, &cached) {
		return cached, nil
	}
	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	_ = SetJSON(ctx, c, key, v, ttl)
	return v, nil
}
