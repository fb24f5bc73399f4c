package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"

	"github.com/aluiziolira/go-scrape-reviews/config"
	"github.com/aluiziolira/go-scrape-reviews/models"
)

// Cache stores finished aggregates by request key.
type Cache interface {
	Get(ctx context.Context, key string) (models.AggregatedReviewSet, bool)
	Add(ctx context.Context, key string, set models.AggregatedReviewSet)
}

// NewCache picks the cache described by cfg: Redis when an address is
// set, else an in-process LRU, else none.
func NewCache(cfg *config.Config) Cache {
	switch {
	case cfg == nil:
		return nil
	case cfg.RedisAddr != "":
		return NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL)
	case cfg.CacheSize > 0:
		return NewLRUCache(cfg.CacheSize, cfg.CacheTTL)
	default:
		return nil
	}
}

// LRUCache is an in-process cache with per-entry expiry.
type LRUCache struct {
	lru *expirable.LRU[string, models.AggregatedReviewSet]
}

// NewLRUCache holds at most size aggregates for ttl each.
func NewLRUCache(size int, ttl time.Duration) *LRUCache {
	return &LRUCache{lru: expirable.NewLRU[string, models.AggregatedReviewSet](size, nil, ttl)}
}

func (c *LRUCache) Get(_ context.Context, key string) (models.AggregatedReviewSet, bool) {
	return c.lru.Get(key)
}

func (c *LRUCache) Add(_ context.Context, key string, set models.AggregatedReviewSet) {
	c.lru.Add(key, set)
}

// RedisCache shares aggregates between service instances.
// Redis failures are logged and read as misses.
type RedisCache struct {
	c   *redis.Client
	ttl time.Duration
}

const redisKeyPrefix = "reviews:"

func NewRedisCache(addr, pass string, db int, ttl time.Duration) *RedisCache {
	return &RedisCache{
		c:   redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}),
		ttl: ttl,
	}
}

func (r *RedisCache) Get(ctx context.Context, key string) (models.AggregatedReviewSet, bool) {
	var set models.AggregatedReviewSet
	v, err := r.c.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return set, false
	}
	if err != nil {
		slog.Warn("cache read failed", slog.String("key", key), slog.Any("error", err))
		return set, false
	}
	if err := json.Unmarshal(v, &set); err != nil {
		slog.Warn("cache entry unreadable", slog.String("key", key), slog.Any("error", err))
		return models.AggregatedReviewSet{}, false
	}
	return set, true
}

func (r *RedisCache) Add(ctx context.Context, key string, set models.AggregatedReviewSet) {
	b, err := json.Marshal(set)
	if err != nil {
		slog.Warn("cache encode failed", slog.String("key", key), slog.Any("error", err))
		return
	}
	if err := r.c.Set(ctx, redisKeyPrefix+key, b, r.ttl).Err(); err != nil {
		slog.Warn("cache write failed", slog.String("key", key), slog.Any("error", err))
	}
}

// Close releases the Redis connection pool.
func (r *RedisCache) Close() error {
	return r.c.Close()
}
