package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/mfeineis/elm-advanced-package-search/internal/search"
	"github.com/mfeineis/elm-advanced-package-search/pkg/config"
)

const keyPrefix = "search:"

type QueryCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// New connects to Redis and verifies the connection with a PING.
func New(cfg config.RedisConfig) (*QueryCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &QueryCache{
		rdb:    rdb,
		ttl:    cfg.CacheTTL,
		logger: slog.Default().With("component", "query-cache"),
	}, nil
}

func (c *QueryCache) Get(ctx context.Context, query string, limit int) (*search.Result, bool) {
	key := c.buildKey(query, limit)
	data, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	var result search.Result
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "query", query, "key", key)
	return &result, true
}

func (c *QueryCache) Set(ctx context.Context, query string, limit int, result *search.Result) {
	key := c.buildKey(query, limit)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.rdb.Set(ctx, key, string(data), c.ttl).Err(); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute collapses concurrent cold lookups of the same key into one
// compute call. The boolean reports whether the caller was served without
// computing itself.
func (c *QueryCache) GetOrCompute(ctx context.Context, query string, limit int, compute func() *search.Result) (*search.Result, bool) {
	if result, ok := c.Get(ctx, query, limit); ok {
		return result, true
	}
	key := c.buildKey(query, limit)
	computed := false
	v, _, _ := c.group.Do(key, func() (interface{}, error) {
		computed = true
		result := compute()
		c.Set(ctx, query, limit, result)
		return result, nil
	})
	return v.(*search.Result), !computed
}

// Invalidate drops every cached search result. Called after writes, since
// any document change shifts the corpus statistics every score depends on.
func (c *QueryCache) Invalidate(ctx context.Context) {
	var deleted int64
	iter := c.rdb.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			c.logger.Error("cache invalidation failed", "key", iter.Val(), "error", err)
			return
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		c.logger.Error("cache invalidation scan failed", "error", err)
		return
	}
	c.logger.Debug("cache invalidated", "keys_deleted", deleted)
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *QueryCache) Close() error {
	return c.rdb.Close()
}

func (c *QueryCache) buildKey(query string, limit int) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d", normalized, limit)))
	return fmt.Sprintf("%s%x", keyPrefix, sum[:16])
}
