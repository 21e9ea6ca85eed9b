// Package cache wraps the Redis client used for the vocabulary facet
// lists. The facet queries scan the whole concept table, so their results
// are kept warm; everything else in the system reads the database directly.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/conceptbridge/conceptbridge-backend/internal/config"
	"github.com/conceptbridge/conceptbridge-backend/internal/pkg/logger"
)

const facetTTL = 15 * time.Minute

type Client struct {
	rdb *redis.Client
	log *logger.Logger
}

func New(cfg config.RedisConfig, baseLog *logger.Logger) *Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Client{rdb: rdb, log: baseLog.With("component", "cache")}
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// GetStrings returns the cached list for key, or (nil, false) on a miss.
// Redis outages degrade to misses so the facet endpoints stay available.
func (c *Client) GetStrings(ctx context.Context, key string) ([]string, bool) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		c.log.Warn("cache entry malformed, dropping", "key", key)
		_ = c.rdb.Del(ctx, key).Err()
		return nil, false
	}
	return values, true
}

// SetStrings stores the list under key with the facet TTL. Failures are
// logged and swallowed.
func (c *Client) SetStrings(ctx context.Context, key string, values []string) {
	raw, err := json.Marshal(values)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, raw, facetTTL).Err(); err != nil {
		c.log.Warn("cache write failed", "key", key, "error", err)
	}
}
