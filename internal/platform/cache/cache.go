package cache

import (
	"context"
	"errors"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"fieldpay/internal/platform/logging"
)

// JSONCache stores JSON snapshots in redis and collapses concurrent loads of the same
// key. A nil redis client turns it into a pass-through loader.
type JSONCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	sf     singleflight.Group
	logger *zap.Logger
}

func New(rdb *redis.Client, prefix string, ttl time.Duration, logger ...*zap.Logger) *JSONCache {
	return &JSONCache{
		rdb:    rdb,
		ttl:    ttl,
		prefix: prefix,
		logger: logging.Named("cache", logger...),
	}
}

// GetOrLoad fills dest from redis, or from load on a miss. Redis failures degrade to
// calling load; they are logged, not returned.
func GetOrLoad[T any](ctx context.Context, c *JSONCache, key string, load func(ctx context.Context) (T, error)) (T, error) {
	fullKey := c.prefix + key
	if c.rdb != nil {
		raw, err := c.rdb.Get(ctx, fullKey).Bytes()
		switch {
		case err == nil:
			var cached T
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
			c.logger.Warn("cache decode failed", zap.String("key", fullKey))
		case !errors.Is(err, redis.Nil):
			c.logger.Warn("cache read failed", zap.String("key", fullKey), zap.Error(err))
		}
	}

	value, err, _ := c.sf.Do(fullKey, func() (any, error) {
		loaded, err := load(ctx)
		if err != nil {
			return loaded, err
		}
		if c.rdb != nil {
			payload, err := json.Marshal(loaded)
			if err == nil {
				err = c.rdb.Set(ctx, fullKey, payload, c.ttl).Err()
			}
			if err != nil {
				c.logger.Warn("cache write failed", zap.String("key", fullKey), zap.Error(err))
			}
		}
		return loaded, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return value.(T), nil
}

func (c *JSONCache) Invalidate(ctx context.Context, keys ...string) error {
	if c.rdb == nil || len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = c.prefix + key
	}
	return c.rdb.Del(ctx, full...).Err()
}
