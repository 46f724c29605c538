package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/adstash/adstash/internal/config"
	"github.com/adstash/adstash/internal/usecase"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects with the REDIS_* env keys and instruments the
// client for tracing.
func NewRedisClient(ctx context.Context) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr(),
		Password: config.Getenv(config.ENV_KEY_REDIS_PASSWORD, ""),
	})
	if err := redisotel.InstrumentTracing(rdb); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("instrument redis: %w", err)
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

var _ usecase.PreviewCache = (*PreviewCache)(nil)

// PreviewCache keeps signed preview URLs so list pages do not re-sign every
// row. Cache failures degrade to a miss.
type PreviewCache struct {
	rdb    redis.Cmdable
	prefix string
}

func NewPreviewCache(rdb redis.Cmdable) *PreviewCache {
	return &PreviewCache{rdb: rdb, prefix: "adstash:url:"}
}

func (c *PreviewCache) Get(ctx context.Context, key string) (string, bool) {
	v, err := c.rdb.Get(ctx, c.prefix+key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.WarnContext(ctx, "preview cache get", "key", key, "err", err)
		}
		return "", false
	}
	return v, true
}

func (c *PreviewCache) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if err := c.rdb.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		slog.WarnContext(ctx, "preview cache set", "key", key, "err", err)
	}
}
