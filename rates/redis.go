package rates

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient connects and pings with a short timeout. It returns nil when
// the server is unreachable; callers then fall back to MemoryCache.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	if cfg.Addr == "" {
		cfg.Addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}

// RedisCache shares rates between service instances.
type RedisCache struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

func NewRedisCache(client *redis.Client, logger *slog.Logger) *RedisCache {
	return &RedisCache{client: client, prefix: "fx", logger: logger}
}

func (c *RedisCache) key(from, to string) string {
	return c.prefix + ":" + pairKey(from, to)
}

func (c *RedisCache) Get(ctx context.Context, from, to string) (decimal.Decimal, bool) {
	val, err := c.client.Get(ctx, c.key(from, to)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WarnContext(ctx, "rate cache read failed", slog.String("pair", pairKey(from, to)), slog.Any("error", err))
		}
		return decimal.Zero, false
	}
	rate, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Zero, false
	}
	return rate, true
}

func (c *RedisCache) Set(ctx context.Context, from, to string, rate decimal.Decimal, ttl time.Duration) {
	if err := c.client.Set(ctx, c.key(from, to), rate.String(), ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "rate cache write failed", slog.String("pair", pairKey(from, to)), slog.Any("error", err))
	}
}
