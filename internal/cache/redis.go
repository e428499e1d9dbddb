package cache

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const keyPrefix = "price:"

// InitRedis connects to addr, which may be a host:port pair or a redis:// URL.
func InitRedis(ctx context.Context, addr string) (*redis.Client, error) {
	opts := &redis.Options{Addr: addr}
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	log.Info().Str("addr", opts.Addr).Msg("connected to redis")
	return client, nil
}

// RedisPriceCache shares price entries between processes; Redis expires them.
type RedisPriceCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisPriceCache(rdb *redis.Client, ttl time.Duration) *RedisPriceCache {
	return &RedisPriceCache{rdb: rdb, ttl: ttl}
}

func (c *RedisPriceCache) Get(ctx context.Context, key string) (float64, bool) {
	raw, err := c.rdb.Get(ctx, keyPrefix+key).Result()
	if err != nil {
		if err != redis.Nil {
			log.Debug().Err(err).Str("key", key).Msg("redis price cache read failed")
		}
		return 0, false
	}
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil || price <= 0 {
		return 0, false
	}
	return price, true
}

func (c *RedisPriceCache) Set(ctx context.Context, key string, price float64) {
	if price <= 0 {
		return
	}
	if err := c.rdb.Set(ctx, keyPrefix+key, strconv.FormatFloat(price, 'g', -1, 64), c.ttl).Err(); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("redis price cache write failed")
	}
}
