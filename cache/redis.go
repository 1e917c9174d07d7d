package cache

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/swingdesk/swingdesk/config"
	"github.com/swingdesk/swingdesk/logger"
)

// Redis is a Store backed by a Redis server. Expiry is delegated to Redis
// key TTLs. Every operation is best-effort: connection or command failures
// are logged and reported as misses so cache unavailability never blocks or
// fails a unit.
type Redis struct {
	rdb *goredis.Client
	ttl time.Duration
	log *logger.Logger
}

// NewRedis creates a Redis-backed store from config.
func NewRedis(cfg config.RedisConfig, ttl time.Duration, log *logger.Logger) *Redis {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Redis{rdb: rdb, ttl: ttl, log: log.WithComponent("cache")}
}

// Get returns the value for key, or a miss when the key is absent, expired,
// or Redis is unreachable.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	raw, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != goredis.Nil {
			r.log.Warn("cache read failed, treating as miss", logger.ErrorFields("get", err))
		}
		return nil, false
	}
	return raw, true
}

// Set stores the value with the configured TTL. Failures are logged and
// dropped.
func (r *Redis) Set(ctx context.Context, key string, value []byte) {
	if err := r.rdb.Set(ctx, key, value, r.ttl).Err(); err != nil {
		r.log.Warn("cache write failed, dropping entry", logger.ErrorFields("set", err))
	}
}

// Close releases the underlying Redis connection pool.
func (r *Redis) Close() error {
	return r.rdb.Close()
}

var _ Store = (*Redis)(nil)
