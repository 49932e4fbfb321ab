// AngelaMos | 2026
// redis.go

package core

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/reseller-console/internal/config"
)

const (
	redisPingTimeout = 5 * time.Second
	redisDialTries   = 3
	redisDialBackoff = 500 * time.Millisecond
)

// Redis carries the sync version, the token blacklist, rate limit buckets
// and the housekeeping locks. All of them share one pool.
type Redis struct {
	Client *redis.Client
	locker *redsync.Redsync
}

// NewRedis connects and pings, retrying a few times so the API can start
// alongside a Redis container that is still booting.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*Redis, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	opts.MinIdleConns = cfg.MinIdleConns
	opts.PoolTimeout = 30 * time.Second
	opts.ConnMaxIdleTime = 5 * time.Minute

	r := &Redis{Client: redis.NewClient(opts)}
	r.locker = redsync.New(goredis.NewPool(r.Client))

	for attempt := 1; ; attempt++ {
		err = r.Ping(ctx)
		if err == nil {
			return r, nil
		}
		if attempt == redisDialTries {
			break
		}
		select {
		case <-ctx.Done():
			err = ctx.Err()
		case <-time.After(time.Duration(attempt) * redisDialBackoff):
			continue
		}
		break
	}

	_ = r.Client.Close()
	return nil, fmt.Errorf("connect redis: %w", err)
}

// Locker hands out redsync mutexes for jobs that must run on one replica.
func (r *Redis) Locker() *redsync.Redsync {
	return r.locker
}

func (r *Redis) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()

	if err := r.Client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *Redis) PoolStats() *redis.PoolStats {
	return r.Client.PoolStats()
}

func (r *Redis) Close() error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Close()
}
