package rate

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrLimited indicates the attempt budget for a key is exhausted.
	ErrLimited = errors.New("rate limited")
	// ErrUnavailable indicates the counter backend is unreachable.
	ErrUnavailable = errors.New("rate guard backend unavailable")
)

// Config holds the attempt budget shared by all guard backends.
type Config struct {
	MaxAttempts int
	Window      time.Duration
}

const (
	defaultMaxAttempts = 5
	defaultWindow      = 15 * time.Minute
)

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.Window <= 0 {
		c.Window = defaultWindow
	}
	return c
}

// Guard throttles sensitive operations by key. Allow is checked before the
// operation; RecordFailure and RecordSuccess are reported after it.
type Guard interface {
	Allow(ctx context.Context, key string) error
	RecordFailure(ctx context.Context, key string) error
	RecordSuccess(ctx context.Context, key string) error
}

// RedisGuard is a Guard backed by Redis fixed-window counters.
type RedisGuard struct {
	redis  redis.UniversalClient
	config Config
}

// NewRedisGuard creates a Guard using the given Redis client.
func NewRedisGuard(client redis.UniversalClient, cfg Config) *RedisGuard {
	return &RedisGuard{redis: client, config: cfg.withDefaults()}
}

func guardKey(key string) string {
	return "ag:" + key
}

// Allow rejects with ErrLimited once the key's failure counter has reached
// the budget. Missing keys pass.
func (g *RedisGuard) Allow(ctx context.Context, key string) error {
	count, err := g.redis.Get(ctx, guardKey(key)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if count >= int64(g.config.MaxAttempts) {
		return ErrLimited
	}
	return nil
}

// RecordFailure increments the key's counter, arming the window TTL on the
// first hit.
func (g *RedisGuard) RecordFailure(ctx context.Context, key string) error {
	count, err := g.redis.Incr(ctx, guardKey(key)).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if count == 1 {
		if err := g.redis.Expire(ctx, guardKey(key), g.config.Window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	return nil
}

// RecordSuccess clears the key's counter.
func (g *RedisGuard) RecordSuccess(ctx context.Context, key string) error {
	if err := g.redis.Del(ctx, guardKey(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// MemoryGuard is a Guard backed by an in-process TTL cache. Counters expire
// with the window; increments are atomic under concurrent failures.
type MemoryGuard struct {
	cache  *ttlcache.Cache[string, *atomic.Int64]
	config Config
}

// NewMemoryGuard creates an in-process Guard. Callers must Stop it when done.
func NewMemoryGuard(cfg Config) *MemoryGuard {
	cfg = cfg.withDefaults()
	cache := ttlcache.New(
		ttlcache.WithTTL[string, *atomic.Int64](cfg.Window),
		ttlcache.WithDisableTouchOnHit[string, *atomic.Int64](),
	)
	go cache.Start()
	return &MemoryGuard{cache: cache, config: cfg}
}

// Stop halts the cache's expiry loop.
func (g *MemoryGuard) Stop() {
	g.cache.Stop()
}

func (g *MemoryGuard) Allow(_ context.Context, key string) error {
	item := g.cache.Get(key)
	if item == nil {
		return nil
	}
	if item.Value().Load() >= int64(g.config.MaxAttempts) {
		return ErrLimited
	}
	return nil
}

func (g *MemoryGuard) RecordFailure(_ context.Context, key string) error {
	item, _ := g.cache.GetOrSet(key, new(atomic.Int64))
	item.Value().Add(1)
	return nil
}

func (g *MemoryGuard) RecordSuccess(_ context.Context, key string) error {
	g.cache.Delete(key)
	return nil
}
