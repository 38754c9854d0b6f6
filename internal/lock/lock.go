package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/orderdesk/internal/config"
)

// Locker hands out exclusive, advisory locks keyed by name.
type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
}

// Unlock releases a held lock.
type Unlock func(ctx context.Context) error

// ErrNotAcquired indicates the lock stayed busy for the whole wait window.
var ErrNotAcquired = errors.New("lock not acquired")

// Module provides the configured Locker to the Fx graph.
var Module = fx.Provide(NewLocker)

// NewLocker initialises the configured lock driver (none, local or redis).
func NewLocker(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (Locker, error) {
	switch cfg.Lock.Driver {
	case "none", "":
		logger.Info("writer lock disabled; concurrent mutations may interleave")
		return Noop{}, nil
	case "local":
		logger.Info("writer lock enabled", zap.String("driver", "local"))
		return NewLocal(), nil
	case "redis":
		return newRedisLocker(lc, cfg.Lock, logger)
	default:
		return nil, fmt.Errorf("unsupported lock driver: %s", cfg.Lock.Driver)
	}
}

// Noop grants every lock immediately.
type Noop struct{}

// Lock implements Locker.
func (Noop) Lock(context.Context, string) (Unlock, error) {
	return func(context.Context) error { return nil }, nil
}

// Local serialises holders of the same key within one process.
type Local struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

// NewLocal returns an in-process Locker.
func NewLocal() *Local {
	return &Local{slots: make(map[string]chan struct{})}
}

// Lock blocks until key is free or ctx is done.
func (l *Local) Lock(ctx context.Context, key string) (Unlock, error) {
	l.mu.Lock()
	slot, ok := l.slots[key]
	if !ok {
		slot = make(chan struct{}, 1)
		l.slots[key] = slot
	}
	l.mu.Unlock()

	select {
	case slot <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s: %w", ErrNotAcquired, key, ctx.Err())
	}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() { <-slot })
		return nil
	}, nil
}

// releaseScript deletes the key only while it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis implements Locker with SET NX PX and a token-checked release.
type Redis struct {
	client       goredis.UniversalClient
	ttl          time.Duration
	wait         time.Duration
	pollInterval time.Duration
}

// NewRedis wraps an existing client.
func NewRedis(client goredis.UniversalClient, ttl, wait, pollInterval time.Duration) *Redis {
	if pollInterval <= 0 {
		pollInterval = 50 * time.Millisecond
	}
	return &Redis{client: client, ttl: ttl, wait: wait, pollInterval: pollInterval}
}

func newRedisLocker(lc fx.Lifecycle, cfg config.Lock, logger *zap.Logger) (Locker, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("ping redis: %w", err)
			}
			logger.Info("writer lock enabled", zap.String("driver", "redis"), zap.String("addr", cfg.Redis.Addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("closing redis lock client")
			return client.Close()
		},
	})

	return NewRedis(client, cfg.TTL, cfg.Wait, cfg.PollInterval), nil
}

// Lock polls SET NX until it wins, the wait window closes or ctx is done.
func (r *Redis) Lock(ctx context.Context, key string) (Unlock, error) {
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	if r.wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.wait)
		defer cancel()
	}

	token := uuid.NewString()
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			return func(ctx context.Context) error {
				return releaseScript.Run(ctx, r.client, []string{key}, token).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %w", ErrNotAcquired, key, ctx.Err())
		case <-ticker.C:
		}
	}
}
