package kv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/redis/go-redis/v9"

	coreconfig "github.com/m3rciful/openspace/core/config"
	"github.com/m3rciful/openspace/core/logger"
)

// Redis stores values as plain Redis strings without expiry.
type Redis struct {
	client redis.UniversalClient
}

// NewRedis wraps an existing client.
func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

// DialRedis connects to cfg.Addr and waits until the server answers PING.
func DialRedis(ctx context.Context, cfg coreconfig.RedisConfig, timeout time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	start := time.Now()
	err := retry.Do(
		func() error { return client.Ping(waitCtx).Err() },
		retry.Context(waitCtx),
		retry.Attempts(0),
		retry.DelayType(retry.BackOffDelay),
		retry.Delay(250*time.Millisecond),
		retry.MaxDelay(2*time.Second),
		retry.OnRetry(func(n uint, err error) {
			logger.Debug(ctx, component, "redis.wait",
				slog.String("status", "retry"),
				slog.Int("attempt", int(n)+1),
				slog.String("err", err.Error()),
			)
		}),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		_ = client.Close()
		logger.Error(ctx, component, "kv.open",
			slog.String("status", "fail"),
			slog.String("driver", "redis"),
			slog.String("addr", cfg.Addr),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("kv: redis not ready: %w", err)
	}
	logger.Info(ctx, component, "kv.open",
		slog.String("status", "ok"),
		slog.String("driver", "redis"),
		slog.String("addr", cfg.Addr),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return &Redis{client: client}, nil
}

// Close closes the client.
func (r *Redis) Close() error { return r.client.Close() }

func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("kv: get: %w", err)
	}
	return v, nil
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("kv: set: %w", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("kv: delete: %w", err)
	}
	return nil
}

func (r *Redis) Has(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("kv: has: %w", err)
	}
	return n > 0, nil
}
