package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis stores snapshots with SET and an optional PX expiry.
type Redis struct {
	opts   redis.Options
	client *redis.Client
}

func NewRedis(config Config) *Redis {
	addr := config.Addr
	if addr == "" {
		addr = "localhost:6379"
	}
	return &Redis{opts: redis.Options{
		Addr:     addr,
		Password: config.Password,
		DB:       config.Database,
	}}
}

func (r *Redis) Connect(ctx context.Context) error {
	if r.client != nil {
		return nil
	}

	client := redis.NewClient(&r.opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("redis %s: %w", r.opts.Addr, err)
	}
	r.client = client
	return nil
}

func (r *Redis) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if r.client == nil {
		return ErrNotConnected
	}
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *Redis) Type() string { return "redis" }

func (r *Redis) Close() error {
	if r.client == nil {
		return nil
	}
	err := r.client.Close()
	r.client = nil
	return err
}
