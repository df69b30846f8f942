package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotConnected is returned by Put before Connect succeeds.
var ErrNotConnected = errors.New("not connected to cache")

// Store holds the latest stats snapshot under a single key. Writers only
// overwrite; readers are external dashboards and scripts.
type Store interface {
	// Connect dials the backend and verifies it answers.
	Connect(ctx context.Context) error

	// Put overwrites key. A zero ttl keeps the value until the next Put.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Type names the backend ("memory", "redis", "memcached", "valkey").
	Type() string

	Close() error
}

// Config selects and addresses a backend.
type Config struct {
	Type     string
	Addr     string // host:port
	Password string
	Database int // redis and valkey only
}

// New returns an unconnected store for config.Type.
func New(config Config) (Store, error) {
	switch config.Type {
	case "memory":
		return NewMemory(), nil
	case "redis":
		return NewRedis(config), nil
	case "memcached":
		return NewMemcached(config), nil
	case "valkey":
		return NewValkey(config), nil
	default:
		return nil, errors.New("unsupported cache type: " + config.Type)
	}
}

// ceilSeconds rounds a ttl up for backends that expire in whole seconds.
func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64((d + time.Second - 1) / time.Second)
}
