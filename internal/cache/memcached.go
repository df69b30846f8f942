package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

const memcachedTimeout = 2 * time.Second

// Memcached stores snapshots as a single item. The client has no context
// support, so Put relies on its socket timeout.
type Memcached struct {
	addr   string
	client *memcache.Client
}

func NewMemcached(config Config) *Memcached {
	addr := config.Addr
	if addr == "" {
		addr = "localhost:11211"
	}
	return &Memcached{addr: addr}
}

func (m *Memcached) Connect(context.Context) error {
	if m.client != nil {
		return nil
	}

	client := memcache.New(m.addr)
	client.Timeout = memcachedTimeout
	if err := client.Ping(); err != nil {
		return fmt.Errorf("memcached %s: %w", m.addr, err)
	}
	m.client = client
	return nil
}

func (m *Memcached) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if m.client == nil {
		return ErrNotConnected
	}
	return m.client.Set(&memcache.Item{
		Key:        key,
		Value:      value,
		Expiration: int32(ceilSeconds(ttl)),
	})
}

func (m *Memcached) Type() string { return "memcached" }

// Close forgets the client; its idle connections time out on their own.
func (m *Memcached) Close() error {
	m.client = nil
	return nil
}
