package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"
)

// Valkey stores snapshots with SET, followed by EXPIRE in the same round
// trip when a ttl is set.
type Valkey struct {
	opts   valkey.ClientOption
	client valkey.Client
}

func NewValkey(config Config) *Valkey {
	addr := config.Addr
	if addr == "" {
		addr = "localhost:6379"
	}
	return &Valkey{opts: valkey.ClientOption{
		InitAddress: []string{addr},
		Password:    config.Password,
		SelectDB:    config.Database,
	}}
}

func (v *Valkey) Connect(ctx context.Context) error {
	if v.client != nil {
		return nil
	}

	client, err := valkey.NewClient(v.opts)
	if err != nil {
		return fmt.Errorf("valkey %s: %w", v.opts.InitAddress[0], err)
	}
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return fmt.Errorf("valkey %s: %w", v.opts.InitAddress[0], err)
	}
	v.client = client
	return nil
}

func (v *Valkey) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if v.client == nil {
		return ErrNotConnected
	}

	cmds := valkey.Commands{v.client.B().Set().Key(key).Value(valkey.BinaryString(value)).Build()}
	if secs := ceilSeconds(ttl); secs > 0 {
		cmds = append(cmds, v.client.B().Expire().Key(key).Seconds(secs).Build())
	}
	for _, resp := range v.client.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			return err
		}
	}
	return nil
}

func (v *Valkey) Type() string { return "valkey" }

func (v *Valkey) Close() error {
	if v.client != nil {
		v.client.Close()
		v.client = nil
	}
	return nil
}
