package queue

import (
	"context"
	"errors"
)

// ErrUnimplemented is returned by operations the engine does not support yet.
var ErrUnimplemented = errors.New("unimplemented")

// Client is the narrow contract the command dispatcher calls through. Each
// call delivers exactly one result to its caller; implementations must
// tolerate overlapping Stats calls.
type Client interface {
	// Enumerate returns every queued outbound message.
	Enumerate(ctx context.Context) ([]Message, error)

	// Stats computes one aggregate statistics snapshot.
	Stats(ctx context.Context) (QueueStats, error)

	// IsEmpty reports whether the outbound queue holds no messages.
	IsEmpty(ctx context.Context) (bool, error)

	// Close releases any resources held by the client.
	Close() error
}

// StorageBackend is the read side of a queue store.
type StorageBackend interface {
	// List returns all messages in a specific queue
	List(ctx context.Context, queueType QueueType) ([]Message, error)

	// Stats counts messages and sums their sizes across all queues
	Stats(ctx context.Context) (QueueStats, error)

	// Name identifies the backend in logs
	Name() string

	Close() error
}
