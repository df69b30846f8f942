package queue

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/busybox42/qstat/internal/config"
	"github.com/busybox42/qstat/internal/logging"
)

// Engine is the read-only Client over a StorageBackend.
type Engine struct {
	storage StorageBackend
	logger  logging.Logger
}

// Ensure Engine implements Client
var _ Client = (*Engine)(nil)

// NewEngine creates an engine over an existing backend. A nil logger is
// replaced with the discard sink.
func NewEngine(storage StorageBackend, logger logging.Logger) *Engine {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Engine{
		storage: storage,
		logger:  logger.WithField("component", "queue"),
	}
}

// Open selects and opens the storage backend named by the configuration root.
func Open(ctx context.Context, root *config.Root, logger logging.Logger) (*Engine, error) {
	cfg := root.Config

	var storage StorageBackend
	switch cfg.Queue.Storage {
	case config.StorageFile:
		storage = NewFileStorageBackend(cfg.Queue.Dir)
	case config.StorageSQLite, config.StoragePostgres, config.StorageMySQL:
		s, err := OpenSQLStorage(ctx, cfg.Queue.Storage, cfg.Queue.DSN, cfg.Queue.Table)
		if err != nil {
			return nil, err
		}
		storage = s
	default:
		return nil, fmt.Errorf("unsupported queue storage %q", cfg.Queue.Storage)
	}

	engine := NewEngine(storage, logger)
	engine.logger.Debug("queue engine opened",
		logging.F("storage", storage.Name()),
		logging.F("queue_dir", cfg.Queue.Dir),
		logging.F("config_dir", root.Dir))

	return engine, nil
}

// Enumerate lists every queue, ordered by queue type, then priority (highest
// first), then age (oldest first). Any queue that cannot be read fails the
// whole listing.
func (e *Engine) Enumerate(ctx context.Context) ([]Message, error) {
	var all []Message

	for _, qType := range QueueTypes {
		messages, err := e.storage.List(ctx, qType)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			e.logger.Error("failed to list queue", logging.F("type", qType), logging.F("error", err))
			return nil, fmt.Errorf("failed to list %s queue: %w", qType, err)
		}

		sort.SliceStable(messages, func(i, j int) bool {
			if messages[i].Priority != messages[j].Priority {
				return messages[i].Priority > messages[j].Priority
			}
			return messages[i].CreatedAt.Before(messages[j].CreatedAt)
		})

		e.logger.Debug("queue listed", logging.F("type", qType), logging.F("count", len(messages)))
		all = append(all, messages...)
	}

	return all, nil
}

// Stats computes one statistics snapshot
func (e *Engine) Stats(ctx context.Context) (QueueStats, error) {
	stats, err := e.storage.Stats(ctx)
	if err != nil {
		e.logger.Error("failed to compute queue stats", logging.F("error", err))
		return QueueStats{}, err
	}

	e.logger.Debug("queue stats computed",
		logging.F("active", stats.ActiveCount),
		logging.F("deferred", stats.DeferredCount),
		logging.F("hold", stats.HoldCount),
		logging.F("failed", stats.FailedCount),
		logging.F("total_size", stats.TotalSize))

	return stats, nil
}

// IsEmpty is not supported by the engine yet.
func (e *Engine) IsEmpty(ctx context.Context) (bool, error) {
	return false, fmt.Errorf("queue emptiness check: %w", ErrUnimplemented)
}

// Close releases the storage backend
func (e *Engine) Close() error {
	return e.storage.Close()
}

// extractDomain returns the domain portion of an email address, or empty string if invalid
func extractDomain(addr string) string {
	at := strings.LastIndex(addr, "@")
	if at == -1 || at == len(addr)-1 {
		return ""
	}
	return strings.ToLower(strings.TrimSuffix(addr[at+1:], ">"))
}
