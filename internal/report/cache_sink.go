package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/busybox42/qstat/internal/cache"
	"github.com/busybox42/qstat/internal/logging"
	"github.com/busybox42/qstat/internal/queue"
)

// Snapshot is the document stored under the configured cache key.
type Snapshot struct {
	RunID       string           `json:"run_id"`
	Host        string           `json:"host"`
	PublishedAt time.Time        `json:"published_at"`
	Total       int              `json:"total"`
	Stats       queue.QueueStats `json:"stats"`
}

// CacheSink stores the latest snapshot in a cache. Writes go through a
// circuit breaker so an unreachable store is not hammered every tick.
type CacheSink struct {
	store   cache.Store
	key     string
	ttl     time.Duration
	runID   string
	host    string
	breaker *gobreaker.CircuitBreaker
	logger  logging.Logger
	now     func() time.Time
}

// NewCacheSink creates a sink writing to key with the given expiry. The
// store must already be connected.
func NewCacheSink(store cache.Store, key string, ttl time.Duration, logger logging.Logger) *CacheSink {
	if logger == nil {
		logger = logging.Discard()
	}
	logger = logger.WithField("component", "cache-sink")

	host, _ := os.Hostname()

	s := &CacheSink{
		store:  store,
		key:    key,
		ttl:    ttl,
		runID:  uuid.New().String(),
		host:   host,
		logger: logger,
		now:    time.Now,
	}

	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "cache:" + store.Type(),
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				logging.F("name", name),
				logging.F("from", from.String()),
				logging.F("to", to.String()),
			)
		},
	})

	return s
}

// RunID identifies this daemon run in published snapshots.
func (s *CacheSink) RunID() string {
	return s.runID
}

func (s *CacheSink) Publish(ctx context.Context, stats queue.QueueStats) error {
	data, err := json.Marshal(Snapshot{
		RunID:       s.runID,
		Host:        s.host,
		PublishedAt: s.now().UTC(),
		Total:       stats.Total(),
		Stats:       stats,
	})
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	_, err = s.breaker.Execute(func() (interface{}, error) {
		return nil, s.store.Put(ctx, s.key, data, s.ttl)
	})
	if err != nil {
		return fmt.Errorf("publish snapshot to %s: %w", s.store.Type(), err)
	}

	s.logger.Debug("snapshot published", logging.F("key", s.key))
	return nil
}

// State reports the breaker state.
func (s *CacheSink) State() gobreaker.State {
	return s.breaker.State()
}
