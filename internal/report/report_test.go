package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/busybox42/qstat/internal/cache"
	"github.com/busybox42/qstat/internal/config"
	"github.com/busybox42/qstat/internal/metrics"
	"github.com/busybox42/qstat/internal/queue"
)

var errSinkDown = errors.New("sink down")

func testStats() queue.QueueStats {
	return queue.QueueStats{
		ActiveCount:   3,
		DeferredCount: 1,
		TotalSize:     2048,
		LastUpdated:   time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

type recordingSink struct {
	calls    int32
	failures int32
	err      error
}

func (s *recordingSink) Publish(context.Context, queue.QueueStats) error {
	atomic.AddInt32(&s.calls, 1)
	return s.err
}

func (s *recordingSink) RecordFailure(error) {
	atomic.AddInt32(&s.failures, 1)
}

// capturingStore records writes; with err set it rejects every one.
type capturingStore struct {
	mu   sync.Mutex
	puts int32
	key  string
	data []byte
	ttl  time.Duration
	err  error
}

func (c *capturingStore) Connect(context.Context) error { return nil }
func (c *capturingStore) Type() string                  { return "capture" }
func (c *capturingStore) Close() error                  { return nil }

func (c *capturingStore) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	atomic.AddInt32(&c.puts, 1)
	if c.err != nil {
		return c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.key, c.data, c.ttl = key, value, ttl
	return nil
}

var _ cache.Store = (*capturingStore)(nil)

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	require.NoError(t, p.Publish(context.Background(), testStats()))
	assert.Equal(t, testStats().String()+"\n", buf.String())
}

func TestPrinterConcurrentLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.Publish(context.Background(), testStats())
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 10)
	for _, line := range lines {
		assert.Equal(t, testStats().String(), line)
	}
}

func TestFanout(t *testing.T) {
	ok := &recordingSink{}
	bad := &recordingSink{err: errSinkDown}
	f := Fanout{ok, bad}

	err := f.Publish(context.Background(), testStats())
	assert.ErrorIs(t, err, errSinkDown)
	assert.Equal(t, int32(1), atomic.LoadInt32(&ok.calls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&bad.calls))

	f.RecordFailure(errSinkDown)
	assert.Equal(t, int32(1), atomic.LoadInt32(&ok.failures))
	assert.Equal(t, int32(1), atomic.LoadInt32(&bad.failures))

	assert.NoError(t, Fanout{}.Publish(context.Background(), testStats()))
}

func TestExporterSink(t *testing.T) {
	exporter := metrics.NewExporter()
	sink := NewExporterSink(exporter)

	require.NoError(t, sink.Publish(context.Background(), testStats()))
	assert.Equal(t, testStats().LastUpdated, exporter.LastPoll())
	sink.RecordFailure(errSinkDown)
}

func TestCacheSink(t *testing.T) {
	store := &capturingStore{}

	sink := NewCacheSink(store, "qstat:stats", time.Minute, nil)
	sink.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 5, 0, time.UTC) }

	require.NoError(t, sink.Publish(context.Background(), testStats()))
	assert.Equal(t, "qstat:stats", store.key)
	assert.Equal(t, time.Minute, store.ttl)

	var snap Snapshot
	require.NoError(t, json.Unmarshal(store.data, &snap))
	assert.Equal(t, sink.RunID(), snap.RunID)
	assert.Len(t, snap.RunID, 36)
	assert.Equal(t, 4, snap.Total)
	assert.Equal(t, 3, snap.Stats.ActiveCount)
	assert.Equal(t, int64(2048), snap.Stats.TotalSize)
	assert.Equal(t, "2025-03-01T12:00:05Z", snap.PublishedAt.Format(time.RFC3339))
}

func TestCacheSinkBreakerOpens(t *testing.T) {
	store := &capturingStore{err: errSinkDown}
	sink := NewCacheSink(store, "k", 0, nil)

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, sink.Publish(context.Background(), testStats()), errSinkDown)
	}
	assert.Equal(t, gobreaker.StateOpen, sink.State())

	err := sink.Publish(context.Background(), testStats())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(3), atomic.LoadInt32(&store.puts))
}

func TestNewPipeline(t *testing.T) {
	t.Run("printer only", func(t *testing.T) {
		var buf bytes.Buffer
		p, err := NewPipeline(&config.Root{Dir: t.TempDir(), Config: config.DefaultConfig()}, &buf, nil)
		require.NoError(t, err)
		defer p.Close(context.Background())

		assert.Len(t, p.Fanout, 1)
		assert.Empty(t, p.MetricsAddr())
		require.NoError(t, p.Publish(context.Background(), testStats()))
		assert.Contains(t, buf.String(), "active=3")
	})

	t.Run("metrics and cache", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Metrics.Listen = "127.0.0.1:0"
		cfg.Cache.Type = "memory"

		var buf bytes.Buffer
		p, err := NewPipeline(&config.Root{Dir: t.TempDir(), Config: cfg}, &buf, nil)
		require.NoError(t, err)

		assert.Len(t, p.Fanout, 3)
		assert.IsType(t, &cache.Memory{}, p.store)
		require.NotEmpty(t, p.MetricsAddr())
		require.NoError(t, p.Publish(context.Background(), testStats()))

		resp, err := http.Get("http://" + p.MetricsAddr() + "/metrics")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		require.NoError(t, p.Close(context.Background()))
		assert.Empty(t, p.MetricsAddr())
	})

	t.Run("unreachable cache", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Cache.Type = "redis"
		cfg.Cache.Addr = "127.0.0.1:1"

		_, err := NewPipeline(&config.Root{Dir: t.TempDir(), Config: cfg}, &bytes.Buffer{}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cache redis")
	})

	t.Run("bad cache ttl", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Cache.Type = "memory"
		cfg.Cache.TTL = "soon"

		_, err := NewPipeline(&config.Root{Dir: t.TempDir(), Config: cfg}, &bytes.Buffer{}, nil)
		assert.Error(t, err)
	})
}
