package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/busybox42/qstat/internal/cache"
	"github.com/busybox42/qstat/internal/config"
	"github.com/busybox42/qstat/internal/logging"
	"github.com/busybox42/qstat/internal/metrics"
)

const connectTimeout = 5 * time.Second

// Pipeline is the set of sinks the stats daemon publishes to, built from
// the [metrics] and [cache] sections.
type Pipeline struct {
	Fanout

	server *metrics.Server
	store  cache.Store
}

// NewPipeline always prints to out, and adds the prometheus exporter and
// cache snapshot sinks when configured.
func NewPipeline(root *config.Root, out io.Writer, logger logging.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = logging.Discard()
	}

	p := &Pipeline{Fanout: Fanout{NewPrinter(out)}}
	cfg := root.Config

	if cfg.Metrics.Listen != "" {
		exporter := metrics.NewExporter()
		server, err := metrics.StartServer(cfg.Metrics.Listen, exporter, logger)
		if err != nil {
			return nil, err
		}
		p.server = server
		p.Fanout = append(p.Fanout, NewExporterSink(exporter))
	}

	if cfg.Cache.Type != "" {
		ttl, err := cfg.CacheTTL()
		if err != nil {
			p.Close(context.Background())
			return nil, err
		}

		store, err := cache.New(cache.Config{
			Type:     cfg.Cache.Type,
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			Database: cfg.Cache.DB,
		})
		if err != nil {
			p.Close(context.Background())
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		err = store.Connect(ctx)
		cancel()
		if err != nil {
			p.Close(context.Background())
			return nil, fmt.Errorf("cache %s: %w", cfg.Cache.Type, err)
		}
		p.store = store

		sink := NewCacheSink(store, cfg.Cache.Key, ttl, logger)
		logger.Info("publishing snapshots",
			logging.F("cache", store.Type()),
			logging.F("key", cfg.Cache.Key),
			logging.F("run_id", sink.RunID()),
		)
		p.Fanout = append(p.Fanout, sink)
	}

	return p, nil
}

// MetricsAddr returns the exporter's bound address, empty when disabled.
func (p *Pipeline) MetricsAddr() string {
	if p.server == nil {
		return ""
	}
	return p.server.Addr()
}

// Close stops the metrics server and closes the cache.
func (p *Pipeline) Close(ctx context.Context) error {
	var firstErr error
	if p.server != nil {
		if err := p.server.Shutdown(ctx); err != nil {
			firstErr = err
		}
		p.server = nil
	}
	if p.store != nil {
		if err := p.store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		p.store = nil
	}
	return firstErr
}
