// Package report fans one stats result out to every configured sink.
package report

import (
	"context"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/busybox42/qstat/internal/metrics"
	"github.com/busybox42/qstat/internal/queue"
)

// Sink receives queue stats snapshots.
type Sink interface {
	Publish(ctx context.Context, stats queue.QueueStats) error
}

// FailureRecorder is implemented by sinks that track failed polls.
type FailureRecorder interface {
	RecordFailure(err error)
}

// Printer writes one line per snapshot. Writes are serialized so
// concurrent publishes never interleave within a line.
type Printer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewPrinter creates a printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

func (p *Printer) Publish(_ context.Context, stats queue.QueueStats) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := fmt.Fprintln(p.w, stats.String())
	return err
}

// ExporterSink publishes snapshots to a prometheus exporter.
type ExporterSink struct {
	exporter *metrics.Exporter
}

// NewExporterSink wraps exporter.
func NewExporterSink(exporter *metrics.Exporter) *ExporterSink {
	return &ExporterSink{exporter: exporter}
}

func (s *ExporterSink) Publish(_ context.Context, stats queue.QueueStats) error {
	s.exporter.Observe(stats)
	return nil
}

func (s *ExporterSink) RecordFailure(error) {
	s.exporter.ObserveError()
}

// Fanout publishes to all sinks concurrently and returns the first error.
// A failing sink does not stop the others.
type Fanout []Sink

func (f Fanout) Publish(ctx context.Context, stats queue.QueueStats) error {
	var g errgroup.Group
	for _, sink := range f {
		sink := sink
		g.Go(func() error {
			return sink.Publish(ctx, stats)
		})
	}
	return g.Wait()
}

func (f Fanout) RecordFailure(err error) {
	for _, sink := range f {
		if r, ok := sink.(FailureRecorder); ok {
			r.RecordFailure(err)
		}
	}
}
