package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/busybox42/qstat/internal/queue"
)

// Exporter holds the queue gauges published by the stats daemon. Each
// exporter owns its registry so several can coexist in one process.
type Exporter struct {
	registry *prometheus.Registry

	queueMessages *prometheus.GaugeVec
	queueBytes    prometheus.Gauge
	lastPoll      prometheus.Gauge
	polls         prometheus.Counter
	pollErrors    prometheus.Counter

	mu       sync.RWMutex
	lastSeen time.Time
}

// NewExporter creates an exporter with all collectors registered.
func NewExporter() *Exporter {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Exporter{
		registry: reg,
		queueMessages: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "qstat_queue_messages",
				Help: "Number of messages in each outbound queue",
			},
			[]string{"queue"},
		),
		queueBytes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "qstat_queue_size_bytes",
			Help: "Total size of all queued messages in bytes",
		}),
		lastPoll: factory.NewGauge(prometheus.GaugeOpts{
			Name: "qstat_last_poll_timestamp_seconds",
			Help: "Unix time of the last successful stats poll",
		}),
		polls: factory.NewCounter(prometheus.CounterOpts{
			Name: "qstat_polls_total",
			Help: "Total number of successful stats polls",
		}),
		pollErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "qstat_poll_errors_total",
			Help: "Total number of failed stats polls",
		}),
	}
}

// Observe records a stats snapshot.
func (e *Exporter) Observe(stats queue.QueueStats) {
	for _, qt := range queue.QueueTypes {
		e.queueMessages.WithLabelValues(string(qt)).Set(float64(stats.Count(qt)))
	}
	e.queueBytes.Set(float64(stats.TotalSize))

	seen := stats.LastUpdated
	if seen.IsZero() {
		seen = time.Now()
	}
	e.lastPoll.Set(float64(seen.Unix()))
	e.polls.Inc()

	e.mu.Lock()
	e.lastSeen = seen
	e.mu.Unlock()
}

// ObserveError counts a failed poll.
func (e *Exporter) ObserveError() {
	e.pollErrors.Inc()
}

// LastPoll returns the time of the last observed snapshot, zero if none.
func (e *Exporter) LastPoll() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastSeen
}
