package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/busybox42/qstat/internal/logging"
	"github.com/busybox42/qstat/internal/queue"
	"github.com/busybox42/qstat/internal/report"
)

const shutdownTimeout = 5 * time.Second

// publisher is a sink that also counts failed polls.
type publisher interface {
	report.Sink
	report.FailureRecorder
}

// statsLoop polls the queue on a fixed schedule. Every tick runs in its
// own goroutine, so a slow or failing poll never delays the next one.
type statsLoop struct {
	client   queue.Client
	sink     publisher
	interval time.Duration
	stdout   io.Writer
	stderr   io.Writer
	logger   logging.Logger

	errMu sync.Mutex
}

func (l *statsLoop) run(ctx context.Context) error {
	fmt.Fprintf(l.stdout, "Starting stats collection every %s sec\n", seconds(l.interval))

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("stats collection stopped")
			return nil
		case <-ticker.C:
			wg.Add(1)
			go func() {
				defer wg.Done()
				l.tick(ctx)
			}()
		}
	}
}

func (l *statsLoop) tick(ctx context.Context) {
	stats, err := l.client.Stats(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		l.sink.RecordFailure(err)
		l.report(fmt.Errorf("queue stats: %w", err))
		return
	}

	if err := l.sink.Publish(ctx, stats); err != nil && ctx.Err() == nil {
		l.logger.Warn("failed to publish stats", logging.F("error", err))
		l.report(err)
	}
}

func (l *statsLoop) report(err error) {
	l.errMu.Lock()
	defer l.errMu.Unlock()
	writeError(l.stderr, err)
}

// seconds formats d the way the start line shows it: 1000ms is "1",
// 1500ms is "1.5".
func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}
