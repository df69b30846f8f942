package cli

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/busybox42/qstat/internal/config"
	"github.com/busybox42/qstat/internal/logging"
	"github.com/busybox42/qstat/internal/report"
)

// startDaemon runs the daemon in the background and returns a function that
// cancels it and yields the exit code.
func startDaemon(t *testing.T, h *harness, args ...string) func() int {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int, 1)
	go func() {
		done <- Run(ctx, args, h.env)
	}()

	return func() int {
		cancel()
		select {
		case code := <-done:
			return code
		case <-time.After(5 * time.Second):
			t.Fatal("daemon did not stop after cancel")
			return -1
		}
	}
}

func TestDaemonPollsRepeatedly(t *testing.T) {
	client := &fakeClient{stats: sampleStats()}
	h := newHarness(t, client)

	stop := startDaemon(t, h, "--qstat", "--daemon", "-c", t.TempDir(), "--stats-interval", "20")

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&client.statsCalls) >= 3
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, ExitOK, stop())

	out := h.stdout.String()
	assert.True(t, strings.HasPrefix(out, "Starting stats collection every 0.02 sec\n"), out)
	assert.GreaterOrEqual(t, strings.Count(out, sampleStats().String()+"\n"), 3)
	assert.Equal(t, int32(1), atomic.LoadInt32(&h.opens))
	assert.Equal(t, int32(1), atomic.LoadInt32(&client.closed))
}

func TestDaemonDoesNotExitOnItsOwn(t *testing.T) {
	client := &fakeClient{stats: sampleStats()}
	h := newHarness(t, client)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int, 1)
	go func() { done <- Run(ctx, []string{"--qstat", "-d", "-c", t.TempDir(), "-i", "10"}, h.env) }()

	select {
	case code := <-done:
		t.Fatalf("daemon exited with %d before cancel", code)
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	assert.Equal(t, ExitOK, <-done)
}

func TestDaemonKeepsTickingAfterErrors(t *testing.T) {
	client := &fakeClient{statsErr: errors.New("engine unavailable")}
	h := newHarness(t, client)

	stop := startDaemon(t, h, "--qstat", "-d", "-c", t.TempDir(), "-i", "10")

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&client.statsCalls) >= 3
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, ExitOK, stop())

	assert.GreaterOrEqual(t, strings.Count(h.stderr.String(), "error: queue stats: engine unavailable\n"), 3)
}

func TestDaemonToleratesOverlappingTicks(t *testing.T) {
	client := &fakeClient{stats: sampleStats(), statsDelay: 100 * time.Millisecond}
	h := newHarness(t, client)

	stop := startDaemon(t, h, "--qstat", "-d", "-c", t.TempDir(), "-i", "10")

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&client.maxInFlight) >= 2
	}, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return strings.Contains(h.stdout.String(), sampleStats().String())
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, ExitOK, stop())
	assert.Zero(t, atomic.LoadInt32(&client.inFlight))
}

func TestDaemonPipelineFailure(t *testing.T) {
	client := &fakeClient{}
	h := newHarness(t, client)
	h.env.NewPipeline = func(*config.Root, io.Writer, logging.Logger) (*report.Pipeline, error) {
		return nil, errors.New("metrics listener on :1: address in use")
	}

	code := h.run("--qstat", "-d", "-c", t.TempDir())

	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, h.stderr.String(), "address in use")
	assert.Zero(t, client.statsCalls)
	assert.Equal(t, int32(1), client.closed)
}

func TestStatsLoopRecordsFailures(t *testing.T) {
	client := &fakeClient{statsErr: errors.New("nope")}
	fanout := report.Fanout{report.NewPrinter(io.Discard)}
	var failures int32
	sink := &recordingFanout{Fanout: fanout, failures: &failures}

	loop := &statsLoop{
		client:   client,
		sink:     sink,
		interval: time.Millisecond,
		stdout:   io.Discard,
		stderr:   io.Discard,
		logger:   logging.Discard(),
	}
	loop.tick(context.Background())

	assert.Equal(t, int32(1), atomic.LoadInt32(&failures))
}

type recordingFanout struct {
	report.Fanout
	failures *int32
}

func (r *recordingFanout) RecordFailure(error) {
	atomic.AddInt32(r.failures, 1)
}

func TestSeconds(t *testing.T) {
	assert.Equal(t, "1", seconds(time.Second))
	assert.Equal(t, "0.5", seconds(500*time.Millisecond))
	assert.Equal(t, "1.5", seconds(1500*time.Millisecond))
	assert.Equal(t, "0.001", seconds(time.Millisecond))
	assert.Equal(t, "60", seconds(time.Minute))
}
