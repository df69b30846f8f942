// Package cli implements the qstat command line: option parsing, command
// selection, the stats daemon loop and the help pager.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/busybox42/qstat/internal/config"
	"github.com/busybox42/qstat/internal/logging"
	"github.com/busybox42/qstat/internal/queue"
	"github.com/busybox42/qstat/internal/report"
)

// ClientFactory opens the queue client for a configuration root.
type ClientFactory func(ctx context.Context, root *config.Root, logger logging.Logger) (queue.Client, error)

// PipelineFactory builds the sinks the stats daemon publishes to.
type PipelineFactory func(root *config.Root, out io.Writer, logger logging.Logger) (*report.Pipeline, error)

// Env holds the process surroundings a run depends on. Zero fields get
// production defaults.
type Env struct {
	Stdout io.Writer
	Stderr io.Writer
	Getenv func(string) string

	Pager       PagerFunc
	OpenClient  ClientFactory
	NewPipeline PipelineFactory

	// DocsRoot is the built-in documentation directory.
	DocsRoot string
	Version  string
}

func (e Env) withDefaults() Env {
	if e.Stdout == nil {
		e.Stdout = os.Stdout
	}
	if e.Stderr == nil {
		e.Stderr = os.Stderr
	}
	if e.Getenv == nil {
		e.Getenv = os.Getenv
	}
	if e.Pager == nil {
		e.Pager = runPager
	}
	if e.OpenClient == nil {
		e.OpenClient = openEngine
	}
	if e.NewPipeline == nil {
		e.NewPipeline = report.NewPipeline
	}
	if e.DocsRoot == "" {
		e.DocsRoot = builtinDocsRoot(e.Getenv)
	}
	if e.Version == "" {
		e.Version = "dev"
	}
	return e
}

func openEngine(ctx context.Context, root *config.Root, logger logging.Logger) (queue.Client, error) {
	return queue.Open(ctx, root, logger)
}

type dispatcher struct {
	env  Env
	opts Options
}

// Run executes one invocation and returns the process exit code. Daemon
// mode returns only after ctx is cancelled.
func Run(ctx context.Context, args []string, env Env) int {
	env = env.withDefaults()

	opts, err := ParseOptions(args)
	if err != nil {
		return usageError(env, err)
	}

	d := &dispatcher{env: env, opts: opts}
	return d.dispatch(ctx)
}

func (d *dispatcher) dispatch(ctx context.Context) int {
	if d.opts.Version {
		fmt.Fprintln(d.env.Stdout, VersionLine(d.env.Version))
	}

	var err error
	switch {
	case d.opts.HelpSet:
		err = d.help(ctx)
	case d.opts.QList:
		err = d.qlist(ctx)
	case d.opts.QStat && d.opts.Daemon:
		err = d.daemon(ctx)
	case d.opts.QStat:
		err = d.qstat(ctx)
	case d.opts.QEmpty:
		err = d.qempty()
	case d.opts.Version:
		return ExitOK
	default:
		return usageError(d.env, ErrUsage)
	}

	if err != nil {
		writeError(d.env.Stderr, err)
	}
	return exitCode(err)
}

func usageError(env Env, err error) int {
	writeError(env.Stderr, err)
	fmt.Fprintln(env.Stderr)
	fmt.Fprintln(env.Stderr, Usage)
	return ExitFailure
}

// session is what a queue command needs once --configs is known.
type session struct {
	root   *config.Root
	logger logging.Logger
	client queue.Client
}

// open builds the configuration root and the queue client. It is the only
// place the root is constructed, and runs before any collaborator call.
func (d *dispatcher) open(ctx context.Context, command string) (*session, error) {
	if d.opts.ConfigPath == "" {
		return nil, fmt.Errorf("%s %w", command, ErrConfigMissing)
	}

	root, err := config.Load(d.opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	logger, err := d.logger(root)
	if err != nil {
		return nil, err
	}

	client, err := d.env.OpenClient(ctx, root, logger)
	if err != nil {
		return nil, fmt.Errorf("open queue: %w", err)
	}

	return &session{root: root, logger: logger, client: client}, nil
}

// logger returns the discard sink unless --verbose was given.
func (d *dispatcher) logger(root *config.Root) (logging.Logger, error) {
	if !d.opts.Verbose {
		return logging.Discard(), nil
	}

	level, err := logging.ParseLevel(root.Config.Logging.Level)
	if err != nil {
		return nil, err
	}

	return logging.Factory(logging.Config{
		Type:      root.Config.Logging.Type,
		Name:      Name,
		Level:     level,
		Formatter: root.Config.Logging.Format,
		Output:    d.env.Stderr,
	})
}

func (s *session) close() {
	if err := s.client.Close(); err != nil {
		s.logger.Warn("failed to close queue client", logging.F("error", err))
	}
	_ = s.logger.Close()
}

func (d *dispatcher) qlist(ctx context.Context) error {
	s, err := d.open(ctx, "qlist")
	if err != nil {
		return err
	}
	defer s.close()

	messages, err := s.client.Enumerate(ctx)
	if err != nil {
		return fmt.Errorf("list queue: %w", err)
	}
	return queue.WriteList(d.env.Stdout, messages)
}

func (d *dispatcher) qstat(ctx context.Context) error {
	s, err := d.open(ctx, "qstat")
	if err != nil {
		return err
	}
	defer s.close()

	stats, err := s.client.Stats(ctx)
	if err != nil {
		return fmt.Errorf("queue stats: %w", err)
	}
	_, err = fmt.Fprintln(d.env.Stdout, stats.String())
	return err
}

func (d *dispatcher) qempty() error {
	if d.opts.ConfigPath == "" {
		return fmt.Errorf("qempty %w", ErrConfigMissing)
	}
	return fmt.Errorf("qempty is %w", queue.ErrUnimplemented)
}

func (d *dispatcher) daemon(ctx context.Context) error {
	s, err := d.open(ctx, "qstat")
	if err != nil {
		return err
	}
	defer s.close()

	pipeline, err := d.env.NewPipeline(s.root, d.env.Stdout, s.logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := pipeline.Close(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("failed to stop publishers", logging.F("error", err))
		}
	}()

	loop := &statsLoop{
		client:   s.client,
		sink:     pipeline,
		interval: d.opts.StatsInterval(),
		stdout:   d.env.Stdout,
		stderr:   d.env.Stderr,
		logger:   s.logger,
	}
	return loop.run(ctx)
}
