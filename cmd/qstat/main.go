package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/busybox42/qstat/internal/cli"
)

// Set at build time with -ldflags "-X main.version=..."
var version = "dev"

func newRootCmd(exitCode *int) *cobra.Command {
	return &cobra.Command{
		Use:   "qstat [options]",
		Short: "Inspect and report on the elemta outbound queue",
		Long: `qstat lists the outbound queue, prints aggregate queue statistics once or
on a fixed interval, and shows documentation pages.`,
		// --help takes an optional topic, so the option table is parsed by the cli package.
		DisableFlagParsing: true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		Args:               cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			*exitCode = cli.Run(cmd.Context(), args, cli.Env{Version: version})
			return nil
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	exitCode := cli.ExitOK
	if err := newRootCmd(&exitCode).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = cli.ExitFailure
	}

	stop()
	os.Exit(exitCode)
}
