package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"scribe/internal/daemon"
	"scribe/internal/logging"
	"scribe/internal/preflight"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var once bool
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the transcription worker",
		Long: "Run the transcription worker in the foreground. It polls the queue for\n" +
			"pending jobs until interrupted. With --once it processes the jobs that are\n" +
			"pending now and exits.",
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			rt, err := ctx.openWorker(signalCtx)
			if err != nil {
				return err
			}
			defer rt.Close()

			if !skipPreflight {
				results := preflight.RunAll(signalCtx, rt.cfg)
				if err := preflight.FirstFailure(results, preflight.CheckSystemDeps(signalCtx, rt.cfg)); err != nil {
					return fmt.Errorf("%w (run scribe doctor for details)", err)
				}
			}

			if once {
				return drainOnce(signalCtx, cmd, rt)
			}
			return runDaemon(signalCtx, rt)
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "Process pending jobs and exit")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Start without checking binaries, directories and the provider")
	return cmd
}

func drainOnce(ctx context.Context, cmd *cobra.Command, rt *workerRuntime) error {
	if err := rt.manager.Drain(ctx); err != nil {
		return err
	}
	stats, err := rt.store.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderStatsTable(stats))
	return nil
}

func runDaemon(ctx context.Context, rt *workerRuntime) error {
	d, err := daemon.New(rt.cfg, rt.store, rt.logger, rt.manager)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	rt.logger.Info("scribe worker shutting down", logging.Event("shutdown"))
	return nil
}
