package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"fleetdeck/internal/reconcile"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Live fleet dashboard in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(true)
			if err != nil {
				return err
			}
			if interval <= 0 {
				interval = cfg.PollInterval()
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			loop := reconcile.New(client,
				reconcile.WithInterval(interval),
				reconcile.WithRequestTimeout(cfg.RequestTimeout()),
				reconcile.WithLogger(logger),
			)
			sub := loop.Subscribe()
			defer sub.Close()
			if err := loop.Start(signalCtx); err != nil {
				return err
			}
			defer loop.Stop()

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for {
				select {
				case <-signalCtx.Done():
					return nil
				case snap, ok := <-sub.C():
					if !ok {
						return nil
					}
					if colorize {
						fmt.Fprint(out, ansiClear)
					}
					fmt.Fprint(out, renderFleet(snap, colorize))
					fmt.Fprintf(out, "%sbackend %s, refresh every %s, Ctrl+C to exit\n\n",
						statusIndent, client.BaseURL(), loop.Interval())
				}
			}
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "Polling interval (defaults to reconcile.poll_interval)")
	return cmd
}
