package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"fleetdeck/internal/dashboard"
	"fleetdeck/internal/logging"
	"fleetdeck/internal/reconcile"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reconciliation loop behind the local HTTP dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(false)
			if err != nil {
				return err
			}
			if bind == "" {
				bind = cfg.Dashboard.Bind
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			loop := reconcile.New(client,
				reconcile.WithInterval(cfg.PollInterval()),
				reconcile.WithRequestTimeout(cfg.RequestTimeout()),
				reconcile.WithLogger(logger),
			)
			srv, err := dashboard.New(dashboard.Options{
				Bind:     bind,
				Token:    cfg.Dashboard.Token,
				LockPath: cfg.LockPath(),
				LogTail:  cfg.Backend.LogTail,
				Logger:   logger,
			}, loop, client, client)
			if err != nil {
				return err
			}

			if err := srv.Start(signalCtx); err != nil {
				return err
			}
			defer srv.Stop()
			if err := loop.Start(signalCtx); err != nil {
				return err
			}
			defer loop.Stop()

			fmt.Fprintf(cmd.OutOrStdout(), "Dashboard listening on http://%s (backend %s)\n", srv.Addr(), client.BaseURL())
			<-signalCtx.Done()
			logger.Info("dashboard shutting down", logging.String(logging.FieldEventType, "dashboard_stopped"))
			return nil
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (defaults to dashboard.bind)")
	return cmd
}
