package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"fleetdeck/internal/backend"
	"fleetdeck/internal/fleet"
	"fleetdeck/internal/reconcile"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show one reconciliation of the fleet",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}

			snap, collectErr := reconcile.Collect(cmd.Context(), client, cfg.RequestTimeout())
			snap.Sequence = 1

			if asJSON {
				if err := writeJSON(cmd, snap); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				fmt.Fprint(out, renderFleet(snap, shouldColorize(out)))
			}
			return wrapBackendError(collectErr, client.BaseURL())
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the snapshot as JSON")
	return cmd
}

// resolveWorker runs one collection and looks ref up by id, name, or unique
// id prefix. An unresolved ref is returned unchanged so the backend can
// answer for it.
func resolveWorker(ctx context.Context, client *backend.Client, timeout time.Duration, ref string) (fleet.WorkerView, bool) {
	snap, err := reconcile.Collect(ctx, client, timeout)
	if err != nil {
		return fleet.WorkerView{ID: ref}, false
	}
	view, ok := snap.Worker(ref)
	if !ok {
		return fleet.WorkerView{ID: ref}, false
	}
	return view, true
}
