package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"fleetdeck/internal/backend"
	"fleetdeck/internal/control"
	"fleetdeck/internal/fleet"
	"fleetdeck/internal/reconcile"
)

func newControlCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newWorkerCommand(ctx, control.CommandPause, "Pause a downloading worker"),
		newWorkerCommand(ctx, control.CommandResume, "Resume a paused worker"),
		newWorkerCommand(ctx, control.CommandStop, "Stop and remove a worker"),
	}
}

func newWorkerCommand(ctx *commandContext, command control.Command, short string) *cobra.Command {
	var assumeYes bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   command.String() + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
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

			view, known := resolveWorker(cmd.Context(), client, cfg.RequestTimeout(), args[0])
			if known {
				if err := control.CheckPrecondition(view, command); err != nil {
					return err
				}
			}

			var confirmer control.Confirmer = control.NewPromptConfirmer(cmd.InOrStdin(), cmd.OutOrStdout())
			if assumeYes {
				confirmer = control.AlwaysConfirm
			}
			refresher := &collectRefresher{ctx: cmd.Context(), client: client, timeout: cfg.RequestTimeout()}
			dispatcher := control.NewDispatcher(client, refresher, confirmer, logger)

			outcome, err := dispatcher.Send(cmd.Context(), view.ID, command)
			out := cmd.OutOrStdout()
			switch {
			case errors.Is(err, control.ErrNotConfirmed):
				fmt.Fprintln(out, "Cancelled; nothing was sent")
				return nil
			case err != nil:
				return wrapBackendError(err, client.BaseURL())
			}

			if asJSON {
				return writeJSON(cmd, outcome)
			}
			fmt.Fprintf(out, "%s %s (request %s, %s)\n",
				pastTense(command), workerLabel(view), outcome.RequestID, outcome.Elapsed.Round(time.Millisecond))
			if after, ok := refresher.snapshot.Worker(view.ID); ok {
				fmt.Fprintf(out, "Now %s\n", stateLabel(after.Lifecycle))
			}
			return nil
		},
	}

	if command.Destructive() {
		cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the confirmation prompt")
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the command outcome as JSON")
	return cmd
}

// collectRefresher re-reads the fleet once after a command so the CLI can
// report the post-command state.
type collectRefresher struct {
	ctx      context.Context
	client   *backend.Client
	timeout  time.Duration
	snapshot fleet.Snapshot
}

func (r *collectRefresher) Refresh() {
	r.snapshot, _ = reconcile.Collect(r.ctx, r.client, r.timeout)
}

func pastTense(command control.Command) string {
	switch command {
	case control.CommandPause:
		return "Paused"
	case control.CommandResume:
		return "Resumed"
	case control.CommandStop:
		return "Stopped"
	default:
		return stateTitle.String(command.String())
	}
}

func workerLabel(view fleet.WorkerView) string {
	if view.DisplayName == "" || view.DisplayName == view.ID {
		return view.ID
	}
	return fmt.Sprintf("%s (%s)", view.DisplayName, shortID(view.ID))
}
