package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

const maxLogTail = 10000

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var tail int

	cmd := &cobra.Command{
		Use:   "logs <id>",
		Short: "Print a worker's recent output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("tail") {
				tail = cfg.Backend.LogTail
			}
			if tail <= 0 || tail > maxLogTail {
				return fmt.Errorf("--tail must be between 1 and %d", maxLogTail)
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}

			view, _ := resolveWorker(cmd.Context(), client, cfg.RequestTimeout(), args[0])
			text, err := client.Logs(cmd.Context(), view.ID, tail)
			if err != nil {
				return wrapBackendError(fmt.Errorf("logs for %s: %w", view.ID, err), client.BaseURL())
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, text)
			if text != "" && !strings.HasSuffix(text, "\n") {
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&tail, "tail", "n", 0, "Number of lines to show (defaults to backend.log_tail)")
	return cmd
}
