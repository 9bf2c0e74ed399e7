package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fleetdeck/internal/creation"
)

func newCreateCommand(ctx *commandContext) *cobra.Command {
	var req creation.Request
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Upload a job descriptor and start a new worker",
		Example: "  fleetdeck create --torrent ubuntu.torrent --folder /srv/downloads\n" +
			"  fleetdeck create --torrent debian.torrent --folder /srv/dl --mode overlay --bootstrap 10.0.0.5:6001",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			result, err := req.Submit(cmd.Context(), client, nil)
			if err != nil {
				return wrapBackendError(err, client.BaseURL())
			}
			if asJSON {
				return writeJSON(cmd, result)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created worker %s", result.ContainerName)
			if result.ContainerID != "" {
				fmt.Fprintf(out, " (%s)", shortID(result.ContainerID))
			}
			fmt.Fprintf(out, " from %s\n", result.Descriptor)
			if result.Message != "" {
				fmt.Fprintln(out, result.Message)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&req.DescriptorPath, "torrent", "", "Path to the .torrent job descriptor")
	flags.StringVar(&req.ContainerName, "name", "", "Worker container name (default worker-<random>)")
	flags.StringVar(&req.NetworkName, "network", creation.DefaultNetwork, "Container network")
	flags.StringVar(&req.FolderPath, "folder", "", "Host folder the worker downloads into")
	flags.StringVar(&req.ImageName, "image", creation.DefaultImage, "Worker container image")
	flags.StringVar(&req.DiscoveryMode, "mode", creation.ModeTracker, "Peer discovery mode: tracker or overlay")
	flags.StringVar(&req.OverlayPort, "port", "", "Overlay listen port (overlay mode, default "+creation.DefaultOverlayPort+")")
	flags.StringVar(&req.Bootstrap, "bootstrap", "", "Comma separated host:port overlay peers (overlay mode)")
	flags.BoolVar(&asJSON, "json", false, "Emit the result as JSON")
	_ = cmd.MarkFlagRequired("torrent")
	return cmd
}
