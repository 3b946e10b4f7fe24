// Package voxrelaycmder is the root voxrelay command.
package voxrelaycmder

import (
	"github.com/spf13/cobra"

	versioncmder "github.com/papercomputeco/voxrelay/cmd/version"
	cachecmder "github.com/papercomputeco/voxrelay/cmd/voxrelay/cache"
	configcmder "github.com/papercomputeco/voxrelay/cmd/voxrelay/config"
	servecmder "github.com/papercomputeco/voxrelay/cmd/voxrelay/serve"
	talkcmder "github.com/papercomputeco/voxrelay/cmd/voxrelay/talk"
)

const voxrelayLongDesc string = `Voxrelay is a voice chat relay for hosted generative language models.

Run services using:
  voxrelay serve          Run the chat relay and the API server together
  voxrelay serve relay    Run the chat relay
  voxrelay serve api      Run the cache inspection API server

Talk to a running relay:
  voxrelay talk

Manage the offline asset cache:
  voxrelay cache install|list|clear|serve`

const voxrelayShortDesc string = "Voxrelay - voice chat relay"

func NewVoxrelayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "voxrelay",
		Short:        voxrelayShortDesc,
		Long:         voxrelayLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .voxrelay/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(talkcmder.NewTalkCmd())
	cmd.AddCommand(cachecmder.NewCacheCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
