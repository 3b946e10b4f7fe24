package cachecmder

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/voxrelay/pkg/cliui"
	"github.com/papercomputeco/voxrelay/pkg/config"
	"github.com/papercomputeco/voxrelay/pkg/logger"
)

const clearLongDesc string = `Delete an asset cache and all its entries.

Deletes the named cache, or the configured cache name when no argument is
given. Bumping the cache name and deleting the old one is how stale assets
are retired.

Examples:
  voxrelay cache clear
  voxrelay cache clear voice-agent-v1`

const clearShortDesc string = "Delete an asset cache"

type clearCommander struct {
	opts  cacheOptions
	debug bool
}

func newClearCmd() *cobra.Command {
	cmder := &clearCommander{}

	cmd := &cobra.Command{
		Use:   "clear [name]",
		Short: clearShortDesc,
		Long:  clearLongDesc,
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.opts.load(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = debugFlag(cmd)
			if err != nil {
				return err
			}

			name := cmder.opts.name
			if len(args) == 1 {
				name = args[0]
			}
			return cmder.run(cmd.Context(), cmd.OutOrStdout(), name)
		},
	}

	config.AddStringFlag(cmd, config.CacheFlags, config.FlagCacheName, &cmder.opts.name)
	cmder.opts.addStorageFlags(cmd)

	return cmd
}

func (c *clearCommander) run(ctx context.Context, w io.Writer, name string) error {
	log := logger.NewLogger(c.debug)
	defer func() { _ = log.Sync() }()

	driver, err := c.opts.openStore(ctx, log)
	if err != nil {
		return err
	}
	defer driver.Close()

	deleted, err := driver.Delete(ctx, name)
	if err != nil {
		return fmt.Errorf("deleting cache %s: %w", name, err)
	}

	if !deleted {
		fmt.Fprintf(w, "  %s No asset cache named %s\n", cliui.DimStyle.Render("●"), cliui.NameStyle.Render(name))
		return nil
	}

	fmt.Fprintf(w, "  %s Deleted %s\n", cliui.SuccessMark, cliui.NameStyle.Render(name))
	return nil
}
