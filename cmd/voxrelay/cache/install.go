package cachecmder

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/voxrelay/pkg/assetcache"
	"github.com/papercomputeco/voxrelay/pkg/cliui"
	"github.com/papercomputeco/voxrelay/pkg/config"
	"github.com/papercomputeco/voxrelay/pkg/logger"
)

const installLongDesc string = `Install the asset cache.

Fetches every manifest entry from the origin and stores them all under the
cache name, or none of them if any fetch fails. Installing again replaces the
stored entries with fresh copies.

Examples:
  voxrelay cache install
  voxrelay cache install --origin http://localhost:3000 --name voice-agent-v2
  voxrelay cache install --manifest /,/manifest.json`

const installShortDesc string = "Pre-cache the voice client's assets"

type installCommander struct {
	opts     cacheOptions
	manifest []string
	debug    bool
}

func newInstallCmd() *cobra.Command {
	cmder := &installCommander{}

	cmd := &cobra.Command{
		Use:   "install",
		Short: installShortDesc,
		Long:  installLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.opts.load(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = debugFlag(cmd)
			if err != nil {
				return err
			}
			return cmder.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	config.AddStringFlag(cmd, config.CacheFlags, config.FlagCacheName, &cmder.opts.name)
	config.AddStringFlag(cmd, config.CacheFlags, config.FlagCacheOrigin, &cmder.opts.origin)
	cmder.opts.addStorageFlags(cmd)
	cmd.Flags().StringSliceVar(&cmder.manifest, "manifest", assetcache.DefaultManifest(), "Paths or URLs to pre-cache")

	return cmd
}

func (c *installCommander) run(ctx context.Context, w io.Writer) error {
	log := logger.NewLogger(c.debug)
	defer func() { _ = log.Sync() }()

	driver, err := c.opts.openStore(ctx, log)
	if err != nil {
		return err
	}
	defer driver.Close()

	worker, err := assetcache.New(assetcache.Config{
		CacheName: c.opts.name,
		Manifest:  c.manifest,
		Origin:    c.opts.origin,
		Driver:    driver,
		Logger:    log,
	})
	if err != nil {
		return fmt.Errorf("creating asset cache worker: %w", err)
	}

	fmt.Fprintln(w)
	msg := fmt.Sprintf("Installing %s from %s", cliui.NameStyle.Render(c.opts.name), c.opts.origin)
	if err := cliui.Step(w, msg, func() error {
		return assetcache.Register(ctx, worker, log)
	}); err != nil {
		return err
	}

	keys, err := driver.Keys(ctx, c.opts.name)
	if err != nil {
		return fmt.Errorf("listing cached entries: %w", err)
	}

	fmt.Fprintf(w, "\n%s\n", cliui.StatusLine("Cache:", c.opts.name))
	fmt.Fprintf(w, "%s\n", cliui.StatusLine("Entries:", strconv.Itoa(len(keys))))
	fmt.Fprintf(w, "%s\n\n", cliui.StatusLine("State:", worker.State().String()))
	return nil
}
