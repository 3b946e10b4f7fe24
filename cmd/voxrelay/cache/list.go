package cachecmder

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/voxrelay/pkg/cliui"
	"github.com/papercomputeco/voxrelay/pkg/logger"
	"github.com/papercomputeco/voxrelay/pkg/storage"
	"github.com/papercomputeco/voxrelay/pkg/utils"
)

const listLongDesc string = `List asset caches.

Without arguments, lists every named cache with its entry count. With a cache
name, lists the URLs stored in that cache.

Examples:
  voxrelay cache list
  voxrelay cache list voice-agent-v1`

const listShortDesc string = "List asset caches or the entries of one cache"

const maxURLWidth = 72

type listCommander struct {
	opts  cacheOptions
	debug bool
}

func newListCmd() *cobra.Command {
	cmder := &listCommander{}

	cmd := &cobra.Command{
		Use:   "list [name]",
		Short: listShortDesc,
		Long:  listLongDesc,
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

			if len(args) == 1 {
				return cmder.runKeys(cmd.Context(), cmd.OutOrStdout(), args[0])
			}
			return cmder.runCaches(cmd.Context(), cmd.OutOrStdout())
		},
	}

	cmder.opts.addStorageFlags(cmd)

	return cmd
}

func (c *listCommander) runCaches(ctx context.Context, w io.Writer) error {
	log := logger.NewLogger(c.debug)
	defer func() { _ = log.Sync() }()

	driver, err := c.opts.openStore(ctx, log)
	if err != nil {
		return err
	}
	defer driver.Close()

	names, err := driver.Caches(ctx)
	if err != nil {
		return fmt.Errorf("listing caches: %w", err)
	}

	if len(names) == 0 {
		fmt.Fprintf(w, "  %s No asset caches. Run \"voxrelay cache install\" to create one.\n", cliui.DimStyle.Render("●"))
		return nil
	}

	fmt.Fprintf(w, "\n  %s\n\n", cliui.HeaderStyle.Render("Asset caches"))
	for _, name := range names {
		keys, err := driver.Keys(ctx, name)
		if err != nil {
			return fmt.Errorf("listing cache %s: %w", name, err)
		}

		marker := " "
		if name == c.opts.name {
			marker = cliui.SuccessMark
		}
		fmt.Fprintf(w, "  %s %s %s\n",
			marker,
			cliui.NameStyle.Render(name),
			cliui.DimStyle.Render(fmt.Sprintf("(%d entries)", len(keys))),
		)
	}
	fmt.Fprintln(w)
	return nil
}

func (c *listCommander) runKeys(ctx context.Context, w io.Writer, name string) error {
	log := logger.NewLogger(c.debug)
	defer func() { _ = log.Sync() }()

	driver, err := c.opts.openStore(ctx, log)
	if err != nil {
		return err
	}
	defer driver.Close()

	keys, err := driver.Keys(ctx, name)
	if err != nil {
		var nf storage.NotFoundError
		if errors.As(err, &nf) {
			return fmt.Errorf("no asset cache named %q", name)
		}
		return fmt.Errorf("listing cache %s: %w", name, err)
	}

	fmt.Fprintf(w, "\n  %s %s\n\n", cliui.KeyStyle.Render("Cache:"), cliui.NameStyle.Render(name))
	for i, key := range keys {
		fmt.Fprintf(w, "  %s %s\n",
			cliui.DimStyle.Render(fmt.Sprintf("%d.", i+1)),
			cliui.ValueStyle.Render(utils.Truncate(key, maxURLWidth)),
		)
	}
	fmt.Fprintln(w)
	return nil
}
