package cachecmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/voxrelay/pkg/assetcache"
	"github.com/papercomputeco/voxrelay/pkg/config"
	"github.com/papercomputeco/voxrelay/pkg/logger"
	"github.com/papercomputeco/voxrelay/pkg/metrics"
)

const serveLongDesc string = `Serve the origin through the asset cache.

Registers an asset cache worker for the origin and answers every request
through it: cached assets come from the store, everything else is fetched from
the origin. Responses carry an X-Voxrelay-Cache header of HIT or MISS.

If registration fails the gateway still starts, passing every request through
to the origin until the next successful install.

Examples:
  voxrelay cache serve
  voxrelay cache serve --origin http://localhost:3000 --listen :3002`

const serveShortDesc string = "Serve the origin through the asset cache"

type serveCommander struct {
	opts  cacheOptions
	debug bool

	logger *zap.Logger
}

func newServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
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
			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, config.CacheFlags, config.FlagCacheName, &cmder.opts.name)
	config.AddStringFlag(cmd, config.CacheFlags, config.FlagCacheOrigin, &cmder.opts.origin)
	config.AddStringFlag(cmd, config.CacheFlags, config.FlagCacheListenStandalone, &cmder.opts.listen)
	cmder.opts.addStorageFlags(cmd)

	return cmd
}

func (c *serveCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	driver, err := c.opts.openStore(ctx, c.logger)
	if err != nil {
		return err
	}
	defer driver.Close()

	worker, err := assetcache.New(assetcache.Config{
		CacheName: c.opts.name,
		Origin:    c.opts.origin,
		Driver:    driver,
		Logger:    c.logger,
		Metrics:   metrics.New(),
	})
	if err != nil {
		return fmt.Errorf("creating asset cache worker: %w", err)
	}

	// Registration failure leaves the worker uncontrolled; requests pass through.
	_ = assetcache.Register(ctx, worker, c.logger)

	app := assetcache.NewGatewayApp(worker, c.logger)

	errChan := make(chan error, 1)
	go func() {
		c.logger.Info("starting asset cache gateway",
			zap.String("listen", c.opts.listen),
			zap.String("origin", c.opts.origin),
			zap.String("cache", c.opts.name),
		)
		errChan <- app.Listen(c.opts.listen)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		c.logger.Info("received signal, shutting down")
		return app.Shutdown()
	}
}
