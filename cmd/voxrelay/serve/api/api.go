// Package apicmder provides the cache inspection API server command.
package apicmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/voxrelay/api"
	"github.com/papercomputeco/voxrelay/cmd/voxrelay/cachestore"
	"github.com/papercomputeco/voxrelay/pkg/config"
	"github.com/papercomputeco/voxrelay/pkg/logger"
	"github.com/papercomputeco/voxrelay/pkg/metrics"
)

type apiCommander struct {
	listen      string
	sqlitePath  string
	postgresDSN string
	configDir   string
	debug       bool

	logger *zap.Logger
}

var apiFlags = []string{
	config.FlagAPIListenStandalone,
	config.FlagSQLite,
	config.FlagPostgres,
}

const apiLongDesc string = `Run the voxrelay API server for inspecting and managing the named asset caches.

The server reads the same cache store that "voxrelay cache" and "voxrelay talk"
write to: PostgreSQL when --postgres is set, otherwise the SQLite database at
--sqlite (default: assets.db in the .voxrelay/ directory).`

const apiShortDesc string = "Run the voxrelay API server"

func NewAPICmd() *cobra.Command {
	cmder := &apiCommander{}

	cmd := &cobra.Command{
		Use:   "api",
		Short: apiShortDesc,
		Long:  apiLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.ServeFlags, apiFlags)
			cmder.listen = v.GetString("api.listen")
			cmder.sqlitePath = v.GetString("storage.sqlite_path")
			cmder.postgresDSN = v.GetString("storage.postgres_dsn")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, config.ServeFlags, config.FlagAPIListenStandalone, &cmder.listen)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagPostgres, &cmder.postgresDSN)

	return cmd
}

func (c *apiCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	driver, err := cachestore.Open(context.Background(), cachestore.Options{
		SQLitePath:  c.sqlitePath,
		PostgresDSN: c.postgresDSN,
		ConfigDir:   c.configDir,
	}, c.logger)
	if err != nil {
		return err
	}
	defer driver.Close()

	server := api.NewServer(api.Config{
		ListenAddr: c.listen,
		Metrics:    metrics.New(),
	}, driver, c.logger)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Run()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		c.logger.Info("received signal, shutting down")
		return server.Shutdown()
	}
}
