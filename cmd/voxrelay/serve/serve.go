// Package servecmder provides the serve command with subcommands for running services.
package servecmder

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
	apicmder "github.com/papercomputeco/voxrelay/cmd/voxrelay/serve/api"
	relaycmder "github.com/papercomputeco/voxrelay/cmd/voxrelay/serve/relay"
	"github.com/papercomputeco/voxrelay/pkg/config"
	"github.com/papercomputeco/voxrelay/pkg/logger"
	"github.com/papercomputeco/voxrelay/pkg/metrics"
)

type ServeCommander struct {
	relay       relaycmder.Options
	apiListen   string
	sqlitePath  string
	postgresDSN string
	configDir   string
	debug       bool

	logger *zap.Logger
}

var serveFlags = []string{
	config.FlagRelayListen,
	config.FlagAPIListen,
	config.FlagUpstream,
	config.FlagProvider,
	config.FlagModel,
	config.FlagStaticDir,
	config.FlagSQLite,
	config.FlagPostgres,
	config.FlagEventsProvider,
	config.FlagEventsBrokers,
	config.FlagEventsTopic,
}

const serveLongDesc string = `Run voxrelay services.

Use subcommands to run individual services or all services together:
  voxrelay serve          Run both the chat relay and the API server together
  voxrelay serve api      Run just the API server
  voxrelay serve relay    Run just the chat relay`

const serveShortDesc string = "Run voxrelay services"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	var flagValues struct {
		relayListen, upstream, provider, model, staticDir string
		eventsProvider, eventsBrokers, eventsTopic        string
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.ServeFlags, serveFlags)
			cmder.relay = relaycmder.OptionsFromViper(v)
			cmder.apiListen = v.GetString("api.listen")
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

	config.AddStringFlag(cmd, config.ServeFlags, config.FlagRelayListen, &flagValues.relayListen)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagAPIListen, &cmder.apiListen)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagUpstream, &flagValues.upstream)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagProvider, &flagValues.provider)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagModel, &flagValues.model)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagStaticDir, &flagValues.staticDir)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagPostgres, &cmder.postgresDSN)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagEventsProvider, &flagValues.eventsProvider)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagEventsBrokers, &flagValues.eventsBrokers)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagEventsTopic, &flagValues.eventsTopic)

	cmd.AddCommand(apicmder.NewAPICmd())
	cmd.AddCommand(relaycmder.NewRelayCmd())

	return cmd
}

func (c *ServeCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	relaycmder.LoadDotEnv(c.logger)

	// One registry so both servers expose every collector on /metrics.
	m := metrics.New()

	driver, err := cachestore.Open(context.Background(), cachestore.Options{
		SQLitePath:  c.sqlitePath,
		PostgresDSN: c.postgresDSN,
		ConfigDir:   c.configDir,
	}, c.logger)
	if err != nil {
		return err
	}
	defer driver.Close()

	r, publisher, err := relaycmder.NewRelay(c.relay, m, c.logger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	apiServer := api.NewServer(api.Config{
		ListenAddr: c.apiListen,
		Metrics:    m,
	}, driver, c.logger)

	// Channel to capture errors from goroutines
	errChan := make(chan error, 2)

	go func() {
		if err := r.Run(); err != nil {
			errChan <- fmt.Errorf("relay error: %w", err)
		}
	}()

	go func() {
		if err := apiServer.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case runErr = <-errChan:
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	}

	if err := apiServer.Shutdown(); err != nil {
		c.logger.Warn("API server shutdown failed", zap.Error(err))
	}
	if err := r.Close(); err != nil {
		c.logger.Warn("relay shutdown failed", zap.Error(err))
	}
	return runErr
}
