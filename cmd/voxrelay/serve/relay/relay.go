// Package relaycmder provides the chat relay server command.
package relaycmder

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/papercomputeco/voxrelay/pkg/config"
	"github.com/papercomputeco/voxrelay/pkg/eventstream"
	eventstreamutils "github.com/papercomputeco/voxrelay/pkg/eventstream/utils"
	"github.com/papercomputeco/voxrelay/pkg/logger"
	"github.com/papercomputeco/voxrelay/pkg/metrics"
	"github.com/papercomputeco/voxrelay/relay"
)

// Options are the resolved relay settings.
type Options struct {
	Listen    string
	Provider  string
	Upstream  string
	Model     string
	StaticDir string

	EventsProvider string
	EventsBrokers  string
	EventsTopic    string
}

// OptionsFromViper reads relay settings after flags have been bound.
func OptionsFromViper(v *viper.Viper) Options {
	return Options{
		Listen:         v.GetString("relay.listen"),
		Provider:       v.GetString("relay.provider"),
		Upstream:       v.GetString("relay.upstream"),
		Model:          v.GetString("relay.model"),
		StaticDir:      v.GetString("relay.static_dir"),
		EventsProvider: v.GetString("events.provider"),
		EventsBrokers:  v.GetString("events.brokers"),
		EventsTopic:    v.GetString("events.topic"),
	}
}

// LoadDotEnv loads GEMINI_API_KEY and friends from ./.env when present.
// Variables already set in the environment win.
func LoadDotEnv(logger *zap.Logger) {
	err := godotenv.Load()
	switch {
	case err == nil:
		logger.Debug("loaded environment from .env")
	case errors.Is(err, fs.ErrNotExist):
	default:
		logger.Warn("could not load .env", zap.Error(err))
	}

	if os.Getenv(relay.APIKeyEnv) == "" {
		logger.Warn("upstream API key not set; chat requests will fail until it is",
			zap.String("env", relay.APIKeyEnv))
	}
}

// NewRelay builds the event publisher and the relay server.
// The caller closes the relay first, then the publisher.
func NewRelay(opts Options, m *metrics.Metrics, logger *zap.Logger) (*relay.Relay, eventstream.Publisher, error) {
	publisher, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
		ProviderType: opts.EventsProvider,
		Brokers:      opts.EventsBrokers,
		Topic:        opts.EventsTopic,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating event publisher: %w", err)
	}

	r, err := relay.New(relay.Config{
		ListenAddr:  opts.Listen,
		Provider:    opts.Provider,
		UpstreamURL: opts.Upstream,
		Model:       opts.Model,
		StaticDir:   opts.StaticDir,
		Publisher:   publisher,
		Metrics:     m,
	}, logger)
	if err != nil {
		_ = publisher.Close()
		return nil, nil, fmt.Errorf("creating relay: %w", err)
	}

	if opts.EventsProvider != "" && opts.EventsProvider != eventstreamutils.ProviderNone {
		logger.Info("publishing exchange events",
			zap.String("provider", opts.EventsProvider),
			zap.String("brokers", opts.EventsBrokers),
			zap.String("topic", opts.EventsTopic),
		)
	}

	return r, publisher, nil
}

type relayCommander struct {
	opts  Options
	debug bool

	logger *zap.Logger
}

var relayFlags = []string{
	config.FlagRelayListenStandalone,
	config.FlagUpstream,
	config.FlagProvider,
	config.FlagModel,
	config.FlagStaticDir,
	config.FlagEventsProvider,
	config.FlagEventsBrokers,
	config.FlagEventsTopic,
}

const relayLongDesc string = `Run the chat relay server.

The relay accepts POST /api/chat with {"message": "..."}, forwards the text to
the hosted generative language API using the key in GEMINI_API_KEY, and
returns {"message", "model", "timestamp"}. The key is read on every request
and may also come from a .env file in the working directory.

Optionally serve a static asset directory at / so the relay doubles as the
origin for the offline asset cache.`

const relayShortDesc string = "Run the voxrelay chat relay"

func NewRelayCmd() *cobra.Command {
	cmder := &relayCommander{}

	var flagValues struct {
		listen, upstream, provider, model, staticDir string
		eventsProvider, eventsBrokers, eventsTopic   string
	}

	cmd := &cobra.Command{
		Use:   "relay",
		Short: relayShortDesc,
		Long:  relayLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.ServeFlags, relayFlags)
			cmder.opts = OptionsFromViper(v)
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

	config.AddStringFlag(cmd, config.ServeFlags, config.FlagRelayListenStandalone, &flagValues.listen)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagUpstream, &flagValues.upstream)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagProvider, &flagValues.provider)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagModel, &flagValues.model)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagStaticDir, &flagValues.staticDir)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagEventsProvider, &flagValues.eventsProvider)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagEventsBrokers, &flagValues.eventsBrokers)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagEventsTopic, &flagValues.eventsTopic)

	return cmd
}

func (c *relayCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	LoadDotEnv(c.logger)

	r, publisher, err := NewRelay(c.opts, metrics.New(), c.logger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	errChan := make(chan error, 1)
	go func() {
		errChan <- r.Run()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errChan:
		_ = r.Close()
		return err
	case <-ctx.Done():
		c.logger.Info("received signal, shutting down")
		return r.Close()
	}
}
