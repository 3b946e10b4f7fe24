// Package cachecmder provides the cache command for installing, inspecting,
// and serving the offline asset cache.
package cachecmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/voxrelay/cmd/voxrelay/cachestore"
	"github.com/papercomputeco/voxrelay/pkg/config"
	"github.com/papercomputeco/voxrelay/pkg/storage"
)

const cacheLongDesc string = `Manage the offline asset cache.

The asset cache pre-fetches the voice client's assets (the root document, the
web manifest, and the offline speech model files) from an origin, normally a
relay started with --static-dir, and stores them under a versioned cache name.
Later requests for those assets are answered from the cache even when the
origin is down. Chat requests are never cached.

Caches live in the SQLite database at --sqlite (default: assets.db in the
.voxrelay/ directory), or in PostgreSQL when --postgres is set.

Examples:
  voxrelay cache install --origin http://localhost:3000
  voxrelay cache list
  voxrelay cache list voice-agent-v1
  voxrelay cache clear voice-agent-v1
  voxrelay cache serve --listen :3002`

const cacheShortDesc string = "Manage the offline asset cache"

func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: cacheShortDesc,
		Long:  cacheLongDesc,
	}

	cmd.AddCommand(newInstallCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newClearCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

// cacheOptions are the settings shared by the cache subcommands. Flags the
// user did not pass fall back to config.toml.
type cacheOptions struct {
	name        string
	origin      string
	listen      string
	sqlitePath  string
	postgresDSN string
	configDir   string
}

// addStorageFlags registers the store selection flags every subcommand takes.
func (o *cacheOptions) addStorageFlags(cmd *cobra.Command) {
	config.AddStringFlag(cmd, config.CacheFlags, config.FlagSQLite, &o.sqlitePath)
	config.AddStringFlag(cmd, config.CacheFlags, config.FlagPostgres, &o.postgresDSN)
}

func (o *cacheOptions) load(cmd *cobra.Command) error {
	o.configDir, _ = cmd.Flags().GetString("config-dir")

	cfger, err := config.NewConfiger(o.configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cfg, err := cfger.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if !cmd.Flags().Changed("name") {
		o.name = cfg.Cache.Name
	}
	if !cmd.Flags().Changed("origin") {
		o.origin = cfg.Cache.Origin
	}
	if !cmd.Flags().Changed("listen") {
		o.listen = cfg.Cache.Listen
	}
	if !cmd.Flags().Changed("sqlite") {
		o.sqlitePath = cfg.Storage.SQLitePath
	}
	if !cmd.Flags().Changed("postgres") {
		o.postgresDSN = cfg.Storage.PostgresDSN
	}
	return nil
}

func (o *cacheOptions) openStore(ctx context.Context, logger *zap.Logger) (storage.Driver, error) {
	return cachestore.Open(ctx, cachestore.Options{
		SQLitePath:  o.sqlitePath,
		PostgresDSN: o.postgresDSN,
		ConfigDir:   o.configDir,
	}, logger)
}

func debugFlag(cmd *cobra.Command) (bool, error) {
	debug, err := cmd.Flags().GetBool("debug")
	if err != nil {
		return false, fmt.Errorf("could not get debug flag: %w", err)
	}
	return debug, nil
}
