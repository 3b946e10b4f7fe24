// Package cachestore opens the asset cache storage driver selected by the
// command line and config: PostgreSQL, SQLite, or memory.
package cachestore

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/papercomputeco/voxrelay/pkg/dotdir"
	"github.com/papercomputeco/voxrelay/pkg/storage"
	"github.com/papercomputeco/voxrelay/pkg/storage/inmemory"
	"github.com/papercomputeco/voxrelay/pkg/storage/postgres"
	"github.com/papercomputeco/voxrelay/pkg/storage/sqlite"
)

// DefaultFileName is the SQLite database created in the .voxrelay/ directory
// when no explicit path is configured.
const DefaultFileName = "assets.db"

// Options selects a storage driver. PostgresDSN wins over SQLitePath;
// Ephemeral wins over both.
type Options struct {
	SQLitePath  string
	PostgresDSN string
	ConfigDir   string
	Ephemeral   bool
}

// ResolveSQLitePath returns the override when set, otherwise the default
// database inside the resolved .voxrelay/ directory.
func ResolveSQLitePath(override, configDir string) (string, error) {
	if override != "" {
		return override, nil
	}

	path, err := dotdir.NewManager().Path(configDir, DefaultFileName)
	if err != nil {
		return "", fmt.Errorf("could not resolve asset cache database: %w", err)
	}
	return path, nil
}

// Open returns the storage driver described by opts.
func Open(ctx context.Context, opts Options, logger *zap.Logger) (storage.Driver, error) {
	switch {
	case opts.Ephemeral:
		logger.Info("using in-memory asset cache")
		return inmemory.NewDriver(), nil

	case opts.PostgresDSN != "":
		driver, err := postgres.NewDriver(ctx, opts.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL asset cache: %w", err)
		}
		logger.Info("using PostgreSQL asset cache")
		return driver, nil
	}

	path, err := ResolveSQLitePath(opts.SQLitePath, opts.ConfigDir)
	if err != nil {
		return nil, err
	}

	driver, err := sqlite.NewDriver(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to create SQLite asset cache: %w", err)
	}
	logger.Info("using SQLite asset cache", zap.String("path", path))
	return driver, nil
}
