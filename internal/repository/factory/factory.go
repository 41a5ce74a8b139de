// Package factory opens the configured database and creates repositories on it.
package factory

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/prn-tf/scribe/internal/config"
	"github.com/prn-tf/scribe/internal/repository"
	"github.com/prn-tf/scribe/internal/repository/postgres"
	"github.com/prn-tf/scribe/internal/repository/sqlite"
)

// Factory creates repositories based on configuration.
type Factory struct {
	cfg    config.DatabaseConfig
	logger zerolog.Logger
}

// New creates a new repository factory.
func New(cfg config.DatabaseConfig, logger zerolog.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger.With().Str("component", "database").Str("driver", cfg.Driver).Logger(),
	}
}

// Driver returns the configured database driver.
func (f *Factory) Driver() string {
	return f.cfg.Driver
}

// Open connects to the configured database and builds its repositories.
// Migrations are not applied here; callers decide via database.auto_migrate.
func (f *Factory) Open(ctx context.Context) (*repository.Store, error) {
	switch f.cfg.Driver {
	case "postgres":
		return f.openPostgres(ctx)
	case "sqlite":
		return f.openSQLite(ctx)
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", f.cfg.Driver)
	}
}

func (f *Factory) openPostgres(ctx context.Context) (*repository.Store, error) {
	db, err := postgres.NewDB(ctx, f.cfg, f.logger)
	if err != nil {
		return nil, err
	}

	migrator, err := db.Migrator()
	if err != nil {
		db.Close()
		return nil, err
	}

	return &repository.Store{
		Repos: &repository.Repositories{
			User: postgres.NewUserRepository(db),
			Blog: postgres.NewBlogRepository(db),
		},
		Database: db,
		Migrator: migrator,
		Driver:   f.cfg.Driver,
	}, nil
}

func (f *Factory) openSQLite(ctx context.Context) (*repository.Store, error) {
	sqlCfg := sqlite.DefaultConfig(f.cfg.Path)
	if f.cfg.JournalMode != "" {
		sqlCfg.JournalMode = f.cfg.JournalMode
	}
	if f.cfg.BusyTimeout > 0 {
		sqlCfg.BusyTimeout = f.cfg.BusyTimeout
	}
	if f.cfg.CacheSize != 0 {
		sqlCfg.CacheSize = f.cfg.CacheSize
	}
	if f.cfg.SynchronousMode != "" {
		sqlCfg.SynchronousMode = f.cfg.SynchronousMode
	}

	db, err := sqlite.NewDB(ctx, sqlCfg, f.logger)
	if err != nil {
		return nil, err
	}

	migrator, err := db.Migrator()
	if err != nil {
		db.Close()
		return nil, err
	}

	return &repository.Store{
		Repos: &repository.Repositories{
			User: sqlite.NewUserRepository(db),
			Blog: sqlite.NewBlogRepository(db),
		},
		Database: db,
		Migrator: migrator,
		Driver:   f.cfg.Driver,
	}, nil
}
