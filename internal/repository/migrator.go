package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

// Migrator applies and inspects schema migrations.
type Migrator interface {
	// Migrate applies all pending migrations.
	Migrate(ctx context.Context) error

	// MigrateDown rolls back the most recently applied migration.
	MigrateDown(ctx context.Context) error

	// MigrationStatus reports every known migration and whether it is applied.
	MigrationStatus(ctx context.Context) ([]MigrationStatus, error)

	// MigrationVersion returns the current schema version (0 when empty).
	MigrationVersion(ctx context.Context) (int64, error)
}

// MigrationStatus describes one migration file.
type MigrationStatus struct {
	Version   int64
	Path      string
	Applied   bool
	AppliedAt time.Time
}

// GooseMigrator runs embedded SQL migrations through a goose provider.
type GooseMigrator struct {
	provider *goose.Provider
	logger   zerolog.Logger
}

// NewGooseMigrator creates a migrator for db using the migrations found in fsys.
func NewGooseMigrator(dialect goose.Dialect, db *sql.DB, fsys fs.FS, logger zerolog.Logger) (*GooseMigrator, error) {
	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration provider: %w", err)
	}

	return &GooseMigrator{
		provider: provider,
		logger:   logger.With().Str("component", "migrator").Logger(),
	}, nil
}

// Migrate applies all pending migrations.
func (m *GooseMigrator) Migrate(ctx context.Context) error {
	results, err := m.provider.Up(ctx)
	for _, res := range results {
		m.logResult(res)
	}
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	if len(results) == 0 {
		m.logger.Debug().Msg("schema is up to date")
	}
	return nil
}

// MigrateDown rolls back the most recently applied migration.
func (m *GooseMigrator) MigrateDown(ctx context.Context) error {
	res, err := m.provider.Down(ctx)
	if res != nil {
		m.logResult(res)
	}
	if err != nil {
		if errors.Is(err, goose.ErrNoNextVersion) {
			return nil
		}
		return fmt.Errorf("failed to roll back migration: %w", err)
	}
	return nil
}

// MigrationStatus reports every known migration and whether it is applied.
func (m *GooseMigrator) MigrationStatus(ctx context.Context) ([]MigrationStatus, error) {
	statuses, err := m.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration status: %w", err)
	}

	out := make([]MigrationStatus, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, MigrationStatus{
			Version:   s.Source.Version,
			Path:      s.Source.Path,
			Applied:   s.State == goose.StateApplied,
			AppliedAt: s.AppliedAt,
		})
	}
	return out, nil
}

// MigrationVersion returns the current schema version.
func (m *GooseMigrator) MigrationVersion(ctx context.Context) (int64, error) {
	version, err := m.provider.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

func (m *GooseMigrator) logResult(res *goose.MigrationResult) {
	ev := m.logger.Info()
	if res.Error != nil {
		ev = m.logger.Error().Err(res.Error)
	}
	ev.Int64("version", res.Source.Version).
		Str("direction", res.Direction).
		Dur("duration", res.Duration).
		Msg("migration applied")
}
