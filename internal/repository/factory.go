// Package repository provides the data access layer for Scribe.
// This file contains the types shared by the driver-specific factories.
package repository

import (
	"context"
)

// Repositories holds all repository instances.
type Repositories struct {
	User UserRepository
	Blog BlogRepository
}

// DatabaseHealth is an interface for database health checks.
// This interface satisfies handler.HealthChecker for the health endpoint.
type DatabaseHealth interface {
	Ping(ctx context.Context) error
	Health(ctx context.Context) error
	Close() error
}

// Store bundles an open database with its repositories and migrator.
type Store struct {
	Repos    *Repositories
	Database DatabaseHealth
	Migrator Migrator
	Driver   string
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.Database.Close()
}
