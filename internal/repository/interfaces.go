// Package repository defines data access interfaces for Scribe.
// These interfaces abstract database operations, allowing for different implementations
// (PostgreSQL, SQLite, in-memory for testing) while keeping the service layer clean.
package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/prn-tf/scribe/internal/domain"
)

// =============================================================================
// User Repository
// =============================================================================

// UserRepository defines the interface for user data access.
type UserRepository interface {
	// Create creates a new user.
	// Returns domain.ErrUserAlreadyExists if the email address is taken.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByEmail retrieves a user by (normalized) email address.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// =============================================================================
// Blog Repository
// =============================================================================

// BlogRepository defines the interface for blog data access.
// Read methods populate Blog.Author from the users table when the author exists.
type BlogRepository interface {
	// Create creates a new blog.
	// Returns domain.ErrBlogTitleTaken if the title is already used.
	Create(ctx context.Context, blog *domain.Blog) error

	// GetByID retrieves a blog by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Blog, error)

	// GetByTitle retrieves a blog by its exact title.
	GetByTitle(ctx context.Context, title string) (*domain.Blog, error)

	// Update persists title, description, body, tags, state, reading time and updated_at.
	Update(ctx context.Context, blog *domain.Blog) error

	// Delete permanently removes a blog by ID.
	Delete(ctx context.Context, id uuid.UUID) error

	// List returns blogs matching filter, newest first.
	List(ctx context.Context, filter BlogFilter, opts ListOptions) (*ListResult[domain.Blog], error)
}

// BlogFilter narrows a blog listing. Zero values mean "no restriction".
type BlogFilter struct {
	// AuthorID restricts to blogs written by this user.
	AuthorID uuid.UUID

	// State restricts to blogs in this state.
	State domain.BlogState
}

// =============================================================================
// Common Types
// =============================================================================

// ListOptions contains common pagination options.
type ListOptions struct {
	// Offset is the number of records to skip.
	Offset int

	// Limit is the maximum number of records to return.
	Limit int
}

// ListResult is a generic paginated list result.
type ListResult[T any] struct {
	// Items is the list of items.
	Items []*T

	// Total is the total number of items (without pagination).
	Total int64

	// Offset is the current offset.
	Offset int

	// Limit is the current limit.
	Limit int
}
