// Package domain contains the core business entities for Scribe.
package domain

import (
	"errors"
	"fmt"
)

// Domain errors - these represent business rule violations.
// They are distinct from infrastructure errors (database, network, etc.).

var (
	// ===========================================
	// User Errors
	// ===========================================

	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates a user with the same email address exists.
	ErrUserAlreadyExists = errors.New("user already exists")

	// ===========================================
	// Blog Errors
	// ===========================================

	// ErrBlogNotFound indicates the requested blog does not exist
	// (or is a draft the caller is not allowed to see).
	ErrBlogNotFound = errors.New("blog not found")

	// ErrBlogTitleTaken indicates another blog already uses the title.
	ErrBlogTitleTaken = errors.New("title already exists")

	// ErrBlogAlreadyPublished indicates a publish was attempted on a published blog.
	ErrBlogAlreadyPublished = errors.New("blog already published")

	// ErrNotBlogAuthor indicates the requester does not own the blog.
	ErrNotBlogAuthor = errors.New("requester is not the blog author")

	// ErrInvalidBlogState indicates a state value outside draft/publish.
	ErrInvalidBlogState = errors.New("invalid blog state")
)

// DomainError wraps a domain error with additional context.
type DomainError struct {
	// Err is the underlying domain error.
	Err error

	// Message provides additional context.
	Message string

	// Resource identifies the affected resource (e.g., blog id, email address).
	Resource string
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Err.Error(), e.Message, e.Resource)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/errors.As.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError with context.
func NewDomainError(err error, message, resource string) *DomainError {
	return &DomainError{
		Err:      err,
		Message:  message,
		Resource: resource,
	}
}
