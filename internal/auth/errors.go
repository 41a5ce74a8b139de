// Package auth provides bearer token authentication for Scribe.
package auth

import (
	"errors"
	"net/http"
)

// Authentication and token errors.
var (
	// ErrMissingAuthorization indicates the Authorization header is absent.
	ErrMissingAuthorization = errors.New("missing authorization header")

	// ErrInvalidAuthorizationHeader indicates the Authorization header is not "Bearer <token>".
	ErrInvalidAuthorizationHeader = errors.New("invalid authorization header")

	// ErrInvalidToken indicates the token is malformed, badly signed or carries bad claims.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired indicates the token was valid but its expiry has passed.
	ErrTokenExpired = errors.New("token expired")
)

// Response messages written by the gate.
const (
	MessageUnauthorized = "Unauthorized"
	MessageInvalidToken = "Invalid Token"
)

// AuthError represents an authentication failure ready to be written to a client.
type AuthError struct {
	// Err is the underlying sentinel error.
	Err error

	// Message is the client-facing message.
	Message string

	// HTTPStatus is the HTTP status code.
	HTTPStatus int
}

func (e *AuthError) Error() string {
	return e.Message + ": " + e.Err.Error()
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// NewAuthError creates a new AuthError from a standard error.
// Header problems report "Unauthorized"; token problems report "Invalid Token".
func NewAuthError(err error) *AuthError {
	switch {
	case errors.Is(err, ErrMissingAuthorization), errors.Is(err, ErrInvalidAuthorizationHeader):
		return &AuthError{Err: err, Message: MessageUnauthorized, HTTPStatus: http.StatusUnauthorized}
	default:
		return &AuthError{Err: err, Message: MessageInvalidToken, HTTPStatus: http.StatusUnauthorized}
	}
}
