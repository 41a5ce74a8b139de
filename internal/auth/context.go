package auth

import (
	"context"

	"github.com/google/uuid"
)

// Identity is the authenticated caller attached to a request by the gate.
type Identity struct {
	UserID       uuid.UUID
	EmailAddress string
}

// identityContextKey is the context key for Identity.
type identityContextKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// GetIdentity retrieves the Identity from a request context.
func GetIdentity(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(*Identity)
	return id, ok && id != nil
}

// UserID returns the authenticated user ID, or uuid.Nil for anonymous requests.
func UserID(ctx context.Context) uuid.UUID {
	if id, ok := GetIdentity(ctx); ok {
		return id.UserID
	}
	return uuid.Nil
}
