// Package domain contains the core business entities for Scribe.
// These are plain Go structs with no storage dependencies, representing
// the fundamental concepts of the blogging platform.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User represents a registered author.
type User struct {
	// ID is the canonical identity used in tokens, blog authorship and ownership checks.
	ID uuid.UUID `json:"id"`

	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`

	// EmailAddress is unique across users and stored normalized.
	EmailAddress string `json:"emailAddress"`

	// PasswordHash is the bcrypt hash of the user's password.
	// This should never be exposed in API responses.
	PasswordHash string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUser creates a new User with a fresh ID.
func NewUser(firstName, lastName, email, passwordHash string) *User {
	now := time.Now().UTC()
	return &User{
		ID:           uuid.New(),
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		EmailAddress: NormalizeEmail(email),
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NormalizeEmail trims and lower-cases an email address so lookups and the
// uniqueness constraint agree.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Author is the public projection of a User embedded in blog responses.
type Author struct {
	ID           uuid.UUID `json:"id"`
	FirstName    string    `json:"firstname"`
	LastName     string    `json:"lastname"`
	EmailAddress string    `json:"emailAddress"`
}

// AsAuthor returns the author projection of the user.
func (u *User) AsAuthor() *Author {
	return &Author{
		ID:           u.ID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		EmailAddress: u.EmailAddress,
	}
}
