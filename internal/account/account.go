// Package account models the durable account storage and password hashing
// collaborators. The auth and user flows depend only on the interfaces here;
// Postgres and in-memory implementations are provided.
package account

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no account matches the query.
	ErrNotFound = errors.New("account not found")

	// ErrDuplicateIdentifier is returned when Create violates the
	// identifier uniqueness constraint.
	ErrDuplicateIdentifier = errors.New("identifier already exists")
)

// Account is the canonical principal. The id is assigned by the store and
// immutable afterwards.
type Account struct {
	ID           int64
	Identifier   string
	PasswordHash string
	AvatarURL    *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Store is the durable account persistence boundary. Identifier uniqueness
// is enforced here, not by callers.
type Store interface {
	// Create inserts a new account and returns it with its assigned id.
	Create(ctx context.Context, identifier, passwordHash string) (Account, error)

	// FindByIdentifier returns the account for identifier, or ErrNotFound.
	FindByIdentifier(ctx context.Context, identifier string) (Account, error)

	// FindByID returns the account for id, or ErrNotFound.
	FindByID(ctx context.Context, id int64) (Account, error)

	// UpdateAvatar replaces the avatar reference and bumps updated_at.
	UpdateAvatar(ctx context.Context, id int64, avatarURL string) error

	// Delete removes the account row. ErrNotFound when absent.
	Delete(ctx context.Context, id int64) error
}

// Hasher is the password hashing capability. Verify must compare in a way
// that does not leak timing about the stored digest.
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
}
