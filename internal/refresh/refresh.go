// Package refresh is the durable record of issued refresh-token lineages.
//
// The store enforces the single-lineage invariant: at most one refresh record
// exists per account at any time. Issuing a new record deletes every prior
// record for that account inside the same transaction, so two simultaneously
// valid refresh tokens for one account can never be observed.
package refresh

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a token string matches no record.
	ErrNotFound = errors.New("refresh record not found")
)

// Record mirrors one row of the refresh_tokens table.
type Record struct {
	ID        int64
	Token     string
	AccountID int64
	ExpiresAt time.Time
	CreatedAt time.Time
	Revoked   bool
}

// Store is the persistence boundary for refresh lineages.
//
// "Not found" is always reported via ErrNotFound; any other error is an
// infrastructure fault and fatal for the current request.
type Store interface {
	// Issue atomically deletes every existing record for accountID and
	// inserts a new one. Concurrent calls for the same account serialize;
	// exactly one record survives.
	Issue(ctx context.Context, accountID int64, tokenStr string, expiresAt time.Time) (Record, error)

	// Lookup returns the record for tokenStr, or ErrNotFound.
	Lookup(ctx context.Context, tokenStr string) (Record, error)

	// CheckNotExpired reports whether rec is still within its expiry.
	// Side effect: an expired record is deleted before returning false.
	// A read can therefore mutate store state; callers relying on the
	// record afterwards must re-Lookup.
	CheckNotExpired(ctx context.Context, rec Record) (bool, error)

	// Revoke sets the revoked flag for tokenStr; no-op when absent.
	Revoke(ctx context.Context, tokenStr string) error

	// DeleteAllForAccount removes every record owned by accountID.
	// Idempotent; used when the account is deleted.
	DeleteAllForAccount(ctx context.Context, accountID int64) error

	// SweepExpired bulk-deletes all records expired before now and
	// returns the number deleted. Idempotent; safe to run concurrently
	// with Issue/Lookup for unrelated accounts.
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}
