package refresh

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on the refresh_tokens table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed refresh store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Issue replaces the account's lineage inside one transaction.
//
// pg_advisory_xact_lock serializes concurrent Issue calls for the same
// account id: delete-then-insert under two interleaved transactions could
// otherwise commit two surviving rows. The lock is released at commit.
func (s *PostgresStore) Issue(ctx context.Context, accountID int64, tokenStr string, expiresAt time.Time) (Record, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Record{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, accountID); err != nil {
		return Record{}, err
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM refresh_tokens
		WHERE account_id = $1
	`, accountID); err != nil {
		return Record{}, err
	}

	rec := Record{
		Token:     tokenStr,
		AccountID: accountID,
		ExpiresAt: expiresAt,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO refresh_tokens (token, account_id, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, revoked
	`, tokenStr, accountID, expiresAt).Scan(&rec.ID, &rec.CreatedAt, &rec.Revoked)
	if err != nil {
		return Record{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Record{}, err
	}

	return rec, nil
}

// Lookup returns the record for tokenStr, or ErrNotFound.
func (s *PostgresStore) Lookup(ctx context.Context, tokenStr string) (Record, error) {
	var rec Record

	err := s.pool.QueryRow(ctx, `
		SELECT id, token, account_id, expires_at, created_at, revoked
		FROM refresh_tokens
		WHERE token = $1
	`, tokenStr).Scan(
		&rec.ID,
		&rec.Token,
		&rec.AccountID,
		&rec.ExpiresAt,
		&rec.CreatedAt,
		&rec.Revoked,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}

	return rec, nil
}

// CheckNotExpired lazily deletes rec when its expiry has passed.
func (s *PostgresStore) CheckNotExpired(ctx context.Context, rec Record) (bool, error) {
	if rec.ExpiresAt.After(time.Now().UTC()) {
		return true, nil
	}

	if _, err := s.pool.Exec(ctx, `
		DELETE FROM refresh_tokens
		WHERE id = $1
	`, rec.ID); err != nil {
		return false, err
	}
	return false, nil
}

// Revoke sets the revoked flag (idempotent, no-op when absent).
func (s *PostgresStore) Revoke(ctx context.Context, tokenStr string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE refresh_tokens
		SET revoked = TRUE
		WHERE token = $1
	`, tokenStr)
	return err
}

// DeleteAllForAccount removes every record owned by accountID (idempotent).
func (s *PostgresStore) DeleteAllForAccount(ctx context.Context, accountID int64) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM refresh_tokens
		WHERE account_id = $1
	`, accountID)
	return err
}

// SweepExpired bulk-deletes records expired before now.
func (s *PostgresStore) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM refresh_tokens
		WHERE expires_at < $1
	`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
