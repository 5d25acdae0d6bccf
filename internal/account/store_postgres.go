package account

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the Postgres SQLSTATE for unique constraint failures.
const uniqueViolation = "23505"

// PostgresStore implements Store on the accounts table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed account store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Create inserts a new account row.
func (s *PostgresStore) Create(ctx context.Context, identifier, passwordHash string) (Account, error) {
	a := Account{
		Identifier:   identifier,
		PasswordHash: passwordHash,
	}

	err := s.pool.QueryRow(ctx, `
		INSERT INTO accounts (identifier, password_hash)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`, identifier, passwordHash).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Account{}, ErrDuplicateIdentifier
		}
		return Account{}, err
	}

	return a, nil
}

// FindByIdentifier returns the account for identifier, or ErrNotFound.
func (s *PostgresStore) FindByIdentifier(ctx context.Context, identifier string) (Account, error) {
	return s.findOne(ctx, `
		SELECT id, identifier, password_hash, avatar_url, created_at, updated_at
		FROM accounts
		WHERE identifier = $1
	`, identifier)
}

// FindByID returns the account for id, or ErrNotFound.
func (s *PostgresStore) FindByID(ctx context.Context, id int64) (Account, error) {
	return s.findOne(ctx, `
		SELECT id, identifier, password_hash, avatar_url, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`, id)
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (Account, error) {
	var a Account

	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&a.ID,
		&a.Identifier,
		&a.PasswordHash,
		&a.AvatarURL,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, err
	}

	return a, nil
}

// UpdateAvatar replaces the avatar reference.
func (s *PostgresStore) UpdateAvatar(ctx context.Context, id int64, avatarURL string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE accounts
		SET avatar_url = $2, updated_at = now()
		WHERE id = $1
	`, id, avatarURL)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the account row.
func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM accounts
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
