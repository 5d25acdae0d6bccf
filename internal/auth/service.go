// Package auth orchestrates registration, login, and refresh rotation over
// the account and refresh stores.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"beacon/internal/account"
	"beacon/internal/metrics"
	"beacon/internal/refresh"
	"beacon/internal/token"
)

// Sentinel errors surfaced to the HTTP layer. Handlers map these to response
// codes; anything else is an infrastructure fault and becomes a 500.
var (
	ErrAlreadyExists      = errors.New("identifier already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid refresh token")
	ErrTokenExpired       = errors.New("refresh token expired")
	ErrTokenRevoked       = errors.New("refresh token revoked")
	ErrWrongTokenKind     = errors.New("wrong token kind")
)

// TokenPair is the result of any successful auth operation.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccountID    int64
	TokenType    string
	ExpiresIn    int64
}

// Service implements the auth flows. All three entry points converge on
// issuePair, so every success path persists exactly one refresh lineage.
type Service struct {
	log      *slog.Logger
	accounts account.Store
	hasher   account.Hasher
	issuer   *token.Issuer
	refresh  refresh.Store

	// Dummy hash for timing-resistant login checks.
	dummyHash string
}

// NewService constructs the auth service.
func NewService(log *slog.Logger, accounts account.Store, hasher account.Hasher, issuer *token.Issuer, refreshStore refresh.Store) *Service {
	if log == nil {
		log = slog.Default()
	}

	s := &Service{
		log:      log,
		accounts: accounts,
		hasher:   hasher,
		issuer:   issuer,
		refresh:  refreshStore,
	}

	if hash, err := hasher.Hash("dummy-password-for-timing-only"); err == nil {
		s.dummyHash = hash
	}

	return s
}

// Register creates an account and signs it in. The identifier must be unused;
// ErrAlreadyExists otherwise.
func (s *Service) Register(ctx context.Context, identifier, password string) (TokenPair, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return TokenPair{}, fmt.Errorf("auth: hash password: %w", err)
	}

	acc, err := s.accounts.Create(ctx, identifier, hash)
	if err != nil {
		if errors.Is(err, account.ErrDuplicateIdentifier) {
			return TokenPair{}, ErrAlreadyExists
		}
		return TokenPair{}, fmt.Errorf("auth: create account: %w", err)
	}

	s.log.Info("auth.register", "account_id", acc.ID)
	return s.issuePair(ctx, acc.ID)
}

// Login verifies credentials and issues a fresh token pair. A missing account
// and a wrong password both return ErrInvalidCredentials; the two cases are
// indistinguishable to the caller, and a dummy verify keeps their timing
// close too.
func (s *Service) Login(ctx context.Context, identifier, password string) (TokenPair, error) {
	acc, err := s.accounts.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			if s.dummyHash != "" {
				s.hasher.Verify(password, s.dummyHash)
			}
			return TokenPair{}, ErrInvalidCredentials
		}
		return TokenPair{}, fmt.Errorf("auth: find account: %w", err)
	}

	if !s.hasher.Verify(password, acc.PasswordHash) {
		return TokenPair{}, ErrInvalidCredentials
	}

	s.log.Info("auth.login", "account_id", acc.ID)
	return s.issuePair(ctx, acc.ID)
}

// Refresh exchanges a refresh token for a new pair, rotating the lineage.
//
// Guards run strictly in order: record lookup, revocation, record expiry
// (which lazily deletes the stale row), cryptographic validity, then kind.
// A token that is both revoked and expired therefore reports revoked.
func (s *Service) Refresh(ctx context.Context, raw string) (TokenPair, error) {
	rec, err := s.refresh.Lookup(ctx, raw)
	if err != nil {
		if errors.Is(err, refresh.ErrNotFound) {
			return TokenPair{}, ErrInvalidToken
		}
		return TokenPair{}, fmt.Errorf("auth: lookup refresh record: %w", err)
	}

	if rec.Revoked {
		return TokenPair{}, ErrTokenRevoked
	}

	live, err := s.refresh.CheckNotExpired(ctx, rec)
	if err != nil {
		return TokenPair{}, fmt.Errorf("auth: check refresh expiry: %w", err)
	}
	if !live {
		return TokenPair{}, ErrTokenExpired
	}

	if !s.issuer.Validate(raw) {
		return TokenPair{}, ErrInvalidToken
	}
	if kind, ok := s.issuer.KindOf(raw); !ok || kind != token.KindRefresh {
		return TokenPair{}, ErrWrongTokenKind
	}

	s.log.Info("auth.refresh", "account_id", rec.AccountID)
	return s.issuePair(ctx, rec.AccountID)
}

// Logout revokes the given refresh token. Unknown tokens are a no-op so the
// operation is idempotent.
func (s *Service) Logout(ctx context.Context, raw string) error {
	if err := s.refresh.Revoke(ctx, raw); err != nil {
		return fmt.Errorf("auth: revoke refresh token: %w", err)
	}
	return nil
}

// AuthenticateAccess validates a bearer token and returns the account id.
// Only access-kind tokens pass; presenting a refresh token here fails.
func (s *Service) AuthenticateAccess(raw string) (int64, error) {
	if !s.issuer.Validate(raw) {
		return 0, ErrInvalidToken
	}
	if kind, ok := s.issuer.KindOf(raw); !ok || kind != token.KindAccess {
		return 0, ErrWrongTokenKind
	}
	id, err := s.issuer.Subject(raw)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return id, nil
}

func (s *Service) issuePair(ctx context.Context, accountID int64) (TokenPair, error) {
	access, err := s.issuer.IssueAccess(accountID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("auth: issue access token: %w", err)
	}
	refreshStr, err := s.issuer.IssueRefresh(accountID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("auth: issue refresh token: %w", err)
	}

	expiresAt := time.Now().UTC().Add(s.issuer.RefreshTTL())
	if _, err := s.refresh.Issue(ctx, accountID, refreshStr, expiresAt); err != nil {
		return TokenPair{}, fmt.Errorf("auth: persist refresh record: %w", err)
	}

	metrics.TokenPairsIssued.Inc()

	return TokenPair{
		AccessToken:  access,
		RefreshToken: refreshStr,
		AccountID:    accountID,
		TokenType:    "Bearer",
		ExpiresIn:    s.issuer.AccessTTLSeconds(),
	}, nil
}
