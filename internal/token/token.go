// Package token issues and validates the signed credentials used across
// beacon's HTTP and WebSocket surfaces.
//
// Tokens are JWTs signed with HMAC-SHA256 from a shared secret. Each token
// carries the owning account id as subject, issued-at/expiry timestamps, and
// a kind discriminator ("access" or "refresh"). The issuer is stateless:
// everything it needs is the derived key and the clock.
package token

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Kind discriminates access tokens from refresh tokens.
type Kind string

const (
	// KindAccess marks a short-lived per-request credential.
	KindAccess Kind = "access"
	// KindRefresh marks the long-lived credential exchanged for new pairs.
	KindRefresh Kind = "refresh"
)

var (
	// ErrInvalidToken is returned when a token cannot be parsed or verified.
	ErrInvalidToken = errors.New("invalid token")

	// ErrConfig is returned for invalid issuer configuration.
	ErrConfig = errors.New("invalid token config")
)

// Claims is the claim set embedded in every beacon token.
type Claims struct {
	jwt.RegisteredClaims
	Kind Kind `json:"type"`
}

// Config defines signing and lifetime policy for issued tokens.
type Config struct {
	// Secret is the shared HMAC key. Required.
	Secret string

	// AccessTTL is the lifetime of access tokens.
	AccessTTL time.Duration

	// RefreshTTL is the lifetime of refresh tokens. It matches the
	// record-level expiry enforced by the refresh store so the embedded
	// exp claim and the persisted record can never disagree.
	RefreshTTL time.Duration
}

// DefaultConfig returns the default token policy.
func DefaultConfig() Config {
	return Config{
		AccessTTL:  2 * time.Minute,
		RefreshTTL: 30 * 24 * time.Hour,
	}
}

// Issuer mints and validates signed tokens. It is safe for concurrent use:
// the key is derived once at construction and never mutated.
type Issuer struct {
	key        []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewIssuer constructs an Issuer from cfg. The secret must be non-empty.
func NewIssuer(cfg Config) (*Issuer, error) {
	if cfg.Secret == "" {
		return nil, ErrConfig
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultConfig().AccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultConfig().RefreshTTL
	}

	return &Issuer{
		key:        []byte(cfg.Secret),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
	}, nil
}

// IssueAccess mints an access token for accountID.
func (i *Issuer) IssueAccess(accountID int64) (string, error) {
	return i.issue(accountID, KindAccess, i.accessTTL)
}

// IssueRefresh mints a refresh token for accountID.
func (i *Issuer) IssueRefresh(accountID int64) (string, error) {
	return i.issue(accountID, KindRefresh, i.refreshTTL)
}

func (i *Issuer) issue(accountID int64, kind Kind, ttl time.Duration) (string, error) {
	now := time.Now().UTC()

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(accountID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Kind: kind,
	})

	return tok.SignedString(i.key)
}

// Validate reports whether raw is a well-formed, correctly signed, unexpired
// token. Malformed structure, signature mismatch, and expiry are deliberately
// indistinguishable: callers must not branch on the reason.
func (i *Issuer) Validate(raw string) bool {
	_, err := i.parse(raw)
	return err == nil
}

// Subject returns the account id carried in raw. Only meaningful after
// Validate has returned true; on any parse failure it returns ErrInvalidToken.
func (i *Issuer) Subject(raw string) (int64, error) {
	claims, err := i.parse(raw)
	if err != nil {
		return 0, ErrInvalidToken
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return id, nil
}

// KindOf returns the kind claim of raw. ok is false when parsing fails for
// any reason.
func (i *Issuer) KindOf(raw string) (Kind, bool) {
	claims, err := i.parse(raw)
	if err != nil {
		return "", false
	}
	switch claims.Kind {
	case KindAccess, KindRefresh:
		return claims.Kind, true
	default:
		return "", false
	}
}

// AccessTTLSeconds exposes the access lifetime for response metadata.
func (i *Issuer) AccessTTLSeconds() int64 {
	return int64(i.accessTTL / time.Second)
}

// RefreshTTL exposes the refresh lifetime; the refresh store derives its
// record expiry from it.
func (i *Issuer) RefreshTTL() time.Duration {
	return i.refreshTTL
}

func (i *Issuer) parse(raw string) (*Claims, error) {
	claims := &Claims{}

	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return i.key, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !tok.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
