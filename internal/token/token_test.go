package token

import (
	"testing"
	"time"
)

func newTestIssuer(t *testing.T, cfg Config) *Issuer {
	t.Helper()
	if cfg.Secret == "" {
		cfg.Secret = "test-secret-test-secret-test-secret"
	}
	iss, err := NewIssuer(cfg)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	return iss
}

func TestIssueAccess_RoundTrip(t *testing.T) {
	t.Parallel()

	iss := newTestIssuer(t, Config{AccessTTL: time.Minute})

	tok, err := iss.IssueAccess(42)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if !iss.Validate(tok) {
		t.Fatalf("expected fresh token to validate")
	}

	id, err := iss.Subject(tok)
	if err != nil {
		t.Fatalf("Subject: %v", err)
	}
	if id != 42 {
		t.Fatalf("subject mismatch: got %d want 42", id)
	}

	kind, ok := iss.KindOf(tok)
	if !ok || kind != KindAccess {
		t.Fatalf("kind mismatch: got %q ok=%v", kind, ok)
	}
}

func TestIssueRefresh_Kind(t *testing.T) {
	t.Parallel()

	iss := newTestIssuer(t, Config{})

	tok, err := iss.IssueRefresh(7)
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}

	kind, ok := iss.KindOf(tok)
	if !ok || kind != KindRefresh {
		t.Fatalf("kind mismatch: got %q ok=%v", kind, ok)
	}
}

func TestValidate_Expired(t *testing.T) {
	t.Parallel()

	iss := newTestIssuer(t, Config{AccessTTL: -time.Second})

	tok, err := iss.IssueAccess(1)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if iss.Validate(tok) {
		t.Fatalf("expected expired token to fail validation")
	}
	if _, err := iss.Subject(tok); err == nil {
		t.Fatalf("expected Subject to fail for expired token")
	}
}

func TestValidate_WrongSecret(t *testing.T) {
	t.Parallel()

	a := newTestIssuer(t, Config{Secret: "secret-one-secret-one-secret-one"})
	b := newTestIssuer(t, Config{Secret: "secret-two-secret-two-secret-two"})

	tok, err := a.IssueAccess(1)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if b.Validate(tok) {
		t.Fatalf("expected token signed with a different key to fail")
	}
}

func TestValidate_Malformed(t *testing.T) {
	t.Parallel()

	iss := newTestIssuer(t, Config{})

	for _, raw := range []string{"", "garbage", "not.a.jwt", "a.b"} {
		if iss.Validate(raw) {
			t.Fatalf("expected %q to fail validation", raw)
		}
		if _, ok := iss.KindOf(raw); ok {
			t.Fatalf("expected KindOf(%q) to report not-ok", raw)
		}
	}
}

func TestNewIssuer_RequiresSecret(t *testing.T) {
	t.Parallel()

	if _, err := NewIssuer(Config{}); err == nil {
		t.Fatalf("expected error for missing secret")
	}
}

func TestAccessTTLSeconds(t *testing.T) {
	t.Parallel()

	iss := newTestIssuer(t, Config{AccessTTL: 2 * time.Minute})
	if got := iss.AccessTTLSeconds(); got != 120 {
		t.Fatalf("AccessTTLSeconds: got %d want 120", got)
	}
}
