package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestIssueReplacesLineage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore()

	exp := time.Now().UTC().Add(time.Hour)
	if _, err := s.Issue(ctx, 1, "tok-1", exp); err != nil {
		t.Fatalf("issue tok-1: %v", err)
	}
	if _, err := s.Issue(ctx, 1, "tok-2", exp); err != nil {
		t.Fatalf("issue tok-2: %v", err)
	}

	if _, err := s.Lookup(ctx, "tok-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("old token should be gone, got err=%v", err)
	}
	rec, err := s.Lookup(ctx, "tok-2")
	if err != nil {
		t.Fatalf("lookup tok-2: %v", err)
	}
	if rec.AccountID != 1 {
		t.Fatalf("account id = %d, want 1", rec.AccountID)
	}
	if s.Len() != 1 {
		t.Fatalf("store has %d records, want 1", s.Len())
	}
}

func TestIssueLeavesOtherAccountsAlone(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore()
	exp := time.Now().UTC().Add(time.Hour)

	if _, err := s.Issue(ctx, 1, "a-tok", exp); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Issue(ctx, 2, "b-tok", exp); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Lookup(ctx, "a-tok"); err != nil {
		t.Fatalf("account 1's token should survive account 2's issue: %v", err)
	}
}

func TestCheckNotExpiredDeletesLazily(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore()

	rec, err := s.Issue(ctx, 1, "stale", time.Now().UTC().Add(-time.Minute))
	if err != nil {
		t.Fatal(err)
	}

	live, err := s.CheckNotExpired(ctx, rec)
	if err != nil {
		t.Fatal(err)
	}
	if live {
		t.Fatal("expired record reported live")
	}
	if _, err := s.Lookup(ctx, "stale"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired record should be deleted on read, got err=%v", err)
	}
}

func TestRevoke(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := s.Issue(ctx, 1, "tok", time.Now().UTC().Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := s.Revoke(ctx, "tok"); err != nil {
		t.Fatal(err)
	}

	rec, err := s.Lookup(ctx, "tok")
	if err != nil {
		t.Fatal(err)
	}
	if !rec.Revoked {
		t.Fatal("record not marked revoked")
	}

	// Revoking an unknown token is a no-op.
	if err := s.Revoke(ctx, "never-issued"); err != nil {
		t.Fatalf("revoke unknown: %v", err)
	}
}

func TestDeleteAllForAccount(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore()
	exp := time.Now().UTC().Add(time.Hour)

	if _, err := s.Issue(ctx, 1, "a-tok", exp); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Issue(ctx, 2, "b-tok", exp); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteAllForAccount(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteAllForAccount(ctx, 1); err != nil {
		t.Fatalf("second delete should be a no-op: %v", err)
	}

	if _, err := s.Lookup(ctx, "a-tok"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("account 1's token should be gone, got err=%v", err)
	}
	if _, err := s.Lookup(ctx, "b-tok"); err != nil {
		t.Fatalf("account 2's token should survive: %v", err)
	}
}

func TestSweepExpired(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now().UTC()

	if _, err := s.Issue(ctx, 1, "stale", now.Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Issue(ctx, 2, "fresh", now.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}

	deleted, err := s.SweepExpired(ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 1 {
		t.Fatalf("deleted = %d, want 1", deleted)
	}
	if _, err := s.Lookup(ctx, "fresh"); err != nil {
		t.Fatalf("fresh record should survive the sweep: %v", err)
	}

	// A second sweep finds nothing.
	deleted, err = s.SweepExpired(ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 0 {
		t.Fatalf("second sweep deleted = %d, want 0", deleted)
	}
}

func TestConcurrentIssueSingleSurvivor(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore()
	exp := time.Now().UTC().Add(time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = s.Issue(ctx, 7, fmt.Sprintf("tok-%d", i), exp)
		}(i)
	}
	wg.Wait()

	if s.Len() != 1 {
		t.Fatalf("store has %d records after concurrent issues, want 1", s.Len())
	}
}
