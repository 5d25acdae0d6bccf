package refresh

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the in-memory Store used when no database is configured,
// and by tests. Same invariants as PostgresStore; one mutex is enough here
// because every operation is a short map update.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	byTok  map[string]*Record
}

// NewMemoryStore constructs an empty in-memory refresh store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byTok: make(map[string]*Record)}
}

// Issue replaces the account's lineage under the store lock.
func (s *MemoryStore) Issue(ctx context.Context, accountID int64, tokenStr string, expiresAt time.Time) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for tok, rec := range s.byTok {
		if rec.AccountID == accountID {
			delete(s.byTok, tok)
		}
	}

	s.nextID++
	rec := &Record{
		ID:        s.nextID,
		Token:     tokenStr,
		AccountID: accountID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
	s.byTok[tokenStr] = rec

	return *rec, nil
}

// Lookup returns the record for tokenStr, or ErrNotFound.
func (s *MemoryStore) Lookup(ctx context.Context, tokenStr string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byTok[tokenStr]
	if !ok {
		return Record{}, ErrNotFound
	}
	return *rec, nil
}

// CheckNotExpired lazily deletes rec when its expiry has passed.
func (s *MemoryStore) CheckNotExpired(ctx context.Context, rec Record) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	if rec.ExpiresAt.After(time.Now().UTC()) {
		return true, nil
	}

	s.mu.Lock()
	delete(s.byTok, rec.Token)
	s.mu.Unlock()
	return false, nil
}

// Revoke sets the revoked flag; no-op when absent.
func (s *MemoryStore) Revoke(ctx context.Context, tokenStr string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.byTok[tokenStr]; ok {
		rec.Revoked = true
	}
	return nil
}

// DeleteAllForAccount removes every record owned by accountID (idempotent).
func (s *MemoryStore) DeleteAllForAccount(ctx context.Context, accountID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for tok, rec := range s.byTok {
		if rec.AccountID == accountID {
			delete(s.byTok, tok)
		}
	}
	return nil
}

// SweepExpired bulk-deletes records expired before now.
func (s *MemoryStore) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for tok, rec := range s.byTok {
		if rec.ExpiresAt.Before(now) {
			delete(s.byTok, tok)
			n++
		}
	}
	return n, nil
}

// Len reports the number of live records (test probe).
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byTok)
}
