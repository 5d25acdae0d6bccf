package account

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the in-memory Store used when no database is configured,
// and by tests.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*Account
	byIdnt map[string]int64
}

// NewMemoryStore constructs an empty in-memory account store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[int64]*Account),
		byIdnt: make(map[string]int64),
	}
}

// Create inserts a new account, enforcing identifier uniqueness.
func (s *MemoryStore) Create(ctx context.Context, identifier, passwordHash string) (Account, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byIdnt[identifier]; exists {
		return Account{}, ErrDuplicateIdentifier
	}

	s.nextID++
	now := time.Now().UTC()
	a := &Account{
		ID:           s.nextID,
		Identifier:   identifier,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.byID[a.ID] = a
	s.byIdnt[identifier] = a.ID

	return *a, nil
}

// FindByIdentifier returns the account for identifier, or ErrNotFound.
func (s *MemoryStore) FindByIdentifier(ctx context.Context, identifier string) (Account, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byIdnt[identifier]
	if !ok {
		return Account{}, ErrNotFound
	}
	return *s.byID[id], nil
}

// FindByID returns the account for id, or ErrNotFound.
func (s *MemoryStore) FindByID(ctx context.Context, id int64) (Account, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return *a, nil
}

// UpdateAvatar replaces the avatar reference.
func (s *MemoryStore) UpdateAvatar(ctx context.Context, id int64, avatarURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	url := avatarURL
	a.AvatarURL = &url
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// Delete removes the account.
func (s *MemoryStore) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.byIdnt, a.Identifier)
	delete(s.byID, id)
	return nil
}
