// Package memstore is an in-memory [authcore.UserStore] with optimistic
// version checking. It backs the tests and the example server; production
// deployments supply their own database-backed store.
package memstore

import (
	"context"
	"sync"

	"github.com/hexlane/authcore"
)

// Store holds user records in memory. Safe for concurrent use.
type Store struct {
	mu           sync.Mutex
	byID         map[string]authcore.User
	byIdentifier map[string]string
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		byID:         make(map[string]authcore.User),
		byIdentifier: make(map[string]string),
	}
}

func (s *Store) GetByID(_ context.Context, id string) (authcore.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return authcore.User{}, authcore.ErrStoreNotFound
	}
	return cloneUser(u), nil
}

func (s *Store) GetByIdentifier(_ context.Context, identifier string) (authcore.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byIdentifier[identifier]
	if !ok {
		return authcore.User{}, authcore.ErrStoreNotFound
	}
	return cloneUser(s.byID[id]), nil
}

func (s *Store) Create(_ context.Context, user authcore.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byIdentifier[user.Identifier]; taken {
		return authcore.ErrDuplicateIdentifier
	}
	if _, exists := s.byID[user.ID]; exists {
		return authcore.ErrDuplicateIdentifier
	}
	user.Version = 1
	s.byID[user.ID] = cloneUser(user)
	s.byIdentifier[user.Identifier] = user.ID
	return nil
}

// Save persists user iff the stored version still matches, then bumps it.
func (s *Store) Save(_ context.Context, user authcore.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[user.ID]
	if !ok {
		return authcore.ErrStoreNotFound
	}
	if current.Version != user.Version {
		return authcore.ErrVersionConflict
	}
	user.Version++
	s.byID[user.ID] = cloneUser(user)
	return nil
}

// cloneUser deep-copies the slice-valued fields so callers never alias the
// stored record.
func cloneUser(u authcore.User) authcore.User {
	if u.MFA.BackupCodes != nil {
		codes := make([]string, len(u.MFA.BackupCodes))
		copy(codes, u.MFA.BackupCodes)
		u.MFA.BackupCodes = codes
	}
	return u
}
