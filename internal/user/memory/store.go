// Package memory is an in-process user store. It is the default backend
// for development and the fixture used by handler and router tests.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/frahmantamala/user-management/internal"
	"github.com/frahmantamala/user-management/internal/user"
)

type Store struct {
	mu    sync.RWMutex
	byID  map[string]user.User
	order []string
}

func NewStore() *Store {
	return &Store{byID: make(map[string]user.User)}
}

var _ user.Repository = (*Store)(nil)

func (s *Store) FindByID(_ context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return user.User{}, internal.ErrUserNotFound
	}
	return u.Clone(), nil
}

func (s *Store) FindByUsername(_ context.Context, username string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.order {
		if u := s.byID[id]; u.Username == username {
			return u.Clone(), nil
		}
	}
	return user.User{}, internal.ErrUserNotFound
}

// FindAll returns users in insertion order.
func (s *Store) FindAll(_ context.Context) ([]user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]user.User, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id].Clone())
	}
	return out, nil
}

// Save rejects a case-insensitive username match with ErrUserAlreadyExists.
// A caller supplied id is kept; an empty one is replaced with a fresh random id.
func (s *Store) Save(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.byID {
		if strings.EqualFold(existing.Username, u.Username) {
			return user.User{}, internal.ErrUserAlreadyExists
		}
	}

	stored := u.CloneWithID(u.ID)
	if _, taken := s.byID[stored.ID]; taken {
		return user.User{}, internal.ErrUserAlreadyExists
	}
	s.byID[stored.ID] = stored
	s.order = append(s.order, stored.ID)
	return stored.Clone(), nil
}

// Update rejects a case-insensitive username collision with any other user.
func (s *Store) Update(_ context.Context, id string, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; !ok {
		return user.User{}, internal.ErrUserNotFound
	}
	for otherID, other := range s.byID {
		if otherID != id && strings.EqualFold(other.Username, u.Username) {
			return user.User{}, internal.ErrUsernameInUse
		}
	}

	stored := u.CloneWithID(id)
	s.byID[id] = stored
	return stored.Clone(), nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; !ok {
		return internal.ErrUserNotFound
	}
	delete(s.byID, id)
	if i := slices.Index(s.order, id); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
	return nil
}
