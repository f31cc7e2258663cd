// Package state holds the signed-in user of a client instance and persists
// it between runs.
package state

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/redmonkez12/work4u/internal/logging"
	"github.com/redmonkez12/work4u/internal/user"
)

// UserKey is the storage key of the persisted user snapshot.
const UserKey = "work4u_auth_user"

// Listener is called with the new user, or nil after sign-out.
type Listener func(u *user.ApplicationUser)

// Store holds one ApplicationUser or nil. Values going in and out are
// copies.
type Store struct {
	storage Storage
	logger  *logging.Logger

	mu          sync.Mutex
	current     *user.ApplicationUser
	subscribers map[int]Listener
	nextID      int
}

// Load builds a Store whose value is the persisted snapshot. A missing,
// unreadable or corrupt snapshot starts the store empty.
func Load(ctx context.Context, storage Storage, logger *logging.Logger) *Store {
	s := &Store{
		storage:     storage,
		logger:      logger,
		subscribers: make(map[int]Listener),
	}

	data, ok, err := storage.Get(ctx, UserKey)
	switch {
	case err != nil:
		logger.Warn("failed to read persisted user", "error", err)
	case !ok || len(data) == 0:
	default:
		var u user.ApplicationUser
		if err := json.Unmarshal(data, &u); err != nil {
			logger.Warn("discarding corrupt persisted user", "error", err)
		} else if u.ID == "" {
			logger.Warn("discarding persisted user without id")
		} else {
			s.current = &u
		}
	}

	return s
}

// Get returns a copy of the current user, or nil.
func (s *Store) Get() *user.ApplicationUser {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// Set replaces the current user, persists it and notifies subscribers in
// subscription order. Persistence failures are logged.
func (s *Store) Set(ctx context.Context, u *user.ApplicationUser) {
	next := u.Clone()

	s.mu.Lock()
	s.current = next
	listeners := s.listeners()
	s.mu.Unlock()

	s.persist(ctx, next)

	for _, fn := range listeners {
		fn(next.Clone())
	}
}

// Subscribe registers fn for future changes. The returned func removes it.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) persist(ctx context.Context, u *user.ApplicationUser) {
	if u == nil {
		if err := s.storage.Delete(ctx, UserKey); err != nil {
			s.logger.Warn("failed to delete persisted user", "error", err)
		}
		return
	}

	data, err := json.Marshal(u)
	if err != nil {
		s.logger.Warn("failed to encode user", "error", err)
		return
	}
	if err := s.storage.Set(ctx, UserKey, data); err != nil {
		s.logger.Warn("failed to persist user", "error", err)
	}
}

// listeners returns subscribers in subscription order. Callers hold mu.
func (s *Store) listeners() []Listener {
	ids := make([]int, 0, len(s.subscribers))
	for id := range s.subscribers {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]Listener, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.subscribers[id])
	}
	return out
}
