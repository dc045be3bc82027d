package memory

import (
	"context"
	"sync"

	"github.com/artpar/installpay/ports"
)

// ProfileStore is an in-memory implementation of ports.ProfileStore.
type ProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]ports.Profile
}

// NewProfileStore creates a new in-memory profile store.
func NewProfileStore(seed ...ports.Profile) *ProfileStore {
	s := &ProfileStore{profiles: make(map[string]ports.Profile)}
	for _, p := range seed {
		s.profiles[p.UserID] = p
	}
	return s
}

// Get retrieves the profile of a user.
func (s *ProfileStore) Get(ctx context.Context, userID string) (ports.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return ports.Profile{}, ErrNotFound
	}
	return p, nil
}

// Upsert creates or replaces a profile.
func (s *ProfileStore) Upsert(ctx context.Context, p ports.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = p
	return nil
}

// Ensure interface compliance.
var _ ports.ProfileStore = (*ProfileStore)(nil)
