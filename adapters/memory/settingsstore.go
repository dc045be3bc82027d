package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/artpar/installpay/domain/settings"
	"github.com/artpar/installpay/ports"
)

// SettingsStore is an in-memory implementation of ports.SettingsStore.
type SettingsStore struct {
	mu    sync.RWMutex
	items map[string]settings.Setting
}

// NewSettingsStore creates a store holding the given values.
func NewSettingsStore(initial settings.Settings) *SettingsStore {
	s := &SettingsStore{items: make(map[string]settings.Setting)}
	for k, v := range initial {
		s.items[k] = settings.Setting{Key: k, Value: v, Encrypted: settings.IsSensitive(k)}
	}
	return s
}

// Get retrieves a single setting by key.
func (s *SettingsStore) Get(ctx context.Context, key string) (settings.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[key]
	if !ok {
		return settings.Setting{}, ErrNotFound
	}
	return item, nil
}

// GetAll retrieves all settings as a map.
func (s *SettingsStore) GetAll(ctx context.Context) (settings.Settings, error) {
	return s.GetByPrefix(ctx, "")
}

// GetByPrefix retrieves all settings with a given prefix.
func (s *SettingsStore) GetByPrefix(ctx context.Context, prefix string) (settings.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(settings.Settings)
	for k, item := range s.items {
		if strings.HasPrefix(k, prefix) {
			out[k] = item.Value
		}
	}
	return out, nil
}

// Set stores or updates a setting.
func (s *SettingsStore) Set(ctx context.Context, key, value string, encrypted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = settings.Setting{Key: key, Value: value, Encrypted: encrypted, UpdatedAt: time.Now().UTC()}
	return nil
}

// SetBatch stores or updates multiple settings.
func (s *SettingsStore) SetBatch(ctx context.Context, batch settings.Settings) error {
	for k, v := range batch {
		if err := s.Set(ctx, k, v, settings.IsSensitive(k)); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a setting.
func (s *SettingsStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

// Ensure interface compliance.
var _ ports.SettingsStore = (*SettingsStore)(nil)
