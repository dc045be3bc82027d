// Package app holds the use-case services that sit between the HTTP and CLI
// surfaces and the domain packages.
package app

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/artpar/installpay/domain/renegotiation"
	"github.com/artpar/installpay/domain/settings"
	"github.com/artpar/installpay/ports"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// SettingsService caches settings in memory and writes through to the store.
type SettingsService struct {
	store  ports.SettingsStore
	logger zerolog.Logger
	mu     sync.RWMutex
	cache  settings.Settings
}

// NewSettingsService creates a new settings service seeded with defaults.
func NewSettingsService(store ports.SettingsStore, logger zerolog.Logger) *SettingsService {
	return &SettingsService{
		store:  store,
		logger: logger,
		cache:  settings.Defaults(),
	}
}

// Load reads all settings from the store and merges them with defaults.
func (s *SettingsService) Load(ctx context.Context) error {
	loaded, err := s.store.GetAll(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cache = settings.Merge(loaded)
	s.mu.Unlock()

	s.logger.Info().Int("count", len(loaded)).Msg("settings loaded")
	return nil
}

// Get returns a copy of the cached settings.
func (s *SettingsService) Get() settings.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(settings.Settings, len(s.cache))
	for k, v := range s.cache {
		result[k] = v
	}
	return result
}

// GetValue returns a single setting value.
func (s *SettingsService) GetValue(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache.Get(key)
}

// MaxRate returns the renegotiation interest percentage at seven
// installments. Unparseable or negative values fall back to the default.
func (s *SettingsService) MaxRate() decimal.Decimal {
	s.mu.RLock()
	rate := s.cache.GetDecimal(settings.KeyNegotiationInterest, renegotiation.DefaultMaxRate)
	s.mu.RUnlock()

	if rate.IsNegative() {
		s.logger.Warn().Str("value", rate.String()).Msg("negative negotiation_interest ignored")
		return renegotiation.DefaultMaxRate
	}
	return rate
}

// CardMaxInstallments returns the highest installment count accepted for card
// payments.
func (s *SettingsService) CardMaxInstallments() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := s.cache.GetInt(settings.KeyPaymentCardMaxInstallments, 12)
	if n < 1 {
		return 1
	}
	return n
}

// Set updates a setting in both cache and store.
func (s *SettingsService) Set(ctx context.Context, key, value string) error {
	if err := s.store.Set(ctx, key, value, settings.IsSensitive(key)); err != nil {
		return err
	}

	s.mu.Lock()
	s.cache[key] = value
	s.mu.Unlock()

	s.logger.Debug().Str("key", key).Msg("setting updated")
	return nil
}

// SetBatch updates multiple settings.
func (s *SettingsService) SetBatch(ctx context.Context, batch settings.Settings) error {
	if err := s.store.SetBatch(ctx, batch); err != nil {
		return err
	}

	s.mu.Lock()
	for k, v := range batch {
		s.cache[k] = v
	}
	s.mu.Unlock()

	s.logger.Debug().Int("count", len(batch)).Msg("settings batch updated")
	return nil
}

// Delete removes a stored setting. The cached value reverts to its default.
func (s *SettingsService) Delete(ctx context.Context, key string) error {
	if err := s.store.Delete(ctx, key); err != nil {
		return err
	}

	s.mu.Lock()
	if def, ok := settings.Defaults()[key]; ok {
		s.cache[key] = def
	} else {
		delete(s.cache, key)
	}
	s.mu.Unlock()
	return nil
}

// GetByPrefix returns all settings with a given prefix.
func (s *SettingsService) GetByPrefix(prefix string) settings.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(settings.Settings)
	for k, v := range s.cache {
		if strings.HasPrefix(k, prefix) {
			result[k] = v
		}
	}
	return result
}

// Entry is a setting prepared for display.
type Entry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// List returns every cached setting sorted by key with secrets masked.
func (s *SettingsService) List() []Entry {
	all := s.Get()
	out := make([]Entry, 0, len(all))
	for k, v := range all {
		out = append(out, Entry{Key: k, Value: settings.Mask(k, v)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Store returns the underlying settings store.
func (s *SettingsService) Store() ports.SettingsStore {
	return s.store
}

// SeedMissing writes the values in seed whose keys are not yet stored.
// Stored values win over seeds. It returns the number of keys written.
func (s *SettingsService) SeedMissing(ctx context.Context, seed settings.Settings) (int, error) {
	stored, err := s.store.GetAll(ctx)
	if err != nil {
		return 0, err
	}

	missing := make(settings.Settings)
	for k, v := range seed {
		if _, ok := stored[k]; !ok {
			missing[k] = v
		}
	}
	if len(missing) == 0 {
		return 0, nil
	}
	if err := s.SetBatch(ctx, missing); err != nil {
		return 0, err
	}
	return len(missing), nil
}
