package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/artpar/installpay/domain/settings"
	"github.com/artpar/installpay/ports"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type settingModel struct {
	Key       string    `gorm:"column:key;primaryKey"`
	Value     string    `gorm:"column:value;not null"`
	Encrypted bool      `gorm:"column:encrypted;not null;default:false"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (settingModel) TableName() string { return "settings" }

// SettingsStore implements ports.SettingsStore using GORM.
type SettingsStore struct {
	db *gorm.DB
}

// NewSettingsStore creates a new settings store.
func NewSettingsStore(db *gorm.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// Get retrieves a single setting by key.
func (s *SettingsStore) Get(ctx context.Context, key string) (settings.Setting, error) {
	var m settingModel
	err := s.db.WithContext(ctx).Where(clause.Eq{Column: clause.Column{Name: "key"}, Value: key}).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return settings.Setting{}, fmt.Errorf("setting %s: %w", key, ports.ErrNotFound)
	}
	if err != nil {
		return settings.Setting{}, err
	}
	return settings.Setting{Key: m.Key, Value: m.Value, Encrypted: m.Encrypted, UpdatedAt: m.UpdatedAt}, nil
}

// GetAll retrieves all settings as a map.
func (s *SettingsStore) GetAll(ctx context.Context) (settings.Settings, error) {
	var models []settingModel
	if err := s.db.WithContext(ctx).Find(&models).Error; err != nil {
		return nil, err
	}
	return toSettings(models), nil
}

// GetByPrefix retrieves all settings with a given prefix.
func (s *SettingsStore) GetByPrefix(ctx context.Context, prefix string) (settings.Settings, error) {
	var models []settingModel
	err := s.db.WithContext(ctx).
		Where(clause.Like{Column: clause.Column{Name: "key"}, Value: prefix + "%"}).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toSettings(models), nil
}

func toSettings(models []settingModel) settings.Settings {
	out := make(settings.Settings, len(models))
	for _, m := range models {
		out[m.Key] = m.Value
	}
	return out
}

func upsertSetting(db *gorm.DB, m settingModel) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "encrypted", "updated_at"}),
	}).Create(&m).Error
}

// Set stores or updates a setting.
func (s *SettingsStore) Set(ctx context.Context, key, value string, encrypted bool) error {
	return upsertSetting(s.db.WithContext(ctx), settingModel{Key: key, Value: value, Encrypted: encrypted})
}

// SetBatch stores or updates multiple settings in one transaction.
func (s *SettingsStore) SetBatch(ctx context.Context, batch settings.Settings) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for key, value := range batch {
			if err := upsertSetting(tx, settingModel{Key: key, Value: value, Encrypted: settings.IsSensitive(key)}); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes a setting.
func (s *SettingsStore) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where(clause.Eq{Column: clause.Column{Name: "key"}, Value: key}).Delete(&settingModel{}).Error
}

// Ensure interface compliance.
var _ ports.SettingsStore = (*SettingsStore)(nil)
