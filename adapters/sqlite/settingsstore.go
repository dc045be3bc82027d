package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/artpar/installpay/domain/settings"
	"github.com/artpar/installpay/ports"
)

const upsertSetting = `INSERT INTO settings (key, value, encrypted, updated_at)
	VALUES (?, ?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(key) DO UPDATE SET
		value = excluded.value,
		encrypted = excluded.encrypted,
		updated_at = CURRENT_TIMESTAMP`

// SettingsStore implements ports.SettingsStore using SQLite.
type SettingsStore struct {
	db *DB
}

// NewSettingsStore creates a new settings store.
func NewSettingsStore(db *DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// Get retrieves a single setting by key.
func (s *SettingsStore) Get(ctx context.Context, key string) (settings.Setting, error) {
	var setting settings.Setting
	var updatedAt sql.NullTime

	err := s.db.QueryRowContext(ctx,
		`SELECT key, value, encrypted, updated_at FROM settings WHERE key = ?`,
		key,
	).Scan(&setting.Key, &setting.Value, &setting.Encrypted, &updatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return settings.Setting{}, fmt.Errorf("setting %s: %w", key, ErrNotFound)
		}
		return settings.Setting{}, err
	}

	setting.UpdatedAt = updatedAt.Time
	return setting, nil
}

// GetAll retrieves all settings as a map.
func (s *SettingsStore) GetAll(ctx context.Context) (settings.Settings, error) {
	return s.query(ctx, `SELECT key, value FROM settings`)
}

// GetByPrefix retrieves all settings with a given prefix. Underscores in keys
// are LIKE wildcards, so the prefix is compared literally.
func (s *SettingsStore) GetByPrefix(ctx context.Context, prefix string) (settings.Settings, error) {
	return s.query(ctx, `SELECT key, value FROM settings WHERE substr(key, 1, ?) = ?`, len(prefix), prefix)
}

// Set stores or updates a setting.
func (s *SettingsStore) Set(ctx context.Context, key, value string, encrypted bool) error {
	_, err := s.db.ExecContext(ctx, upsertSetting, key, value, encrypted)
	return err
}

// SetBatch stores or updates multiple settings.
func (s *SettingsStore) SetBatch(ctx context.Context, batch settings.Settings) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertSetting)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for key, value := range batch {
		if _, err := stmt.ExecContext(ctx, key, value, settings.IsSensitive(key)); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}

	return tx.Commit()
}

func (s *SettingsStore) query(ctx context.Context, q string, params ...any) (settings.Settings, error) {
	rows, err := s.db.QueryContext(ctx, q, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(settings.Settings)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		result[key] = value
	}
	return result, rows.Err()
}

// Delete removes a setting.
func (s *SettingsStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM settings WHERE key = ?`,
		key,
	)
	return err
}

// Ensure interface compliance.
var _ ports.SettingsStore = (*SettingsStore)(nil)
