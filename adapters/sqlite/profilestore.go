package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/artpar/installpay/ports"
)

// ProfileStore implements ports.ProfileStore using SQLite.
type ProfileStore struct {
	db *DB
}

// NewProfileStore creates a new SQLite profile store.
func NewProfileStore(db *DB) *ProfileStore {
	return &ProfileStore{db: db}
}

// Get retrieves the profile of a user.
func (s *ProfileStore) Get(ctx context.Context, userID string) (ports.Profile, error) {
	var p ports.Profile
	var updatedAt sql.NullTime

	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, name, email, tax_id, phone,
		       street, number, complement, district, city, state, postal_code, updated_at
		FROM profiles WHERE user_id = ?
	`, userID).Scan(
		&p.UserID, &p.Name, &p.Email, &p.TaxID, &p.Phone,
		&p.Address.Street, &p.Address.Number, &p.Address.Complement, &p.Address.District,
		&p.Address.City, &p.Address.State, &p.Address.PostalCode, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.Profile{}, ErrNotFound
	}
	if err != nil {
		return ports.Profile{}, err
	}
	p.UpdatedAt = updatedAt.Time
	return p, nil
}

// Upsert creates or replaces a profile.
func (s *ProfileStore) Upsert(ctx context.Context, p ports.Profile) error {
	if p.UserID == "" {
		return errors.New("profile user id is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (
			user_id, name, email, tax_id, phone,
			street, number, complement, district, city, state, postal_code, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			tax_id = excluded.tax_id,
			phone = excluded.phone,
			street = excluded.street,
			number = excluded.number,
			complement = excluded.complement,
			district = excluded.district,
			city = excluded.city,
			state = excluded.state,
			postal_code = excluded.postal_code,
			updated_at = CURRENT_TIMESTAMP
	`,
		p.UserID, p.Name, p.Email, p.TaxID, p.Phone,
		p.Address.Street, p.Address.Number, p.Address.Complement, p.Address.District,
		p.Address.City, p.Address.State, p.Address.PostalCode,
	)
	return err
}

// Ensure interface compliance.
var _ ports.ProfileStore = (*ProfileStore)(nil)
