package gormstore

import (
	"context"
	"errors"
	"time"

	"github.com/artpar/installpay/ports"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type profileModel struct {
	UserID     string    `gorm:"column:user_id;primaryKey"`
	Name       string    `gorm:"column:name;not null;default:''"`
	Email      string    `gorm:"column:email;not null;default:''"`
	TaxID      string    `gorm:"column:tax_id;not null;default:''"`
	Phone      string    `gorm:"column:phone;not null;default:''"`
	Street     string    `gorm:"column:street;not null;default:''"`
	Number     string    `gorm:"column:number;not null;default:''"`
	Complement string    `gorm:"column:complement;not null;default:''"`
	District   string    `gorm:"column:district;not null;default:''"`
	City       string    `gorm:"column:city;not null;default:''"`
	State      string    `gorm:"column:state;not null;default:''"`
	PostalCode string    `gorm:"column:postal_code;not null;default:''"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

func (profileModel) TableName() string { return "profiles" }

// ProfileStore implements ports.ProfileStore using GORM.
type ProfileStore struct {
	db *gorm.DB
}

// NewProfileStore creates a new profile store.
func NewProfileStore(db *gorm.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

// Get retrieves the profile of a user.
func (s *ProfileStore) Get(ctx context.Context, userID string) (ports.Profile, error) {
	var m profileModel
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ports.Profile{}, ports.ErrNotFound
	}
	if err != nil {
		return ports.Profile{}, err
	}
	return ports.Profile{
		UserID: m.UserID,
		Name:   m.Name,
		Email:  m.Email,
		TaxID:  m.TaxID,
		Phone:  m.Phone,
		Address: ports.Address{
			Street:     m.Street,
			Number:     m.Number,
			Complement: m.Complement,
			District:   m.District,
			City:       m.City,
			State:      m.State,
			PostalCode: m.PostalCode,
		},
		UpdatedAt: m.UpdatedAt,
	}, nil
}

// Upsert creates or replaces a profile.
func (s *ProfileStore) Upsert(ctx context.Context, p ports.Profile) error {
	if p.UserID == "" {
		return errors.New("profile user id is required")
	}
	m := profileModel{
		UserID:     p.UserID,
		Name:       p.Name,
		Email:      p.Email,
		TaxID:      p.TaxID,
		Phone:      p.Phone,
		Street:     p.Address.Street,
		Number:     p.Address.Number,
		Complement: p.Address.Complement,
		District:   p.Address.District,
		City:       p.Address.City,
		State:      p.Address.State,
		PostalCode: p.Address.PostalCode,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(&m).Error
}

// Ensure interface compliance.
var _ ports.ProfileStore = (*ProfileStore)(nil)
