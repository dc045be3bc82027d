package remote

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/artpar/installpay/ports"
)

// ProfileStore implements ports.ProfileStore against a profile REST API.
//
// API Contract:
//
//	GET /users/{user_id}/profile -> profile | 404
//	PUT /users/{user_id}/profile   profile  -> 204
type ProfileStore struct {
	client *Client
}

// NewProfileStore creates a remote profile store.
func NewProfileStore(cfg ClientConfig) *ProfileStore {
	return &ProfileStore{client: NewClient(cfg)}
}

type profileDTO struct {
	UserID    string     `json:"user_id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	TaxID     string     `json:"tax_id"`
	Phone     string     `json:"phone,omitempty"`
	Address   addressDTO `json:"address"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func profilePath(userID string) string {
	return "/users/" + url.PathEscape(userID) + "/profile"
}

// Get retrieves the profile of a user.
func (s *ProfileStore) Get(ctx context.Context, userID string) (ports.Profile, error) {
	var dto profileDTO
	if err := s.client.Request(ctx, http.MethodGet, profilePath(userID), nil, &dto); err != nil {
		if IsNotFound(err) {
			return ports.Profile{}, ports.ErrNotFound
		}
		return ports.Profile{}, err
	}
	return ports.Profile{
		UserID:    dto.UserID,
		Name:      dto.Name,
		Email:     dto.Email,
		TaxID:     dto.TaxID,
		Phone:     dto.Phone,
		Address:   ports.Address(dto.Address),
		UpdatedAt: dto.UpdatedAt,
	}, nil
}

// Upsert creates or replaces a profile.
func (s *ProfileStore) Upsert(ctx context.Context, p ports.Profile) error {
	if p.UserID == "" {
		return errors.New("profile user id is required")
	}
	return s.client.Request(ctx, http.MethodPut, profilePath(p.UserID), profileDTO{
		UserID:    p.UserID,
		Name:      p.Name,
		Email:     p.Email,
		TaxID:     p.TaxID,
		Phone:     p.Phone,
		Address:   addressDTO(p.Address),
		UpdatedAt: p.UpdatedAt,
	}, nil)
}

// Ensure interface compliance.
var _ ports.ProfileStore = (*ProfileStore)(nil)
