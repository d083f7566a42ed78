package profiles

import (
	"context"
	"errors"
	"time"

	"github.com/Togather-Foundation/gallery/internal/auth"
	"github.com/Togather-Foundation/gallery/internal/domain/ids"
	"github.com/Togather-Foundation/gallery/internal/sanitize"
)

var ErrNotFound = errors.New("profile not found")

// Profile is the durable identity of an authenticated user. Rows are created
// by the identity provider at registration.
type Profile struct {
	ID        string
	FullName  string
	Role      auth.Role
	CreatedAt time.Time
}

func (p Profile) IsAdmin() bool {
	return p.Role == auth.RoleAdmin
}

type Repository interface {
	Get(ctx context.Context, id string) (*Profile, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get resolves a profile by id. Malformed ids report ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (*Profile, error) {
	normalized, err := ids.NormalizeUUID(id)
	if err != nil {
		return nil, ErrNotFound
	}
	profile, err := s.repo.Get(ctx, normalized)
	if err != nil {
		return nil, err
	}
	profile.Role = auth.NormalizeRole(string(profile.Role))
	profile.FullName = sanitize.Name(profile.FullName)
	return profile, nil
}
